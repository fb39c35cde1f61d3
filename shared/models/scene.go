package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Scene represents a single ordered scene within a story.
// Order among the non-deleted scenes of one story is imposed by OrderKey;
// keys are unique per story among live rows only.
type Scene struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	StoryID   uuid.UUID       `db:"story_id" json:"storyId"`
	OrderKey  int64           `db:"order_key" json:"orderKey"`
	Content   json.RawMessage `db:"content" json:"content"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
	DeletedAt *time.Time      `db:"deleted_at" json:"deletedAt,omitempty"`
}

// Lifecycle returns the tagged lifecycle state of the scene.
func (s *Scene) Lifecycle() LifecycleState {
	return LifecycleOf(s.DeletedAt)
}
