package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Narration is one generated version of a story narration. All versions
// produced against the same scene ordering share a GroupKey (see
// ComputeGroupKey); Version is strictly increasing per GroupKey and is never
// reused, deletions included. At most one non-deleted version per GroupKey may
// have IsActive = true.
type Narration struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	GroupKey  string          `db:"group_key" json:"groupKey"`
	Version   int             `db:"version" json:"version"`
	IsActive  bool            `db:"is_active" json:"isActive"`
	Content   json.RawMessage `db:"content" json:"content"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
	DeletedAt *time.Time      `db:"deleted_at" json:"deletedAt,omitempty"`
}

// Lifecycle returns the tagged lifecycle state of the narration.
func (n *Narration) Lifecycle() LifecycleState {
	return LifecycleOf(n.DeletedAt)
}
