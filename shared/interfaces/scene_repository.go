package interfaces

import (
	"context"
	"time"

	"fable-server/shared/models"

	"github.com/google/uuid"
)

// SceneRepository defines the interface for interacting with ordered story scenes.
//
//go:generate mockery --name SceneRepository --output ./mocks --outpkg mocks --case=underscore
type SceneRepository interface {
	// Create inserts a new scene record with an already allocated order key.
	Create(ctx context.Context, querier DBTX, scene *models.Scene) error

	// GetByID retrieves a scene by its unique ID, tombstoned rows included.
	// Returns models.ErrNotFound if no such row exists.
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Scene, error)

	// ListByStoryID returns the scenes of a story sorted by order key ascending.
	// By default only live rows are returned; includeDeleted adds tombstones.
	ListByStoryID(ctx context.Context, querier DBTX, storyID uuid.UUID, includeDeleted bool) ([]*models.Scene, error)

	// MaxOrderKey returns the largest order key among the live scenes of a
	// story, or 0 when the story has no live scenes.
	MaxOrderKey(ctx context.Context, querier DBTX, storyID uuid.UUID) (int64, error)

	// UpdateOrderKey moves a live scene to a new order key.
	// Returns models.ErrConflict if the scene is tombstoned or gone.
	UpdateOrderKey(ctx context.Context, querier DBTX, id uuid.UUID, orderKey int64, updatedAt time.Time) error

	// ReassignOrderKeys rewrites the order keys of the listed scenes in one
	// statement. ids[i] receives keys[i]. Used only by reindexing; keys are
	// only ever reassigned to live rows.
	ReassignOrderKeys(ctx context.Context, querier DBTX, storyID uuid.UUID, ids []uuid.UUID, keys []int64, updatedAt time.Time) error

	// SetDeletedAt tombstones a live scene. The write is conditional on the
	// row still being live; a concurrent delete surfaces as models.ErrConflict.
	SetDeletedAt(ctx context.Context, querier DBTX, id uuid.UUID, deletedAt time.Time) error

	// ClearDeletedAt restores a tombstoned scene and assigns it the given
	// fresh order key. Conditional on the row being tombstoned; returns
	// models.ErrConflict otherwise.
	ClearDeletedAt(ctx context.Context, querier DBTX, id uuid.UUID, orderKey int64, updatedAt time.Time) error

	// Purge physically removes a tombstoned scene. Returns models.ErrConflict
	// if the row is live, models.ErrNotFound if it does not exist.
	Purge(ctx context.Context, querier DBTX, id uuid.UUID) error

	// PurgeOlderThan physically removes every scene tombstoned before cutoff.
	// Returns the number of purged rows. Used by the retention sweeper.
	PurgeOlderThan(ctx context.Context, querier DBTX, cutoff time.Time) (int64, error)
}
