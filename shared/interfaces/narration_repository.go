package interfaces

import (
	"context"
	"time"

	"fable-server/shared/models"

	"github.com/google/uuid"
)

// NarrationRepository defines the interface for versioned story narrations.
//
//go:generate mockery --name NarrationRepository --output ./mocks --outpkg mocks --case=underscore
type NarrationRepository interface {
	// Create inserts a new narration version. The version must already be
	// allocated via NextVersion inside the same transaction.
	Create(ctx context.Context, querier DBTX, narration *models.Narration) error

	// GetByID retrieves a narration by ID, tombstoned rows included.
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Narration, error)

	// ListByGroupKey returns the narrations of a group sorted by version
	// ascending, live rows only unless includeDeleted is set.
	ListByGroupKey(ctx context.Context, querier DBTX, groupKey string, includeDeleted bool) ([]*models.Narration, error)

	// GetActive returns the single live active narration of a group, or
	// models.ErrNotFound when the group has no active member.
	GetActive(ctx context.Context, querier DBTX, groupKey string) (*models.Narration, error)

	// NextVersion allocates the next version number for a group. The maximum
	// is taken over ALL rows of the group, tombstoned included, so numbers
	// are never reused after deletions. Must run inside the transaction that
	// inserts the new row.
	NextVersion(ctx context.Context, querier DBTX, groupKey string) (int, error)

	// DeactivateOthers clears is_active on every live member of the group
	// except the given one. Returns the number of rows cleared.
	DeactivateOthers(ctx context.Context, querier DBTX, groupKey string, exceptID uuid.UUID, updatedAt time.Time) (int64, error)

	// DeactivateAll clears is_active on every member of the group.
	DeactivateAll(ctx context.Context, querier DBTX, groupKey string, updatedAt time.Time) (int64, error)

	// Activate flags the narration active. The write is conditional: it only
	// succeeds when the row is live AND no other live member of its group is
	// active. A violated condition surfaces as models.ErrConflict, which is
	// retryable; the partial unique index on (group_key) WHERE is_active is
	// the database-level backstop against interleaved activations.
	Activate(ctx context.Context, querier DBTX, id uuid.UUID, updatedAt time.Time) error

	// Deactivate clears is_active on a single live narration.
	Deactivate(ctx context.Context, querier DBTX, id uuid.UUID, updatedAt time.Time) error

	// SetDeletedAt tombstones a live narration and clears its active flag in
	// the same statement; a tombstoned narration is always inactive.
	SetDeletedAt(ctx context.Context, querier DBTX, id uuid.UUID, deletedAt time.Time) error

	// ClearDeletedAt restores a tombstoned narration. The restored row stays
	// inactive; reactivation is always an explicit separate step.
	ClearDeletedAt(ctx context.Context, querier DBTX, id uuid.UUID, updatedAt time.Time) error

	// Purge physically removes a tombstoned narration.
	Purge(ctx context.Context, querier DBTX, id uuid.UUID) error

	// PurgeOlderThan physically removes every narration tombstoned before
	// cutoff. Returns the number of purged rows.
	PurgeOlderThan(ctx context.Context, querier DBTX, cutoff time.Time) (int64, error)
}
