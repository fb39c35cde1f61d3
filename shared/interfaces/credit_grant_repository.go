package interfaces

import (
	"context"
	"time"

	"fable-server/shared/models"

	"github.com/google/uuid"
)

// CreditGrantRepository defines the interface for the credit grant ledger.
//
//go:generate mockery --name CreditGrantRepository --output ./mocks --outpkg mocks --case=underscore
type CreditGrantRepository interface {
	// Create inserts a new grant record.
	Create(ctx context.Context, querier DBTX, grant *models.CreditGrant) error

	// GetByID retrieves a grant by its unique ID.
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.CreditGrant, error)

	// ListByUserID returns every grant of a user, newest first.
	ListByUserID(ctx context.Context, querier DBTX, userID uuid.UUID) ([]*models.CreditGrant, error)

	// ListAvailableForUpdate returns the user's consumable grants sorted
	// soonest-to-expire first (valid_till NULLS LAST, then created_at) and
	// locks them FOR UPDATE. Must run inside a transaction; the row locks
	// serialize concurrent consumptions against overlapping grants.
	ListAvailableForUpdate(ctx context.Context, querier DBTX, userID uuid.UUID, now time.Time) ([]*models.CreditGrant, error)

	// AddUsed increments used on a grant. The write is conditional on
	// used + delta staying within granted; a violated condition surfaces as
	// models.ErrConflict.
	AddUsed(ctx context.Context, querier DBTX, id uuid.UUID, delta int64) error

	// SumAvailable returns the total remaining credits over the user's
	// available grants at the given instant.
	SumAvailable(ctx context.Context, querier DBTX, userID uuid.UUID, now time.Time) (int64, error)

	// MarkExpired flips is_expired on every grant whose valid_till has
	// passed. Returns the number of rows flipped. Used by the sweeper.
	MarkExpired(ctx context.Context, querier DBTX, now time.Time) (int64, error)
}
