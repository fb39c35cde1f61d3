package mocks

import (
	"context"
	"time"

	interfaces "fable-server/shared/interfaces"
	"fable-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// NarrationRepository is a mock type for the NarrationRepository interface
type NarrationRepository struct {
	mock.Mock
}

var _ interfaces.NarrationRepository = (*NarrationRepository)(nil)

func (m *NarrationRepository) Create(ctx context.Context, querier interfaces.DBTX, narration *models.Narration) error {
	args := m.Called(ctx, querier, narration)
	return args.Error(0)
}

func (m *NarrationRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Narration, error) {
	args := m.Called(ctx, querier, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Narration), args.Error(1)
}

func (m *NarrationRepository) ListByGroupKey(ctx context.Context, querier interfaces.DBTX, groupKey string, includeDeleted bool) ([]*models.Narration, error) {
	args := m.Called(ctx, querier, groupKey, includeDeleted)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Narration), args.Error(1)
}

func (m *NarrationRepository) GetActive(ctx context.Context, querier interfaces.DBTX, groupKey string) (*models.Narration, error) {
	args := m.Called(ctx, querier, groupKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Narration), args.Error(1)
}

func (m *NarrationRepository) NextVersion(ctx context.Context, querier interfaces.DBTX, groupKey string) (int, error) {
	args := m.Called(ctx, querier, groupKey)
	return args.Int(0), args.Error(1)
}

func (m *NarrationRepository) DeactivateOthers(ctx context.Context, querier interfaces.DBTX, groupKey string, exceptID uuid.UUID, updatedAt time.Time) (int64, error) {
	args := m.Called(ctx, querier, groupKey, exceptID, updatedAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NarrationRepository) DeactivateAll(ctx context.Context, querier interfaces.DBTX, groupKey string, updatedAt time.Time) (int64, error) {
	args := m.Called(ctx, querier, groupKey, updatedAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NarrationRepository) Activate(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, updatedAt time.Time) error {
	args := m.Called(ctx, querier, id, updatedAt)
	return args.Error(0)
}

func (m *NarrationRepository) Deactivate(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, updatedAt time.Time) error {
	args := m.Called(ctx, querier, id, updatedAt)
	return args.Error(0)
}

func (m *NarrationRepository) SetDeletedAt(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, deletedAt time.Time) error {
	args := m.Called(ctx, querier, id, deletedAt)
	return args.Error(0)
}

func (m *NarrationRepository) ClearDeletedAt(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, updatedAt time.Time) error {
	args := m.Called(ctx, querier, id, updatedAt)
	return args.Error(0)
}

func (m *NarrationRepository) Purge(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, querier, id)
	return args.Error(0)
}

func (m *NarrationRepository) PurgeOlderThan(ctx context.Context, querier interfaces.DBTX, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, querier, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
