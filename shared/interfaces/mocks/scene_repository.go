package mocks

import (
	"context"
	"time"

	interfaces "fable-server/shared/interfaces"
	"fable-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// SceneRepository is a mock type for the SceneRepository interface
type SceneRepository struct {
	mock.Mock
}

var _ interfaces.SceneRepository = (*SceneRepository)(nil)

func (m *SceneRepository) Create(ctx context.Context, querier interfaces.DBTX, scene *models.Scene) error {
	args := m.Called(ctx, querier, scene)
	return args.Error(0)
}

func (m *SceneRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Scene, error) {
	args := m.Called(ctx, querier, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Scene), args.Error(1)
}

func (m *SceneRepository) ListByStoryID(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID, includeDeleted bool) ([]*models.Scene, error) {
	args := m.Called(ctx, querier, storyID, includeDeleted)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Scene), args.Error(1)
}

func (m *SceneRepository) MaxOrderKey(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) (int64, error) {
	args := m.Called(ctx, querier, storyID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SceneRepository) UpdateOrderKey(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, orderKey int64, updatedAt time.Time) error {
	args := m.Called(ctx, querier, id, orderKey, updatedAt)
	return args.Error(0)
}

func (m *SceneRepository) ReassignOrderKeys(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID, ids []uuid.UUID, keys []int64, updatedAt time.Time) error {
	args := m.Called(ctx, querier, storyID, ids, keys, updatedAt)
	return args.Error(0)
}

func (m *SceneRepository) SetDeletedAt(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, deletedAt time.Time) error {
	args := m.Called(ctx, querier, id, deletedAt)
	return args.Error(0)
}

func (m *SceneRepository) ClearDeletedAt(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, orderKey int64, updatedAt time.Time) error {
	args := m.Called(ctx, querier, id, orderKey, updatedAt)
	return args.Error(0)
}

func (m *SceneRepository) Purge(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, querier, id)
	return args.Error(0)
}

func (m *SceneRepository) PurgeOlderThan(ctx context.Context, querier interfaces.DBTX, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, querier, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
