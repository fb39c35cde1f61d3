package mocks

import (
	"context"
	"time"

	interfaces "fable-server/shared/interfaces"
	"fable-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// CreditGrantRepository is a mock type for the CreditGrantRepository interface
type CreditGrantRepository struct {
	mock.Mock
}

var _ interfaces.CreditGrantRepository = (*CreditGrantRepository)(nil)

func (m *CreditGrantRepository) Create(ctx context.Context, querier interfaces.DBTX, grant *models.CreditGrant) error {
	args := m.Called(ctx, querier, grant)
	return args.Error(0)
}

func (m *CreditGrantRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.CreditGrant, error) {
	args := m.Called(ctx, querier, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CreditGrant), args.Error(1)
}

func (m *CreditGrantRepository) ListByUserID(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID) ([]*models.CreditGrant, error) {
	args := m.Called(ctx, querier, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CreditGrant), args.Error(1)
}

func (m *CreditGrantRepository) ListAvailableForUpdate(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID, now time.Time) ([]*models.CreditGrant, error) {
	args := m.Called(ctx, querier, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CreditGrant), args.Error(1)
}

func (m *CreditGrantRepository) AddUsed(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, delta int64) error {
	args := m.Called(ctx, querier, id, delta)
	return args.Error(0)
}

func (m *CreditGrantRepository) SumAvailable(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID, now time.Time) (int64, error) {
	args := m.Called(ctx, querier, userID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CreditGrantRepository) MarkExpired(ctx context.Context, querier interfaces.DBTX, now time.Time) (int64, error) {
	args := m.Called(ctx, querier, now)
	return args.Get(0).(int64), args.Error(1)
}
