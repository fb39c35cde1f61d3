package engine

import (
	"context"
	"testing"
	"time"

	"fable-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPlanConsumption(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	future := now.Add(30 * 24 * time.Hour)

	grantA := &models.CreditGrant{ID: uuid.New(), Granted: 5, Used: 3, ValidFrom: now.Add(-time.Hour)}
	grantB := &models.CreditGrant{ID: uuid.New(), Granted: 10, Used: 0, ValidFrom: now.Add(-time.Hour), ValidTill: &future}

	t.Run("Walks grants in order and splits across them", func(t *testing.T) {
		deltas, remaining := planConsumption([]*models.CreditGrant{grantA, grantB}, 4)
		require.Len(t, deltas, 2)
		assert.Equal(t, grantA.ID, deltas[0].grantID)
		assert.Equal(t, int64(2), deltas[0].take)
		assert.Equal(t, grantB.ID, deltas[1].grantID)
		assert.Equal(t, int64(2), deltas[1].take)
		assert.Zero(t, remaining)
	})

	t.Run("Single grant covers the whole amount", func(t *testing.T) {
		deltas, remaining := planConsumption([]*models.CreditGrant{grantA, grantB}, 2)
		require.Len(t, deltas, 1)
		assert.Equal(t, grantA.ID, deltas[0].grantID)
		assert.Equal(t, int64(2), deltas[0].take)
		assert.Zero(t, remaining)
	})

	t.Run("Shortfall is reported as the remainder", func(t *testing.T) {
		deltas, remaining := planConsumption([]*models.CreditGrant{grantA, grantB}, 20)
		require.Len(t, deltas, 2)
		assert.Equal(t, int64(8), remaining)
	})

	t.Run("Exhausted grants are skipped", func(t *testing.T) {
		spent := &models.CreditGrant{ID: uuid.New(), Granted: 5, Used: 5}
		deltas, remaining := planConsumption([]*models.CreditGrant{spent, grantB}, 3)
		require.Len(t, deltas, 1)
		assert.Equal(t, grantB.ID, deltas[0].grantID)
		assert.Zero(t, remaining)
	})

	t.Run("Empty grant list leaves everything unplaced", func(t *testing.T) {
		deltas, remaining := planConsumption(nil, 7)
		assert.Empty(t, deltas)
		assert.Equal(t, int64(7), remaining)
	})
}

func TestGrantCredits(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Records a grant with no expiry", func(t *testing.T) {
		te := newTestEngine()
		te.grants.On("Create", ctx, te.tx, mock.MatchedBy(func(g *models.CreditGrant) bool {
			return g.UserID == userID && g.Granted == 100 && g.Used == 0 && g.ValidTill == nil
		})).Return(nil).Once()

		grant, err := te.engine.GrantCredits(ctx, te.tx, userID, 100, te.now, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(100), grant.Granted)
		te.grants.AssertExpectations(t)
	})

	t.Run("Negative amount is rejected", func(t *testing.T) {
		te := newTestEngine()
		_, err := te.engine.GrantCredits(ctx, te.tx, userID, -5, te.now, nil)
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})

	t.Run("Expiry before the start is rejected", func(t *testing.T) {
		te := newTestEngine()
		till := te.now.Add(-time.Hour)
		_, err := te.engine.GrantCredits(ctx, te.tx, userID, 10, te.now, &till)
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})
}

func TestConsumeCredits(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Debits soonest-to-expire grants first", func(t *testing.T) {
		te := newTestEngine()
		future := te.now.Add(30 * 24 * time.Hour)
		grantA := &models.CreditGrant{ID: uuid.New(), UserID: userID, Granted: 5, Used: 3, ValidFrom: te.now.Add(-time.Hour)}
		grantB := &models.CreditGrant{ID: uuid.New(), UserID: userID, Granted: 10, Used: 0, ValidFrom: te.now.Add(-time.Hour), ValidTill: &future}

		te.grants.On("ListAvailableForUpdate", ctx, te.tx, userID, te.now).
			Return([]*models.CreditGrant{grantA, grantB}, nil).Once()
		te.grants.On("AddUsed", ctx, te.tx, grantA.ID, int64(2)).Return(nil).Once()
		te.grants.On("AddUsed", ctx, te.tx, grantB.ID, int64(2)).Return(nil).Once()

		require.NoError(t, te.engine.ConsumeCredits(ctx, te.tx, userID, 4))
		te.grants.AssertExpectations(t)
	})

	t.Run("Shortfall fails the whole consume", func(t *testing.T) {
		te := newTestEngine()
		grantA := &models.CreditGrant{ID: uuid.New(), UserID: userID, Granted: 5, Used: 3, ValidFrom: te.now.Add(-time.Hour)}
		te.grants.On("ListAvailableForUpdate", ctx, te.tx, userID, te.now).
			Return([]*models.CreditGrant{grantA}, nil).Once()

		err := te.engine.ConsumeCredits(ctx, te.tx, userID, 20)
		assert.ErrorIs(t, err, models.ErrInsufficientCredits)
		te.grants.AssertNotCalled(t, "AddUsed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Zero amount is a no-op", func(t *testing.T) {
		te := newTestEngine()
		require.NoError(t, te.engine.ConsumeCredits(ctx, te.tx, userID, 0))
		te.grants.AssertNotCalled(t, "ListAvailableForUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Negative amount is rejected", func(t *testing.T) {
		te := newTestEngine()
		err := te.engine.ConsumeCredits(ctx, te.tx, userID, -1)
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})
}

func TestAvailableCredits(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	te := newTestEngine()
	te.grants.On("SumAvailable", ctx, te.tx, userID, te.now).Return(int64(42), nil).Once()

	total, err := te.engine.AvailableCredits(ctx, te.tx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), total)
	te.grants.AssertExpectations(t)
}
