package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"fable-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateNarration(t *testing.T) {
	ctx := context.Background()
	groupKey := models.ComputeGroupKey([]uuid.UUID{uuid.New(), uuid.New()})
	content := json.RawMessage(`{"audio_url":"s3://bucket/take-3.ogg"}`)

	t.Run("Allocates the next version and stays inactive", func(t *testing.T) {
		te := newTestEngine()
		te.narrations.On("NextVersion", ctx, te.tx, groupKey).Return(3, nil).Once()
		te.narrations.On("Create", ctx, te.tx, mock.MatchedBy(func(n *models.Narration) bool {
			return n.GroupKey == groupKey && n.Version == 3 && !n.IsActive
		})).Return(nil).Once()

		narration, err := te.engine.CreateNarration(ctx, te.tx, groupKey, content, false)
		require.NoError(t, err)
		assert.Equal(t, 3, narration.Version)
		assert.False(t, narration.IsActive)
		te.narrations.AssertNotCalled(t, "Activate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		te.narrations.AssertExpectations(t)
	})

	t.Run("Activate flag takes over the pointer in the same transaction", func(t *testing.T) {
		te := newTestEngine()
		te.narrations.On("NextVersion", ctx, te.tx, groupKey).Return(4, nil).Once()
		te.narrations.On("Create", ctx, te.tx, mock.AnythingOfType("*models.Narration")).Return(nil).Once()
		te.narrations.On("DeactivateOthers", ctx, te.tx, groupKey, mock.AnythingOfType("uuid.UUID"), te.now).Return(int64(1), nil).Once()
		te.narrations.On("Activate", ctx, te.tx, mock.AnythingOfType("uuid.UUID"), te.now).Return(nil).Once()

		narration, err := te.engine.CreateNarration(ctx, te.tx, groupKey, content, true)
		require.NoError(t, err)
		assert.True(t, narration.IsActive)
		te.narrations.AssertExpectations(t)
	})

	t.Run("Empty group key is rejected", func(t *testing.T) {
		te := newTestEngine()
		_, err := te.engine.CreateNarration(ctx, te.tx, "", content, false)
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})
}

func TestActivateNarration(t *testing.T) {
	ctx := context.Background()
	groupKey := "7f2c"

	t.Run("Deactivates siblings and flips the pointer", func(t *testing.T) {
		te := newTestEngine()
		narration := &models.Narration{ID: uuid.New(), GroupKey: groupKey, Version: 2}
		te.narrations.On("GetByID", ctx, te.tx, narration.ID).Return(narration, nil).Once()
		te.narrations.On("DeactivateOthers", ctx, te.tx, groupKey, narration.ID, te.now).Return(int64(1), nil).Once()
		te.narrations.On("Activate", ctx, te.tx, narration.ID, te.now).Return(nil).Once()

		activated, err := te.engine.ActivateNarration(ctx, te.tx, narration.ID)
		require.NoError(t, err)
		assert.True(t, activated.IsActive)
		te.narrations.AssertExpectations(t)
	})

	t.Run("Tombstoned narration cannot take the pointer", func(t *testing.T) {
		te := newTestEngine()
		deletedAt := te.now.Add(-time.Hour)
		narration := &models.Narration{ID: uuid.New(), GroupKey: groupKey, Version: 2, DeletedAt: &deletedAt}
		te.narrations.On("GetByID", ctx, te.tx, narration.ID).Return(narration, nil).Once()

		_, err := te.engine.ActivateNarration(ctx, te.tx, narration.ID)
		assert.ErrorIs(t, err, models.ErrArtifactInactive)
		te.narrations.AssertNotCalled(t, "Activate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Lost activation race surfaces as a conflict", func(t *testing.T) {
		te := newTestEngine()
		narration := &models.Narration{ID: uuid.New(), GroupKey: groupKey, Version: 2}
		te.narrations.On("GetByID", ctx, te.tx, narration.ID).Return(narration, nil).Once()
		te.narrations.On("DeactivateOthers", ctx, te.tx, groupKey, narration.ID, te.now).Return(int64(0), nil).Once()
		te.narrations.On("Activate", ctx, te.tx, narration.ID, te.now).Return(models.ErrConflict).Once()

		_, err := te.engine.ActivateNarration(ctx, te.tx, narration.ID)
		assert.ErrorIs(t, err, models.ErrConflict)
	})
}

func TestDeactivateNarration(t *testing.T) {
	ctx := context.Background()

	t.Run("Leaves the group with no active version", func(t *testing.T) {
		te := newTestEngine()
		narration := &models.Narration{ID: uuid.New(), GroupKey: "g", Version: 1, IsActive: true}
		te.narrations.On("GetByID", ctx, te.tx, narration.ID).Return(narration, nil).Once()
		te.narrations.On("Deactivate", ctx, te.tx, narration.ID, te.now).Return(nil).Once()

		require.NoError(t, te.engine.DeactivateNarration(ctx, te.tx, narration.ID))
		te.narrations.AssertExpectations(t)
	})

	t.Run("Tombstoned narration is rejected", func(t *testing.T) {
		te := newTestEngine()
		deletedAt := te.now.Add(-time.Hour)
		narration := &models.Narration{ID: uuid.New(), GroupKey: "g", Version: 1, DeletedAt: &deletedAt}
		te.narrations.On("GetByID", ctx, te.tx, narration.ID).Return(narration, nil).Once()

		err := te.engine.DeactivateNarration(ctx, te.tx, narration.ID)
		assert.ErrorIs(t, err, models.ErrArtifactInactive)
	})
}

func TestDeactivateNarrationGroup(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()
	te.narrations.On("DeactivateAll", ctx, te.tx, "stale-group", te.now).Return(int64(3), nil).Once()

	cleared, err := te.engine.DeactivateNarrationGroup(ctx, te.tx, "stale-group")
	require.NoError(t, err)
	assert.Equal(t, int64(3), cleared)
	te.narrations.AssertExpectations(t)
}
