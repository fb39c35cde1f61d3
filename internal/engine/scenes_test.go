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

func liveScene(storyID uuid.UUID, key int64) *models.Scene {
	return &models.Scene{
		ID:       uuid.New(),
		StoryID:  storyID,
		OrderKey: key,
	}
}

func TestAppendScene(t *testing.T) {
	ctx := context.Background()
	storyID := uuid.New()

	t.Run("Appends after the last key", func(t *testing.T) {
		te := newTestEngine()
		te.scenes.On("MaxOrderKey", ctx, te.tx, storyID).Return(int64(3000), nil).Once()
		te.scenes.On("Create", ctx, te.tx, mock.MatchedBy(func(s *models.Scene) bool {
			return s.StoryID == storyID && s.OrderKey == 4000 && s.ID != uuid.Nil
		})).Return(nil).Once()

		scene, err := te.engine.AppendScene(ctx, te.tx, storyID, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(4000), scene.OrderKey)
		te.scenes.AssertExpectations(t)
	})

	t.Run("First scene of an empty story gets GAP", func(t *testing.T) {
		te := newTestEngine()
		te.scenes.On("MaxOrderKey", ctx, te.tx, storyID).Return(int64(0), nil).Once()
		te.scenes.On("Create", ctx, te.tx, mock.MatchedBy(func(s *models.Scene) bool {
			return s.OrderKey == OrderKeyGap
		})).Return(nil).Once()

		scene, err := te.engine.AppendScene(ctx, te.tx, storyID, nil)
		require.NoError(t, err)
		assert.Equal(t, OrderKeyGap, scene.OrderKey)
		te.scenes.AssertExpectations(t)
	})
}

func TestInsertSceneAt(t *testing.T) {
	ctx := context.Background()
	storyID := uuid.New()

	t.Run("Negative position is a bad request", func(t *testing.T) {
		te := newTestEngine()
		_, err := te.engine.InsertSceneAt(ctx, te.tx, storyID, -1, nil)
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})

	t.Run("Insert at position 0 takes half of the first key", func(t *testing.T) {
		te := newTestEngine()
		live := []*models.Scene{
			liveScene(storyID, 1000),
			liveScene(storyID, 2000),
			liveScene(storyID, 3000),
		}
		te.scenes.On("ListByStoryID", ctx, te.tx, storyID, false).Return(live, nil).Once()
		te.scenes.On("Create", ctx, te.tx, mock.MatchedBy(func(s *models.Scene) bool {
			return s.OrderKey == 500
		})).Return(nil).Once()

		scene, err := te.engine.InsertSceneAt(ctx, te.tx, storyID, 0, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(500), scene.OrderKey)
		te.scenes.AssertExpectations(t)
	})

	t.Run("Exhausted gap triggers reindex then insert succeeds", func(t *testing.T) {
		te := newTestEngine()
		a := liveScene(storyID, 1000)
		b := liveScene(storyID, 1001)
		live := []*models.Scene{a, b}

		te.scenes.On("ListByStoryID", ctx, te.tx, storyID, false).Return(live, nil).Once()
		// Переиндексация восстанавливает шаг: [1000, 2000].
		te.scenes.On("ReassignOrderKeys", ctx, te.tx, storyID,
			[]uuid.UUID{a.ID, b.ID}, []int64{1000, 2000}, mock.AnythingOfType("time.Time"),
		).Return(nil).Once()
		// Отложенная вставка теперь попадает в середину нового зазора.
		te.scenes.On("Create", ctx, te.tx, mock.MatchedBy(func(s *models.Scene) bool {
			return s.OrderKey == 1500
		})).Return(nil).Once()

		scene, err := te.engine.InsertSceneAt(ctx, te.tx, storyID, 1, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1500), scene.OrderKey)
		te.scenes.AssertExpectations(t)
	})
}

func TestMoveScene(t *testing.T) {
	ctx := context.Background()
	storyID := uuid.New()

	t.Run("Moves scene to requested position", func(t *testing.T) {
		te := newTestEngine()
		a := liveScene(storyID, 1000)
		b := liveScene(storyID, 2000)
		c := liveScene(storyID, 3000)

		te.scenes.On("GetByID", ctx, te.tx, c.ID).Return(c, nil).Once()
		te.scenes.On("ListByStoryID", ctx, te.tx, storyID, false).
			Return([]*models.Scene{a, b, c}, nil).Once()
		// Позиция 0 среди остальных [1000, 2000] => 500.
		te.scenes.On("UpdateOrderKey", ctx, te.tx, c.ID, int64(500), mock.AnythingOfType("time.Time")).
			Return(nil).Once()

		moved, err := te.engine.MoveScene(ctx, te.tx, c.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(500), moved.OrderKey)
		te.scenes.AssertExpectations(t)
	})

	t.Run("Moving a tombstoned scene is a conflict", func(t *testing.T) {
		te := newTestEngine()
		deleted := liveScene(storyID, 1000)
		deletedAt := te.now.Add(-time.Hour)
		deleted.DeletedAt = &deletedAt

		te.scenes.On("GetByID", ctx, te.tx, deleted.ID).Return(deleted, nil).Once()

		_, err := te.engine.MoveScene(ctx, te.tx, deleted.ID, 0)
		assert.ErrorIs(t, err, models.ErrConflict)
	})

	t.Run("Moving an unknown scene is not found", func(t *testing.T) {
		te := newTestEngine()
		unknown := uuid.New()
		te.scenes.On("GetByID", ctx, te.tx, unknown).Return(nil, models.ErrNotFound).Once()

		_, err := te.engine.MoveScene(ctx, te.tx, unknown, 0)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestCurrentGroupKey(t *testing.T) {
	ctx := context.Background()
	storyID := uuid.New()
	te := newTestEngine()

	a := liveScene(storyID, 1000)
	b := liveScene(storyID, 2000)
	te.scenes.On("ListByStoryID", ctx, te.tx, storyID, false).
		Return([]*models.Scene{a, b}, nil).Twice()

	key1, err := te.engine.CurrentGroupKey(ctx, te.tx, storyID)
	require.NoError(t, err)
	key2, err := te.engine.CurrentGroupKey(ctx, te.tx, storyID)
	require.NoError(t, err)

	// Один и тот же порядок дает один и тот же ключ.
	assert.Equal(t, key1, key2)
	assert.NotEmpty(t, key1)

	// Другой порядок тех же сцен дает другой ключ.
	assert.NotEqual(t, key1, models.ComputeGroupKey([]uuid.UUID{b.ID, a.ID}))
}
