package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"fable-server/internal/engine"
	"fable-server/shared/interfaces/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

func TestSweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	retention := engine.RetentionWindow
	cutoff := now.Add(-retention)

	t.Run("Purges both kinds and expires grants", func(t *testing.T) {
		scenes := new(mocks.SceneRepository)
		narrations := new(mocks.NarrationRepository)
		grants := new(mocks.CreditGrantRepository)

		scenes.On("PurgeOlderThan", ctx, nil, cutoff).Return(int64(2), nil).Once()
		narrations.On("PurgeOlderThan", ctx, nil, cutoff).Return(int64(5), nil).Once()
		grants.On("MarkExpired", ctx, nil, now).Return(int64(1), nil).Once()

		s := New(scenes, narrations, grants, fixedClock{t: now}, retention, zerolog.Nop())
		require.NoError(t, s.Sweep(ctx))

		scenes.AssertExpectations(t)
		narrations.AssertExpectations(t)
		grants.AssertExpectations(t)
	})

	t.Run("Retention below the engine policy is clamped", func(t *testing.T) {
		scenes := new(mocks.SceneRepository)
		narrations := new(mocks.NarrationRepository)
		grants := new(mocks.CreditGrantRepository)

		// Запрошенный час игнорируется: cutoff считается от полного окна.
		scenes.On("PurgeOlderThan", ctx, nil, cutoff).Return(int64(0), nil).Once()
		narrations.On("PurgeOlderThan", ctx, nil, cutoff).Return(int64(0), nil).Once()
		grants.On("MarkExpired", ctx, nil, now).Return(int64(0), nil).Once()

		s := New(scenes, narrations, grants, fixedClock{t: now}, time.Hour, zerolog.Nop())
		require.NoError(t, s.Sweep(ctx))

		scenes.AssertExpectations(t)
		narrations.AssertExpectations(t)
	})

	t.Run("Stops the pass on the first failure", func(t *testing.T) {
		scenes := new(mocks.SceneRepository)
		narrations := new(mocks.NarrationRepository)
		grants := new(mocks.CreditGrantRepository)

		boom := errors.New("connection reset")
		scenes.On("PurgeOlderThan", ctx, nil, cutoff).Return(int64(0), boom).Once()

		s := New(scenes, narrations, grants, fixedClock{t: now}, retention, zerolog.Nop())
		err := s.Sweep(ctx)
		assert.ErrorIs(t, err, boom)
		narrations.AssertNotCalled(t, "PurgeOlderThan", mock.Anything, mock.Anything, mock.Anything)
		grants.AssertNotCalled(t, "MarkExpired", mock.Anything, mock.Anything, mock.Anything)
	})
}
