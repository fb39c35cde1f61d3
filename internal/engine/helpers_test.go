package engine

import (
	"time"

	interfaces "fable-server/shared/interfaces"
	"fable-server/shared/interfaces/mocks"

	"go.uber.org/zap"
)

// fixedClock returns a predetermined instant, so expiry and retention
// comparisons in tests are deterministic.
type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

// stubTx - пустой транзакционный handle для unit-тестов: репозитории
// замоканы, поэтому его методы никогда не вызываются.
type stubTx struct {
	interfaces.DBTX
}

type testEngine struct {
	engine     *Engine
	scenes     *mocks.SceneRepository
	narrations *mocks.NarrationRepository
	grants     *mocks.CreditGrantRepository
	tx         interfaces.DBTX
	now        time.Time
}

func newTestEngine() *testEngine {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	scenes := new(mocks.SceneRepository)
	narrations := new(mocks.NarrationRepository)
	grants := new(mocks.CreditGrantRepository)
	eng := NewEngine(nil, scenes, narrations, grants, fixedClock{t: now}, zap.NewNop())
	return &testEngine{
		engine:     eng,
		scenes:     scenes,
		narrations: narrations,
		grants:     grants,
		tx:         stubTx{},
		now:        now,
	}
}
