// Package engine реализует движок консистентности версионируемых ресурсов:
// порядковые ключи сцен, жизненный цикл надгробий, инвариант единственной
// активной версии и FIFO-списание кредитов. Все операции вида
// read-then-conditional-write выполняются внутри одной атомарной транзакции.
package engine

import (
	"context"
	"time"

	"fable-server/pkg/database"
	interfaces "fable-server/shared/interfaces"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// RetentionWindow - срок хранения надгробий до физического удаления.
const RetentionWindow = 30 * 24 * time.Hour

// Engine is the single enforcement point for the ordering, single-active and
// ledger invariants. It performs no authorization: ownership of stories,
// narrations and grants must be verified by the caller before any call here.
type Engine struct {
	db         *database.Database
	scenes     interfaces.SceneRepository
	narrations interfaces.NarrationRepository
	grants     interfaces.CreditGrantRepository
	clock      interfaces.Clock
	logger     *zap.Logger
}

func NewEngine(
	db *database.Database,
	scenes interfaces.SceneRepository,
	narrations interfaces.NarrationRepository,
	grants interfaces.CreditGrantRepository,
	clock interfaces.Clock,
	logger *zap.Logger,
) *Engine {
	if clock == nil {
		clock = interfaces.SystemClock{}
	}
	return &Engine{
		db:         db,
		scenes:     scenes,
		narrations: narrations,
		grants:     grants,
		clock:      clock,
		logger:     logger.Named("Engine"),
	}
}

// RunInTx открывает unit of work и выполняет fn внутри него. Вложенный вызов
// не поддерживается: код внутри транзакции передает полученный handle дальше.
func (e *Engine) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return e.db.ExecuteInTransaction(ctx, fn)
}

// inTx выполняет fn с переданным handle или, если handle нет, открывает
// собственный unit of work. Так каждая операция движка принимает необязательный
// транзакционный handle: без него она сама становится атомарной единицей.
func (e *Engine) inTx(ctx context.Context, tx interfaces.DBTX, fn func(q interfaces.DBTX) error) error {
	if tx != nil {
		return fn(tx)
	}
	return e.db.ExecuteInTransaction(ctx, func(ptx pgx.Tx) error {
		return fn(ptx)
	})
}
