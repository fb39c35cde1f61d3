package engine

import (
	"context"
	"fmt"
	"time"

	interfaces "fable-server/shared/interfaces"
	"fable-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// grantDelta - одно запланированное списание: с какого гранта и сколько.
type grantDelta struct {
	grantID uuid.UUID
	take    int64
}

// planConsumption распределяет amount по грантам в переданном порядке
// (сгорающие раньше — первыми, чтобы не потерять их остаток). Функция чистая:
// грантов не мутирует, хранилища не касается. Возвращает план списаний и
// неразмещенный остаток; remaining > 0 означает нехватку кредитов.
func planConsumption(grants []*models.CreditGrant, amount int64) (deltas []grantDelta, remaining int64) {
	remaining = amount
	for _, grant := range grants {
		if remaining == 0 {
			break
		}
		room := grant.Room()
		if room <= 0 {
			continue
		}
		take := room
		if take > remaining {
			take = remaining
		}
		deltas = append(deltas, grantDelta{grantID: grant.ID, take: take})
		remaining -= take
	}
	return deltas, remaining
}

// AvailableCredits returns the user's total remaining credits over available
// grants. Always reads fresh state: the figure is never cached.
func (e *Engine) AvailableCredits(ctx context.Context, tx interfaces.DBTX, userID uuid.UUID) (int64, error) {
	return e.grants.SumAvailable(ctx, tx, userID, e.clock.Now())
}

// GrantCredits records a new credit grant from a plan assignment or purchase.
// validTill == nil means the grant never expires.
func (e *Engine) GrantCredits(ctx context.Context, tx interfaces.DBTX, userID uuid.UUID, amount int64, validFrom time.Time, validTill *time.Time) (*models.CreditGrant, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: отрицательный размер гранта %d", models.ErrBadRequest, amount)
	}
	if validTill != nil && !validTill.After(validFrom) {
		return nil, fmt.Errorf("%w: validTill не позже validFrom", models.ErrBadRequest)
	}

	grant := &models.CreditGrant{
		ID:        uuid.New(),
		UserID:    userID,
		Granted:   amount,
		Used:      0,
		ValidFrom: validFrom,
		ValidTill: validTill,
		CreatedAt: e.clock.Now(),
	}
	if err := e.grants.Create(ctx, tx, grant); err != nil {
		return nil, err
	}

	creditsGrantedTotal.Add(float64(amount))
	e.logger.Info("Credits granted",
		zap.String("userID", userID.String()),
		zap.Int64("amount", amount))
	return grant, nil
}

// ConsumeCredits debits amount credits from the user's available grants,
// soonest-to-expire first. The whole walk runs inside one transaction: on a
// shortfall every increment rolls back and no grant is left mutated. A zero
// amount is a no-op success.
func (e *Engine) ConsumeCredits(ctx context.Context, tx interfaces.DBTX, userID uuid.UUID, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: отрицательная сумма списания %d", models.ErrBadRequest, amount)
	}
	if amount == 0 {
		return nil
	}

	err := e.inTx(ctx, tx, func(q interfaces.DBTX) error {
		grants, err := e.grants.ListAvailableForUpdate(ctx, q, userID, e.clock.Now())
		if err != nil {
			return err
		}

		deltas, remaining := planConsumption(grants, amount)
		if remaining > 0 {
			return fmt.Errorf("пользователь %s: не хватает %d кредитов: %w",
				userID, remaining, models.ErrInsufficientCredits)
		}

		for _, d := range deltas {
			if err := e.grants.AddUsed(ctx, q, d.grantID, d.take); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	creditsConsumedTotal.Add(float64(amount))
	e.logger.Debug("Credits consumed",
		zap.String("userID", userID.String()),
		zap.Int64("amount", amount))
	return nil
}

// ListGrants returns every grant of the user, newest first.
func (e *Engine) ListGrants(ctx context.Context, tx interfaces.DBTX, userID uuid.UUID) ([]*models.CreditGrant, error) {
	return e.grants.ListByUserID(ctx, tx, userID)
}
