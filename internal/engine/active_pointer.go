package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	interfaces "fable-server/shared/interfaces"
	"fable-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateNarration creates the next version of a narration group. The version
// number is allocated inside the same transaction as the insert and is never
// reused. When activate is set, the new version atomically takes over the
// group's active pointer from any live sibling.
func (e *Engine) CreateNarration(ctx context.Context, tx interfaces.DBTX, groupKey string, content json.RawMessage, activate bool) (*models.Narration, error) {
	if groupKey == "" {
		return nil, fmt.Errorf("%w: пустой groupKey", models.ErrBadRequest)
	}

	var narration *models.Narration
	err := e.inTx(ctx, tx, func(q interfaces.DBTX) error {
		version, err := e.narrations.NextVersion(ctx, q, groupKey)
		if err != nil {
			return err
		}

		now := e.clock.Now()
		narration = &models.Narration{
			ID:        uuid.New(),
			GroupKey:  groupKey,
			Version:   version,
			IsActive:  false,
			Content:   content,
			CreatedAt: now,
		}
		if err := e.narrations.Create(ctx, q, narration); err != nil {
			return err
		}

		if activate {
			if err := e.activateInTx(ctx, q, narration); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	narrationsCreatedTotal.Inc()
	e.logger.Debug("Narration version created",
		zap.String("groupKey", groupKey),
		zap.Int("version", narration.Version),
		zap.Bool("active", narration.IsActive))
	return narration, nil
}

// ActivateNarration makes the narration its group's single active version,
// deactivating any live sibling in the same transaction. Activating a
// tombstoned narration fails; the call never silently no-ops.
func (e *Engine) ActivateNarration(ctx context.Context, tx interfaces.DBTX, narrationID uuid.UUID) (*models.Narration, error) {
	var narration *models.Narration
	err := e.inTx(ctx, tx, func(q interfaces.DBTX) error {
		var err error
		narration, err = e.narrations.GetByID(ctx, q, narrationID)
		if err != nil {
			return err
		}
		return e.activateInTx(ctx, q, narration)
	})
	if err != nil {
		return nil, err
	}
	return narration, nil
}

// activateInTx переключает активный указатель группы на narration. Сначала
// гасим живых собратьев, затем условная запись активации: она проходит только
// если других активных не осталось. Параллельная активация в той же группе
// либо сериализуется за этой транзакцией, либо проигрывает условию записи и
// получает retryable конфликт; частичный уникальный индекс по
// (group_key) WHERE is_active страхует инвариант на уровне БД.
func (e *Engine) activateInTx(ctx context.Context, q interfaces.DBTX, narration *models.Narration) error {
	if narration.Lifecycle() == models.LifecycleTombstoned {
		return fmt.Errorf("версия озвучки %s: %w", narration.ID, models.ErrArtifactInactive)
	}

	now := e.clock.Now()
	cleared, err := e.narrations.DeactivateOthers(ctx, q, narration.GroupKey, narration.ID, now)
	if err != nil {
		return err
	}

	if err := e.narrations.Activate(ctx, q, narration.ID, now); err != nil {
		if errors.Is(err, models.ErrConflict) {
			activationConflictsTotal.Inc()
		}
		return err
	}

	narration.IsActive = true
	narration.UpdatedAt = now
	narrationsActivatedTotal.Inc()
	e.logger.Debug("Narration activated",
		zap.String("narrationID", narration.ID.String()),
		zap.String("groupKey", narration.GroupKey),
		zap.Int64("siblingsDeactivated", cleared))
	return nil
}

// DeactivateNarration explicitly clears the active flag of one narration,
// leaving its group with no active version.
func (e *Engine) DeactivateNarration(ctx context.Context, tx interfaces.DBTX, narrationID uuid.UUID) error {
	return e.inTx(ctx, tx, func(q interfaces.DBTX) error {
		narration, err := e.narrations.GetByID(ctx, q, narrationID)
		if err != nil {
			return err
		}
		if narration.Lifecycle() == models.LifecycleTombstoned {
			return fmt.Errorf("версия озвучки %s: %w", narrationID, models.ErrArtifactInactive)
		}
		return e.narrations.Deactivate(ctx, q, narrationID, e.clock.Now())
	})
}

// DeactivateNarrationGroup clears the active flag on every member of the
// group. Used when the ordering the group was generated against no longer
// exists and the whole group is stale.
func (e *Engine) DeactivateNarrationGroup(ctx context.Context, tx interfaces.DBTX, groupKey string) (int64, error) {
	var cleared int64
	err := e.inTx(ctx, tx, func(q interfaces.DBTX) error {
		var err error
		cleared, err = e.narrations.DeactivateAll(ctx, q, groupKey, e.clock.Now())
		return err
	})
	if err != nil {
		return 0, err
	}
	if cleared > 0 {
		e.logger.Info("Narration group deactivated",
			zap.String("groupKey", groupKey),
			zap.Int64("cleared", cleared))
	}
	return cleared, nil
}

// ActiveNarration returns the group's single live active version, or
// models.ErrNotFound when the group has none.
func (e *Engine) ActiveNarration(ctx context.Context, tx interfaces.DBTX, groupKey string) (*models.Narration, error) {
	return e.narrations.GetActive(ctx, tx, groupKey)
}

// ListNarrations returns the group's versions in version order.
func (e *Engine) ListNarrations(ctx context.Context, tx interfaces.DBTX, groupKey string, includeDeleted bool) ([]*models.Narration, error) {
	return e.narrations.ListByGroupKey(ctx, tx, groupKey, includeDeleted)
}
