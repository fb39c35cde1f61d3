package engine

import (
	"context"
	"fmt"
	"time"

	interfaces "fable-server/shared/interfaces"
	"fable-server/shared/models"

	"github.com/google/uuid"
)

// SceneDeleteGuard - предусловие удаления сцены, которое заполняет вызывающая
// сторона (например, "ни одна группа не ссылается на сцену как на активную").
// Движок сам каскадов не выполняет: guard либо разрешает удаление, либо
// операция завершается models.ErrDeleteBlocked.
type SceneDeleteGuard func(ctx context.Context, q interfaces.DBTX, scene *models.Scene) (bool, error)

// NarrationDeleteGuard - то же предусловие для версий озвучки.
type NarrationDeleteGuard func(ctx context.Context, q interfaces.DBTX, narration *models.Narration) (bool, error)

// SoftDeleteScene tombstones a live scene. Deleting an already tombstoned
// scene is a conflict, not a no-op.
func (e *Engine) SoftDeleteScene(ctx context.Context, tx interfaces.DBTX, sceneID uuid.UUID, guards ...SceneDeleteGuard) error {
	err := e.inTx(ctx, tx, func(q interfaces.DBTX) error {
		scene, err := e.scenes.GetByID(ctx, q, sceneID)
		if err != nil {
			return err
		}
		if scene.Lifecycle() == models.LifecycleTombstoned {
			return fmt.Errorf("сцена %s: %w", sceneID, models.ErrAlreadyDeleted)
		}
		for _, guard := range guards {
			ok, err := guard(ctx, q, scene)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("сцена %s: %w", sceneID, models.ErrDeleteBlocked)
			}
		}
		return e.scenes.SetDeletedAt(ctx, q, sceneID, e.clock.Now())
	})
	if err != nil {
		return err
	}
	tombstonesSetTotal.WithLabelValues("scene").Inc()
	return nil
}

// RestoreScene clears the tombstone of a scene. The restored scene receives a
// fresh key at the end of the sequence: its original position may be occupied
// by now or be semantically stale.
func (e *Engine) RestoreScene(ctx context.Context, tx interfaces.DBTX, sceneID uuid.UUID) (*models.Scene, error) {
	var restored *models.Scene
	err := e.inTx(ctx, tx, func(q interfaces.DBTX) error {
		scene, err := e.scenes.GetByID(ctx, q, sceneID)
		if err != nil {
			return err
		}
		if scene.Lifecycle() != models.LifecycleTombstoned {
			return fmt.Errorf("сцена %s: %w", sceneID, models.ErrNotDeleted)
		}

		lastKey, err := e.scenes.MaxOrderKey(ctx, q, scene.StoryID)
		if err != nil {
			return err
		}
		newKey := nextAppendKey(lastKey)

		now := e.clock.Now()
		if err := e.scenes.ClearDeletedAt(ctx, q, sceneID, newKey, now); err != nil {
			return err
		}
		scene.DeletedAt = nil
		scene.OrderKey = newKey
		scene.UpdatedAt = now
		restored = scene
		return nil
	})
	if err != nil {
		return nil, err
	}
	tombstonesClearedTotal.WithLabelValues("scene").Inc()
	return restored, nil
}

// PurgeScene physically removes a tombstoned scene after the retention window.
// Irreversible.
func (e *Engine) PurgeScene(ctx context.Context, tx interfaces.DBTX, sceneID uuid.UUID) error {
	err := e.inTx(ctx, tx, func(q interfaces.DBTX) error {
		scene, err := e.scenes.GetByID(ctx, q, sceneID)
		if err != nil {
			return err
		}
		if err := e.checkPurgeable(scene.DeletedAt); err != nil {
			return fmt.Errorf("сцена %s: %w", sceneID, err)
		}
		return e.scenes.Purge(ctx, q, sceneID)
	})
	if err != nil {
		return err
	}
	tombstonesPurgedTotal.WithLabelValues("scene").Inc()
	return nil
}

// SoftDeleteNarration tombstones a live narration. A narration still holding
// the group's active pointer cannot be deleted: the pointer must be cleared
// first (explicitly, via Deactivate or ActivateNarration on a sibling).
func (e *Engine) SoftDeleteNarration(ctx context.Context, tx interfaces.DBTX, narrationID uuid.UUID, guards ...NarrationDeleteGuard) error {
	err := e.inTx(ctx, tx, func(q interfaces.DBTX) error {
		narration, err := e.narrations.GetByID(ctx, q, narrationID)
		if err != nil {
			return err
		}
		if narration.Lifecycle() == models.LifecycleTombstoned {
			return fmt.Errorf("версия озвучки %s: %w", narrationID, models.ErrAlreadyDeleted)
		}
		if narration.IsActive {
			return fmt.Errorf("версия озвучки %s является активной: %w", narrationID, models.ErrDeleteBlocked)
		}
		for _, guard := range guards {
			ok, err := guard(ctx, q, narration)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("версия озвучки %s: %w", narrationID, models.ErrDeleteBlocked)
			}
		}
		return e.narrations.SetDeletedAt(ctx, q, narrationID, e.clock.Now())
	})
	if err != nil {
		return err
	}
	tombstonesSetTotal.WithLabelValues("narration").Inc()
	return nil
}

// RestoreNarration clears the tombstone of a narration. The restored version
// stays inactive; reactivation is always an explicit separate call.
func (e *Engine) RestoreNarration(ctx context.Context, tx interfaces.DBTX, narrationID uuid.UUID) (*models.Narration, error) {
	var restored *models.Narration
	err := e.inTx(ctx, tx, func(q interfaces.DBTX) error {
		narration, err := e.narrations.GetByID(ctx, q, narrationID)
		if err != nil {
			return err
		}
		if narration.Lifecycle() != models.LifecycleTombstoned {
			return fmt.Errorf("версия озвучки %s: %w", narrationID, models.ErrNotDeleted)
		}

		now := e.clock.Now()
		if err := e.narrations.ClearDeletedAt(ctx, q, narrationID, now); err != nil {
			return err
		}
		narration.DeletedAt = nil
		narration.IsActive = false
		narration.UpdatedAt = now
		restored = narration
		return nil
	})
	if err != nil {
		return nil, err
	}
	tombstonesClearedTotal.WithLabelValues("narration").Inc()
	return restored, nil
}

// PurgeNarration physically removes a tombstoned narration after the
// retention window. The version number remains burned for its group.
func (e *Engine) PurgeNarration(ctx context.Context, tx interfaces.DBTX, narrationID uuid.UUID) error {
	err := e.inTx(ctx, tx, func(q interfaces.DBTX) error {
		narration, err := e.narrations.GetByID(ctx, q, narrationID)
		if err != nil {
			return err
		}
		if err := e.checkPurgeable(narration.DeletedAt); err != nil {
			return fmt.Errorf("версия озвучки %s: %w", narrationID, err)
		}
		return e.narrations.Purge(ctx, q, narrationID)
	})
	if err != nil {
		return err
	}
	tombstonesPurgedTotal.WithLabelValues("narration").Inc()
	return nil
}

// checkPurgeable проверяет, что запись является надгробием и срок хранения
// истек. Purge разрешен только после окна retention.
func (e *Engine) checkPurgeable(deletedAt *time.Time) error {
	if deletedAt == nil {
		return models.ErrNotDeleted
	}
	if e.clock.Now().Sub(*deletedAt) < RetentionWindow {
		return models.ErrRetentionActive
	}
	return nil
}
