package engine

import (
	"context"
	"encoding/json"
	"fmt"

	interfaces "fable-server/shared/interfaces"
	"fable-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AppendScene creates a new scene at the end of the story's sequence.
func (e *Engine) AppendScene(ctx context.Context, tx interfaces.DBTX, storyID uuid.UUID, content json.RawMessage) (*models.Scene, error) {
	var scene *models.Scene
	err := e.inTx(ctx, tx, func(q interfaces.DBTX) error {
		lastKey, err := e.scenes.MaxOrderKey(ctx, q, storyID)
		if err != nil {
			return err
		}
		scene = &models.Scene{
			ID:        uuid.New(),
			StoryID:   storyID,
			OrderKey:  nextAppendKey(lastKey),
			Content:   content,
			CreatedAt: e.clock.Now(),
		}
		return e.scenes.Create(ctx, q, scene)
	})
	if err != nil {
		return nil, err
	}
	scenesAppendedTotal.Inc()
	return scene, nil
}

// InsertSceneAt creates a new scene at the given position among the story's
// live scenes. Position 0 inserts before the first scene; a position at or
// past the end is equivalent to an append. When the integer gap around the
// position is exhausted, the story is reindexed inside the same transaction
// and the key is computed again.
func (e *Engine) InsertSceneAt(ctx context.Context, tx interfaces.DBTX, storyID uuid.UUID, position int, content json.RawMessage) (*models.Scene, error) {
	if position < 0 {
		return nil, fmt.Errorf("%w: отрицательная позиция %d", models.ErrBadRequest, position)
	}

	var scene *models.Scene
	err := e.inTx(ctx, tx, func(q interfaces.DBTX) error {
		live, err := e.scenes.ListByStoryID(ctx, q, storyID, false)
		if err != nil {
			return err
		}

		key, needsReindex := keyForPosition(orderKeysOf(live), position)
		if needsReindex {
			if live, err = e.reindexStory(ctx, q, storyID, live); err != nil {
				return err
			}
			// После переиндексации зазоры восстановлены и вычисление не может
			// потребовать повторной переиндексации.
			key, _ = keyForPosition(orderKeysOf(live), position)
		}

		scene = &models.Scene{
			ID:        uuid.New(),
			StoryID:   storyID,
			OrderKey:  key,
			Content:   content,
			CreatedAt: e.clock.Now(),
		}
		return e.scenes.Create(ctx, q, scene)
	})
	if err != nil {
		return nil, err
	}
	scenesInsertedTotal.Inc()
	return scene, nil
}

// MoveScene moves a live scene to the given position among the story's other
// live scenes (the position it will occupy in the final order).
func (e *Engine) MoveScene(ctx context.Context, tx interfaces.DBTX, sceneID uuid.UUID, position int) (*models.Scene, error) {
	if position < 0 {
		return nil, fmt.Errorf("%w: отрицательная позиция %d", models.ErrBadRequest, position)
	}

	var moved *models.Scene
	err := e.inTx(ctx, tx, func(q interfaces.DBTX) error {
		scene, err := e.scenes.GetByID(ctx, q, sceneID)
		if err != nil {
			return err
		}
		if scene.Lifecycle() != models.LifecycleActive {
			return fmt.Errorf("перемещение удаленной сцены %s: %w", sceneID, models.ErrConflict)
		}

		live, err := e.scenes.ListByStoryID(ctx, q, scene.StoryID, false)
		if err != nil {
			return err
		}
		others := orderKeysExcluding(live, sceneID)

		key, needsReindex := keyForPosition(others, position)
		if needsReindex {
			if live, err = e.reindexStory(ctx, q, scene.StoryID, live); err != nil {
				return err
			}
			others = orderKeysExcluding(live, sceneID)
			key, _ = keyForPosition(others, position)
		}

		now := e.clock.Now()
		if err := e.scenes.UpdateOrderKey(ctx, q, sceneID, key, now); err != nil {
			return err
		}
		scene.OrderKey = key
		scene.UpdatedAt = now
		moved = scene
		return nil
	})
	if err != nil {
		return nil, err
	}
	scenesMovedTotal.Inc()
	return moved, nil
}

// ListScenes returns the story's scenes in sequence order.
func (e *Engine) ListScenes(ctx context.Context, tx interfaces.DBTX, storyID uuid.UUID, includeDeleted bool) ([]*models.Scene, error) {
	return e.scenes.ListByStoryID(ctx, tx, storyID, includeDeleted)
}

// CurrentGroupKey derives the narration group key for the story's current
// live scene ordering. Any mutation of the sequence yields a different key.
func (e *Engine) CurrentGroupKey(ctx context.Context, tx interfaces.DBTX, storyID uuid.UUID) (string, error) {
	live, err := e.scenes.ListByStoryID(ctx, tx, storyID, false)
	if err != nil {
		return "", err
	}
	ids := make([]uuid.UUID, len(live))
	for i, s := range live {
		ids[i] = s.ID
	}
	return models.ComputeGroupKey(ids), nil
}

// reindexStory перенумеровывает живые сцены истории ключами (i+1)*GAP,
// сохраняя их порядок, и возвращает обновленный список. Надгробия ключей не
// получают никогда.
func (e *Engine) reindexStory(ctx context.Context, q interfaces.DBTX, storyID uuid.UUID, live []*models.Scene) ([]*models.Scene, error) {
	ids := make([]uuid.UUID, len(live))
	for i, s := range live {
		ids[i] = s.ID
	}
	keys := reindexedKeys(len(live))

	now := e.clock.Now()
	if err := e.scenes.ReassignOrderKeys(ctx, q, storyID, ids, keys, now); err != nil {
		return nil, err
	}
	for i, s := range live {
		s.OrderKey = keys[i]
		s.UpdatedAt = now
	}

	storiesReindexedTotal.Inc()
	e.logger.Info("Story scenes reindexed",
		zap.String("storyID", storyID.String()),
		zap.Int("sceneCount", len(live)))
	return live, nil
}

func orderKeysOf(scenes []*models.Scene) []int64 {
	keys := make([]int64, len(scenes))
	for i, s := range scenes {
		keys[i] = s.OrderKey
	}
	return keys
}

func orderKeysExcluding(scenes []*models.Scene, exclude uuid.UUID) []int64 {
	keys := make([]int64, 0, len(scenes))
	for _, s := range scenes {
		if s.ID == exclude {
			continue
		}
		keys = append(keys, s.OrderKey)
	}
	return keys
}
