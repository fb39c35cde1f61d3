package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	interfaces "fable-server/shared/interfaces"
	"fable-server/shared/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ interfaces.SceneRepository = (*pgSceneRepository)(nil)

type pgSceneRepository struct {
	db     interfaces.DBTX // Can be *pgxpool.Pool or pgx.Tx
	logger *zap.Logger
}

func NewPgSceneRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.SceneRepository {
	return &pgSceneRepository{
		db:     db,
		logger: logger.Named("PgSceneRepo"),
	}
}

// querier возвращает переданный исполнитель или пул по умолчанию.
// Операции вида read-then-conditional-write обязаны передавать tx.
func (r *pgSceneRepository) querier(q interfaces.DBTX) interfaces.DBTX {
	if q == nil {
		return r.db
	}
	return q
}

const createSceneQuery = `
INSERT INTO scenes (id, story_id, order_key, content, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)`

const getSceneByIDQuery = `
SELECT id, story_id, order_key, content, created_at, updated_at, deleted_at
FROM scenes
WHERE id = $1`

const listScenesByStoryQuery = `
SELECT id, story_id, order_key, content, created_at, updated_at, deleted_at
FROM scenes
WHERE story_id = $1 AND ($2 OR deleted_at IS NULL)
ORDER BY order_key ASC`

const maxSceneOrderKeyQuery = `
SELECT COALESCE(MAX(order_key), 0)
FROM scenes
WHERE story_id = $1 AND deleted_at IS NULL`

const updateSceneOrderKeyQuery = `
UPDATE scenes
SET order_key = $2, updated_at = $3
WHERE id = $1 AND deleted_at IS NULL`

const reassignSceneOrderKeysQuery = `
UPDATE scenes s
SET order_key = k.order_key, updated_at = $2
FROM (SELECT unnest($3::uuid[]) AS id, unnest($4::bigint[]) AS order_key) k
WHERE s.id = k.id AND s.story_id = $1 AND s.deleted_at IS NULL`

const tombstoneSceneQuery = `
UPDATE scenes
SET deleted_at = $2, updated_at = $2
WHERE id = $1 AND deleted_at IS NULL`

const restoreSceneQuery = `
UPDATE scenes
SET deleted_at = NULL, order_key = $2, updated_at = $3
WHERE id = $1 AND deleted_at IS NOT NULL`

const purgeSceneQuery = `
DELETE FROM scenes
WHERE id = $1 AND deleted_at IS NOT NULL`

const purgeScenesOlderThanQuery = `
DELETE FROM scenes
WHERE deleted_at IS NOT NULL AND deleted_at < $1`

// Create inserts a new scene record.
func (r *pgSceneRepository) Create(ctx context.Context, querier interfaces.DBTX, scene *models.Scene) error {
	if scene.ID == uuid.Nil {
		scene.ID = uuid.New()
	}
	if scene.CreatedAt.IsZero() {
		scene.CreatedAt = time.Now().UTC()
	}

	_, err := r.querier(querier).Exec(ctx, createSceneQuery,
		scene.ID,
		scene.StoryID,
		scene.OrderKey,
		scene.Content,
		scene.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation: ключ занят параллельной вставкой
			r.logger.Warn("Concurrent insert took the order key", zap.String("storyID", scene.StoryID.String()), zap.Int64("orderKey", scene.OrderKey))
			return models.ErrConflict
		}
		r.logger.Error("Failed to create scene", zap.Error(err), zap.String("storyID", scene.StoryID.String()), zap.Int64("orderKey", scene.OrderKey))
		return fmt.Errorf("ошибка создания сцены: %w", err)
	}
	r.logger.Debug("Scene created", zap.String("sceneID", scene.ID.String()), zap.Int64("orderKey", scene.OrderKey))
	return nil
}

// GetByID retrieves a scene by its unique ID, tombstoned rows included.
func (r *pgSceneRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Scene, error) {
	scene := &models.Scene{}
	err := r.querier(querier).QueryRow(ctx, getSceneByIDQuery, id).Scan(
		&scene.ID,
		&scene.StoryID,
		&scene.OrderKey,
		&scene.Content,
		&scene.CreatedAt,
		&scene.UpdatedAt,
		&scene.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Scene not found by ID", zap.String("sceneID", id.String()))
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get scene by ID", zap.String("sceneID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения сцены по ID %s: %w", id, err)
	}
	return scene, nil
}

// ListByStoryID returns scenes of a story ordered by order_key.
func (r *pgSceneRepository) ListByStoryID(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID, includeDeleted bool) ([]*models.Scene, error) {
	rows, err := r.querier(querier).Query(ctx, listScenesByStoryQuery, storyID, includeDeleted)
	if err != nil {
		r.logger.Error("Failed to list scenes", zap.String("storyID", storyID.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения списка сцен: %w", err)
	}
	defer rows.Close()

	scenes := make([]*models.Scene, 0)
	for rows.Next() {
		scene := &models.Scene{}
		if err := rows.Scan(
			&scene.ID,
			&scene.StoryID,
			&scene.OrderKey,
			&scene.Content,
			&scene.CreatedAt,
			&scene.UpdatedAt,
			&scene.DeletedAt,
		); err != nil {
			r.logger.Error("Failed to scan scene row", zap.String("storyID", storyID.String()), zap.Error(err))
			return nil, fmt.Errorf("ошибка сканирования строки сцены: %w", err)
		}
		scenes = append(scenes, scene)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк сцен: %w", err)
	}
	return scenes, nil
}

// MaxOrderKey returns the largest live order key of the story, 0 when empty.
func (r *pgSceneRepository) MaxOrderKey(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) (int64, error) {
	var maxKey int64
	err := r.querier(querier).QueryRow(ctx, maxSceneOrderKeyQuery, storyID).Scan(&maxKey)
	if err != nil {
		r.logger.Error("Failed to get max order key", zap.String("storyID", storyID.String()), zap.Error(err))
		return 0, fmt.Errorf("ошибка получения максимального ключа порядка: %w", err)
	}
	return maxKey, nil
}

// UpdateOrderKey moves a live scene to a new order key.
func (r *pgSceneRepository) UpdateOrderKey(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, orderKey int64, updatedAt time.Time) error {
	cmdTag, err := r.querier(querier).Exec(ctx, updateSceneOrderKeyQuery, id, orderKey, updatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation: ключ занят параллельной записью
			return models.ErrConflict
		}
		r.logger.Error("Failed to update scene order key", zap.String("sceneID", id.String()), zap.Int64("orderKey", orderKey), zap.Error(err))
		return fmt.Errorf("ошибка изменения ключа порядка сцены: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Сцена либо не существует, либо уже надгробие.
		return models.ErrConflict
	}
	return nil
}

// ReassignOrderKeys rewrites order keys for the listed live scenes in one statement.
func (r *pgSceneRepository) ReassignOrderKeys(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID, ids []uuid.UUID, keys []int64, updatedAt time.Time) error {
	if len(ids) != len(keys) {
		return fmt.Errorf("%w: количество идентификаторов и ключей не совпадает", models.ErrInvalidInput)
	}
	if len(ids) == 0 {
		return nil
	}

	cmdTag, err := r.querier(querier).Exec(ctx, reassignSceneOrderKeysQuery, storyID, updatedAt, ids, keys)
	if err != nil {
		r.logger.Error("Failed to reassign scene order keys", zap.String("storyID", storyID.String()), zap.Int("count", len(ids)), zap.Error(err))
		return fmt.Errorf("ошибка переиндексации ключей порядка: %w", err)
	}
	if cmdTag.RowsAffected() != int64(len(ids)) {
		// Часть сцен исчезла или была удалена между чтением и записью.
		r.logger.Warn("Reindex touched fewer rows than expected",
			zap.String("storyID", storyID.String()),
			zap.Int("expected", len(ids)),
			zap.Int64("updated", cmdTag.RowsAffected()))
		return models.ErrConflict
	}
	return nil
}

// SetDeletedAt tombstones a live scene.
func (r *pgSceneRepository) SetDeletedAt(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, deletedAt time.Time) error {
	cmdTag, err := r.querier(querier).Exec(ctx, tombstoneSceneQuery, id, deletedAt)
	if err != nil {
		r.logger.Error("Failed to tombstone scene", zap.String("sceneID", id.String()), zap.Error(err))
		return fmt.Errorf("ошибка мягкого удаления сцены: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrConflict
	}
	r.logger.Debug("Scene tombstoned", zap.String("sceneID", id.String()))
	return nil
}

// ClearDeletedAt restores a tombstoned scene with a fresh order key.
func (r *pgSceneRepository) ClearDeletedAt(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, orderKey int64, updatedAt time.Time) error {
	cmdTag, err := r.querier(querier).Exec(ctx, restoreSceneQuery, id, orderKey, updatedAt)
	if err != nil {
		r.logger.Error("Failed to restore scene", zap.String("sceneID", id.String()), zap.Error(err))
		return fmt.Errorf("ошибка восстановления сцены: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrConflict
	}
	r.logger.Debug("Scene restored", zap.String("sceneID", id.String()), zap.Int64("orderKey", orderKey))
	return nil
}

// Purge physically removes a tombstoned scene.
func (r *pgSceneRepository) Purge(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	cmdTag, err := r.querier(querier).Exec(ctx, purgeSceneQuery, id)
	if err != nil {
		r.logger.Error("Failed to purge scene", zap.String("sceneID", id.String()), zap.Error(err))
		return fmt.Errorf("ошибка физического удаления сцены: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrConflict
	}
	r.logger.Info("Scene purged", zap.String("sceneID", id.String()))
	return nil
}

// PurgeOlderThan removes every scene tombstoned before cutoff.
func (r *pgSceneRepository) PurgeOlderThan(ctx context.Context, querier interfaces.DBTX, cutoff time.Time) (int64, error) {
	cmdTag, err := r.querier(querier).Exec(ctx, purgeScenesOlderThanQuery, cutoff)
	if err != nil {
		r.logger.Error("Failed to purge old scene tombstones", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, fmt.Errorf("ошибка очистки старых надгробий сцен: %w", err)
	}
	purged := cmdTag.RowsAffected()
	if purged > 0 {
		r.logger.Info("Old scene tombstones purged", zap.Int64("count", purged), zap.Time("cutoff", cutoff))
	}
	return purged, nil
}
