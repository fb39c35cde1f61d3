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
var _ interfaces.NarrationRepository = (*pgNarrationRepository)(nil)

type pgNarrationRepository struct {
	db     interfaces.DBTX // Can be *pgxpool.Pool or pgx.Tx
	logger *zap.Logger
}

func NewPgNarrationRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.NarrationRepository {
	return &pgNarrationRepository{
		db:     db,
		logger: logger.Named("PgNarrationRepo"),
	}
}

func (r *pgNarrationRepository) querier(q interfaces.DBTX) interfaces.DBTX {
	if q == nil {
		return r.db
	}
	return q
}

const createNarrationQuery = `
INSERT INTO narrations (id, group_key, version, is_active, content, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`

const getNarrationByIDQuery = `
SELECT id, group_key, version, is_active, content, created_at, updated_at, deleted_at
FROM narrations
WHERE id = $1`

const listNarrationsByGroupQuery = `
SELECT id, group_key, version, is_active, content, created_at, updated_at, deleted_at
FROM narrations
WHERE group_key = $1 AND ($2 OR deleted_at IS NULL)
ORDER BY version ASC`

const getActiveNarrationQuery = `
SELECT id, group_key, version, is_active, content, created_at, updated_at, deleted_at
FROM narrations
WHERE group_key = $1 AND is_active AND deleted_at IS NULL`

// Максимум берется по ВСЕМ строкам группы, включая надгробия:
// номера версий никогда не переиспользуются.
const nextNarrationVersionQuery = `
SELECT COALESCE(MAX(version), 0) + 1
FROM narrations
WHERE group_key = $1`

const deactivateOtherNarrationsQuery = `
UPDATE narrations
SET is_active = FALSE, updated_at = $3
WHERE group_key = $1 AND id <> $2 AND is_active AND deleted_at IS NULL`

const deactivateAllNarrationsQuery = `
UPDATE narrations
SET is_active = FALSE, updated_at = $2
WHERE group_key = $1 AND is_active`

// Активация — одиночный условный UPDATE в духе
// "set active where no other active exists": запись проходит только когда
// строка живая и в группе нет другого активного живого собрата.
const activateNarrationQuery = `
UPDATE narrations n
SET is_active = TRUE, updated_at = $2
WHERE n.id = $1 AND n.deleted_at IS NULL
  AND NOT EXISTS (
      SELECT 1 FROM narrations o
      WHERE o.group_key = n.group_key AND o.id <> n.id
        AND o.is_active AND o.deleted_at IS NULL
  )`

const deactivateNarrationQuery = `
UPDATE narrations
SET is_active = FALSE, updated_at = $2
WHERE id = $1 AND deleted_at IS NULL`

// Надгробие всегда неактивно; снимаем флаг тем же оператором.
const tombstoneNarrationQuery = `
UPDATE narrations
SET deleted_at = $2, is_active = FALSE, updated_at = $2
WHERE id = $1 AND deleted_at IS NULL`

// Восстановленная версия остается неактивной; активация — отдельный шаг.
const restoreNarrationQuery = `
UPDATE narrations
SET deleted_at = NULL, updated_at = $2
WHERE id = $1 AND deleted_at IS NOT NULL`

const purgeNarrationQuery = `
DELETE FROM narrations
WHERE id = $1 AND deleted_at IS NOT NULL`

const purgeNarrationsOlderThanQuery = `
DELETE FROM narrations
WHERE deleted_at IS NOT NULL AND deleted_at < $1`

// Create inserts a new narration version record.
func (r *pgNarrationRepository) Create(ctx context.Context, querier interfaces.DBTX, narration *models.Narration) error {
	if narration.ID == uuid.Nil {
		narration.ID = uuid.New()
	}
	if narration.CreatedAt.IsZero() {
		narration.CreatedAt = time.Now().UTC()
	}

	_, err := r.querier(querier).Exec(ctx, createNarrationQuery,
		narration.ID,
		narration.GroupKey,
		narration.Version,
		narration.IsActive,
		narration.Content,
		narration.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation: номер версии уже занят гонкой
			r.logger.Warn("Concurrent writer took the version number", zap.String("groupKey", narration.GroupKey), zap.Int("version", narration.Version))
			return models.ErrConflict
		}
		r.logger.Error("Failed to create narration", zap.Error(err), zap.String("groupKey", narration.GroupKey), zap.Int("version", narration.Version))
		return fmt.Errorf("ошибка создания версии озвучки: %w", err)
	}
	r.logger.Debug("Narration created", zap.String("narrationID", narration.ID.String()), zap.Int("version", narration.Version))
	return nil
}

// GetByID retrieves a narration by ID, tombstoned rows included.
func (r *pgNarrationRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Narration, error) {
	narration := &models.Narration{}
	err := r.querier(querier).QueryRow(ctx, getNarrationByIDQuery, id).Scan(
		&narration.ID,
		&narration.GroupKey,
		&narration.Version,
		&narration.IsActive,
		&narration.Content,
		&narration.CreatedAt,
		&narration.UpdatedAt,
		&narration.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Narration not found by ID", zap.String("narrationID", id.String()))
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get narration by ID", zap.String("narrationID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения версии озвучки по ID %s: %w", id, err)
	}
	return narration, nil
}

// ListByGroupKey returns the narrations of a group sorted by version.
func (r *pgNarrationRepository) ListByGroupKey(ctx context.Context, querier interfaces.DBTX, groupKey string, includeDeleted bool) ([]*models.Narration, error) {
	rows, err := r.querier(querier).Query(ctx, listNarrationsByGroupQuery, groupKey, includeDeleted)
	if err != nil {
		r.logger.Error("Failed to list narrations", zap.String("groupKey", groupKey), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения списка версий озвучки: %w", err)
	}
	defer rows.Close()

	narrations := make([]*models.Narration, 0)
	for rows.Next() {
		narration := &models.Narration{}
		if err := rows.Scan(
			&narration.ID,
			&narration.GroupKey,
			&narration.Version,
			&narration.IsActive,
			&narration.Content,
			&narration.CreatedAt,
			&narration.UpdatedAt,
			&narration.DeletedAt,
		); err != nil {
			r.logger.Error("Failed to scan narration row", zap.String("groupKey", groupKey), zap.Error(err))
			return nil, fmt.Errorf("ошибка сканирования строки озвучки: %w", err)
		}
		narrations = append(narrations, narration)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк озвучки: %w", err)
	}
	return narrations, nil
}

// GetActive returns the single live active narration of a group.
func (r *pgNarrationRepository) GetActive(ctx context.Context, querier interfaces.DBTX, groupKey string) (*models.Narration, error) {
	narration := &models.Narration{}
	err := r.querier(querier).QueryRow(ctx, getActiveNarrationQuery, groupKey).Scan(
		&narration.ID,
		&narration.GroupKey,
		&narration.Version,
		&narration.IsActive,
		&narration.Content,
		&narration.CreatedAt,
		&narration.UpdatedAt,
		&narration.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get active narration", zap.String("groupKey", groupKey), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения активной версии озвучки: %w", err)
	}
	return narration, nil
}

// NextVersion allocates the next version number for a group.
func (r *pgNarrationRepository) NextVersion(ctx context.Context, querier interfaces.DBTX, groupKey string) (int, error) {
	var version int
	err := r.querier(querier).QueryRow(ctx, nextNarrationVersionQuery, groupKey).Scan(&version)
	if err != nil {
		r.logger.Error("Failed to allocate narration version", zap.String("groupKey", groupKey), zap.Error(err))
		return 0, fmt.Errorf("ошибка выделения номера версии: %w", err)
	}
	return version, nil
}

// DeactivateOthers clears is_active on every live member except the given one.
func (r *pgNarrationRepository) DeactivateOthers(ctx context.Context, querier interfaces.DBTX, groupKey string, exceptID uuid.UUID, updatedAt time.Time) (int64, error) {
	cmdTag, err := r.querier(querier).Exec(ctx, deactivateOtherNarrationsQuery, groupKey, exceptID, updatedAt)
	if err != nil {
		r.logger.Error("Failed to deactivate sibling narrations", zap.String("groupKey", groupKey), zap.Error(err))
		return 0, fmt.Errorf("ошибка деактивации соседних версий: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

// DeactivateAll clears is_active on every member of the group.
func (r *pgNarrationRepository) DeactivateAll(ctx context.Context, querier interfaces.DBTX, groupKey string, updatedAt time.Time) (int64, error) {
	cmdTag, err := r.querier(querier).Exec(ctx, deactivateAllNarrationsQuery, groupKey, updatedAt)
	if err != nil {
		r.logger.Error("Failed to deactivate narration group", zap.String("groupKey", groupKey), zap.Error(err))
		return 0, fmt.Errorf("ошибка деактивации группы версий: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

// Activate flags the narration active via the conditional single-statement write.
func (r *pgNarrationRepository) Activate(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, updatedAt time.Time) error {
	cmdTag, err := r.querier(querier).Exec(ctx, activateNarrationQuery, id, updatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation: указатель уже занят
			r.logger.Warn("Activation lost the race for the group pointer", zap.String("narrationID", id.String()))
			return models.ErrConflict
		}
		r.logger.Error("Failed to activate narration", zap.String("narrationID", id.String()), zap.Error(err))
		return fmt.Errorf("ошибка активации версии озвучки: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Либо строка удалена/не существует, либо другой живой собрат активен.
		return models.ErrConflict
	}
	r.logger.Debug("Narration activated", zap.String("narrationID", id.String()))
	return nil
}

// Deactivate clears is_active on a single live narration.
func (r *pgNarrationRepository) Deactivate(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, updatedAt time.Time) error {
	cmdTag, err := r.querier(querier).Exec(ctx, deactivateNarrationQuery, id, updatedAt)
	if err != nil {
		r.logger.Error("Failed to deactivate narration", zap.String("narrationID", id.String()), zap.Error(err))
		return fmt.Errorf("ошибка деактивации версии озвучки: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrConflict
	}
	return nil
}

// SetDeletedAt tombstones a live narration and clears its active flag.
func (r *pgNarrationRepository) SetDeletedAt(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, deletedAt time.Time) error {
	cmdTag, err := r.querier(querier).Exec(ctx, tombstoneNarrationQuery, id, deletedAt)
	if err != nil {
		r.logger.Error("Failed to tombstone narration", zap.String("narrationID", id.String()), zap.Error(err))
		return fmt.Errorf("ошибка мягкого удаления версии озвучки: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrConflict
	}
	r.logger.Debug("Narration tombstoned", zap.String("narrationID", id.String()))
	return nil
}

// ClearDeletedAt restores a tombstoned narration; it stays inactive.
func (r *pgNarrationRepository) ClearDeletedAt(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, updatedAt time.Time) error {
	cmdTag, err := r.querier(querier).Exec(ctx, restoreNarrationQuery, id, updatedAt)
	if err != nil {
		r.logger.Error("Failed to restore narration", zap.String("narrationID", id.String()), zap.Error(err))
		return fmt.Errorf("ошибка восстановления версии озвучки: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrConflict
	}
	r.logger.Debug("Narration restored", zap.String("narrationID", id.String()))
	return nil
}

// Purge physically removes a tombstoned narration.
func (r *pgNarrationRepository) Purge(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	cmdTag, err := r.querier(querier).Exec(ctx, purgeNarrationQuery, id)
	if err != nil {
		r.logger.Error("Failed to purge narration", zap.String("narrationID", id.String()), zap.Error(err))
		return fmt.Errorf("ошибка физического удаления версии озвучки: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrConflict
	}
	r.logger.Info("Narration purged", zap.String("narrationID", id.String()))
	return nil
}

// PurgeOlderThan removes every narration tombstoned before cutoff.
func (r *pgNarrationRepository) PurgeOlderThan(ctx context.Context, querier interfaces.DBTX, cutoff time.Time) (int64, error) {
	cmdTag, err := r.querier(querier).Exec(ctx, purgeNarrationsOlderThanQuery, cutoff)
	if err != nil {
		r.logger.Error("Failed to purge old narration tombstones", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, fmt.Errorf("ошибка очистки старых надгробий озвучки: %w", err)
	}
	purged := cmdTag.RowsAffected()
	if purged > 0 {
		r.logger.Info("Old narration tombstones purged", zap.Int64("count", purged), zap.Time("cutoff", cutoff))
	}
	return purged, nil
}
