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

	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ interfaces.CreditGrantRepository = (*pgCreditGrantRepository)(nil)

type pgCreditGrantRepository struct {
	db     interfaces.DBTX // Can be *pgxpool.Pool or pgx.Tx
	logger *zap.Logger
}

func NewPgCreditGrantRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.CreditGrantRepository {
	return &pgCreditGrantRepository{
		db:     db,
		logger: logger.Named("PgCreditGrantRepo"),
	}
}

func (r *pgCreditGrantRepository) querier(q interfaces.DBTX) interfaces.DBTX {
	if q == nil {
		return r.db
	}
	return q
}

const createCreditGrantQuery = `
INSERT INTO credit_grants (id, user_id, granted, used, valid_from, valid_till, is_expired, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const getCreditGrantByIDQuery = `
SELECT id, user_id, granted, used, valid_from, valid_till, is_expired, created_at
FROM credit_grants
WHERE id = $1`

const listCreditGrantsByUserQuery = `
SELECT id, user_id, granted, used, valid_from, valid_till, is_expired, created_at
FROM credit_grants
WHERE user_id = $1
ORDER BY created_at DESC`

// Сортировка: сгорающие раньше — первыми (valid_till NULLS LAST), затем по
// возрасту. FOR UPDATE сериализует параллельные списания одного пользователя.
const listAvailableGrantsForUpdateQuery = `
SELECT id, user_id, granted, used, valid_from, valid_till, is_expired, created_at
FROM credit_grants
WHERE user_id = $1
  AND NOT is_expired
  AND valid_from <= $2
  AND (valid_till IS NULL OR valid_till > $2)
ORDER BY valid_till ASC NULLS LAST, created_at ASC
FOR UPDATE`

const addUsedCreditGrantQuery = `
UPDATE credit_grants
SET used = used + $2
WHERE id = $1 AND used + $2 <= granted`

const sumAvailableCreditsQuery = `
SELECT COALESCE(SUM(GREATEST(granted - used, 0)), 0)
FROM credit_grants
WHERE user_id = $1
  AND NOT is_expired
  AND valid_from <= $2
  AND (valid_till IS NULL OR valid_till > $2)`

const markExpiredGrantsQuery = `
UPDATE credit_grants
SET is_expired = TRUE
WHERE NOT is_expired AND valid_till IS NOT NULL AND valid_till <= $1`

// Create inserts a new grant record.
func (r *pgCreditGrantRepository) Create(ctx context.Context, querier interfaces.DBTX, grant *models.CreditGrant) error {
	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = time.Now().UTC()
	}

	_, err := r.querier(querier).Exec(ctx, createCreditGrantQuery,
		grant.ID,
		grant.UserID,
		grant.Granted,
		grant.Used,
		grant.ValidFrom,
		grant.ValidTill,
		grant.IsExpired,
		grant.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create credit grant", zap.Error(err), zap.String("userID", grant.UserID.String()), zap.Int64("granted", grant.Granted))
		return fmt.Errorf("ошибка создания гранта кредитов: %w", err)
	}
	r.logger.Debug("Credit grant created", zap.String("grantID", grant.ID.String()), zap.Int64("granted", grant.Granted))
	return nil
}

// GetByID retrieves a grant by its unique ID.
func (r *pgCreditGrantRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.CreditGrant, error) {
	grant := &models.CreditGrant{}
	err := r.querier(querier).QueryRow(ctx, getCreditGrantByIDQuery, id).Scan(
		&grant.ID,
		&grant.UserID,
		&grant.Granted,
		&grant.Used,
		&grant.ValidFrom,
		&grant.ValidTill,
		&grant.IsExpired,
		&grant.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get credit grant by ID", zap.String("grantID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения гранта по ID %s: %w", id, err)
	}
	return grant, nil
}

// ListByUserID returns every grant of a user, newest first.
func (r *pgCreditGrantRepository) ListByUserID(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID) ([]*models.CreditGrant, error) {
	rows, err := r.querier(querier).Query(ctx, listCreditGrantsByUserQuery, userID)
	if err != nil {
		r.logger.Error("Failed to list credit grants", zap.String("userID", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения списка грантов: %w", err)
	}
	defer rows.Close()
	return r.scanGrants(rows)
}

// ListAvailableForUpdate returns consumable grants sorted soonest-to-expire
// first and locks them. Must be called with a transaction querier.
func (r *pgCreditGrantRepository) ListAvailableForUpdate(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID, now time.Time) ([]*models.CreditGrant, error) {
	rows, err := r.querier(querier).Query(ctx, listAvailableGrantsForUpdateQuery, userID, now)
	if err != nil {
		r.logger.Error("Failed to lock available credit grants", zap.String("userID", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка блокировки доступных грантов: %w", err)
	}
	defer rows.Close()
	return r.scanGrants(rows)
}

func (r *pgCreditGrantRepository) scanGrants(rows pgx.Rows) ([]*models.CreditGrant, error) {
	grants := make([]*models.CreditGrant, 0)
	for rows.Next() {
		grant := &models.CreditGrant{}
		if err := rows.Scan(
			&grant.ID,
			&grant.UserID,
			&grant.Granted,
			&grant.Used,
			&grant.ValidFrom,
			&grant.ValidTill,
			&grant.IsExpired,
			&grant.CreatedAt,
		); err != nil {
			r.logger.Error("Failed to scan credit grant row", zap.Error(err))
			return nil, fmt.Errorf("ошибка сканирования строки гранта: %w", err)
		}
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк грантов: %w", err)
	}
	return grants, nil
}

// AddUsed increments used on a grant, conditional on staying within granted.
func (r *pgCreditGrantRepository) AddUsed(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, delta int64) error {
	if delta < 0 {
		return fmt.Errorf("%w: отрицательное приращение used", models.ErrInvalidInput)
	}
	cmdTag, err := r.querier(querier).Exec(ctx, addUsedCreditGrantQuery, id, delta)
	if err != nil {
		r.logger.Error("Failed to increment grant usage", zap.String("grantID", id.String()), zap.Int64("delta", delta), zap.Error(err))
		return fmt.Errorf("ошибка списания с гранта: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Грант исчез или приращение вывело бы used за granted.
		return models.ErrConflict
	}
	return nil
}

// SumAvailable returns the total remaining credits of the user's available grants.
func (r *pgCreditGrantRepository) SumAvailable(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID, now time.Time) (int64, error) {
	var total int64
	err := r.querier(querier).QueryRow(ctx, sumAvailableCreditsQuery, userID, now).Scan(&total)
	if err != nil {
		r.logger.Error("Failed to sum available credits", zap.String("userID", userID.String()), zap.Error(err))
		return 0, fmt.Errorf("ошибка подсчета доступных кредитов: %w", err)
	}
	return total, nil
}

// MarkExpired flips is_expired on every grant past its valid_till.
func (r *pgCreditGrantRepository) MarkExpired(ctx context.Context, querier interfaces.DBTX, now time.Time) (int64, error) {
	cmdTag, err := r.querier(querier).Exec(ctx, markExpiredGrantsQuery, now)
	if err != nil {
		r.logger.Error("Failed to mark expired grants", zap.Time("now", now), zap.Error(err))
		return 0, fmt.Errorf("ошибка пометки истекших грантов: %w", err)
	}
	expired := cmdTag.RowsAffected()
	if expired > 0 {
		r.logger.Info("Credit grants marked expired", zap.Int64("count", expired))
	}
	return expired, nil
}
