package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"ctv-portal/internal/domain"
)

// LoginLogRepository define la persistencia del historial de accesos.
type LoginLogRepository interface {
	Create(ctx context.Context, log domain.LoginLog) error
	ListRecent(ctx context.Context, limit int) ([]domain.LoginLog, error)
}

// PgLoginLogRepository implementa LoginLogRepository usando pgxpool.
type PgLoginLogRepository struct {
	pool *pgxpool.Pool
}

func NewPgLoginLogRepository(pool *pgxpool.Pool) *PgLoginLogRepository {
	return &PgLoginLogRepository{pool: pool}
}

func (r *PgLoginLogRepository) Create(ctx context.Context, log domain.LoginLog) error {
	const query = `
		INSERT INTO login_logs (id, user_id, ip_address, browser, os, device_type, location, activity_type, login_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		log.ID,
		log.UserID,
		log.IPAddress,
		log.Browser,
		log.OS,
		log.DeviceType,
		log.Location,
		log.ActivityType,
		log.LoginTime,
	)
	return err
}

func (r *PgLoginLogRepository) ListRecent(ctx context.Context, limit int) ([]domain.LoginLog, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
		SELECT id, user_id, ip_address, browser, os, device_type, location, activity_type, login_time
		FROM login_logs
		ORDER BY login_time DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.LoginLog
	for rows.Next() {
		var l domain.LoginLog
		if err := rows.Scan(
			&l.ID,
			&l.UserID,
			&l.IPAddress,
			&l.Browser,
			&l.OS,
			&l.DeviceType,
			&l.Location,
			&l.ActivityType,
			&l.LoginTime,
		); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
