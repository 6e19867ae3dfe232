package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ctv-portal/internal/domain"
)

// ConfigRepository define la persistencia de la configuracion del sistema.
type ConfigRepository interface {
	List(ctx context.Context) ([]domain.SystemConfig, error)
	ListByKeys(ctx context.Context, keys []string) ([]domain.SystemConfig, error)
	Upsert(ctx context.Context, cfg domain.SystemConfig) (domain.SystemConfig, error)
}

// PgConfigRepository implementa ConfigRepository usando pgxpool.
type PgConfigRepository struct {
	pool *pgxpool.Pool
}

func NewPgConfigRepository(pool *pgxpool.Pool) *PgConfigRepository {
	return &PgConfigRepository{pool: pool}
}

func (r *PgConfigRepository) List(ctx context.Context) ([]domain.SystemConfig, error) {
	const query = `
		SELECT id, key, value, description, updated_at
		FROM system_configs
		ORDER BY key
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConfigs(rows)
}

func (r *PgConfigRepository) ListByKeys(ctx context.Context, keys []string) ([]domain.SystemConfig, error) {
	const query = `
		SELECT id, key, value, description, updated_at
		FROM system_configs
		WHERE key = ANY($1)
		ORDER BY key
	`
	rows, err := r.pool.Query(ctx, query, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConfigs(rows)
}

// Upsert inserta o actualiza una entrada por clave y devuelve la fila final.
func (r *PgConfigRepository) Upsert(ctx context.Context, cfg domain.SystemConfig) (domain.SystemConfig, error) {
	const query = `
		INSERT INTO system_configs (id, key, value, description, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
		RETURNING id, key, value, description, updated_at
	`
	if cfg.UpdatedAt.IsZero() {
		cfg.UpdatedAt = time.Now().UTC()
	}
	var out domain.SystemConfig
	err := r.pool.QueryRow(ctx, query,
		cfg.ID,
		cfg.Key,
		cfg.Value,
		cfg.Description,
		cfg.UpdatedAt,
	).Scan(&out.ID, &out.Key, &out.Value, &out.Description, &out.UpdatedAt)
	if err != nil {
		return domain.SystemConfig{}, err
	}
	return out, nil
}

func scanConfigs(rows pgx.Rows) ([]domain.SystemConfig, error) {
	var configs []domain.SystemConfig
	for rows.Next() {
		var c domain.SystemConfig
		if err := rows.Scan(&c.ID, &c.Key, &c.Value, &c.Description, &c.UpdatedAt); err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}
