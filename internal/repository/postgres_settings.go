package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/emryou/solar-log-hub/internal/domain"
)

// PostgresSettingsRepo 全局配置仓库实现
type PostgresSettingsRepo struct {
	db *sql.DB
}

func NewPostgresSettingsRepo(db *sql.DB) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{db: db}
}

var _ SettingsRepo = (*PostgresSettingsRepo)(nil)

func (r *PostgresSettingsRepo) GetSetting(ctx context.Context, key string) (*domain.Setting, error) {
	var s domain.Setting
	err := r.db.QueryRowContext(ctx,
		`SELECT key, value, updated_at FROM settings WHERE key = $1`, key).
		Scan(&s.Key, &s.Value, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Resource: "setting", Key: key}
		}
		return nil, &domain.StorageError{Op: "GetSetting", Err: err}
	}
	return &s, nil
}

func (r *PostgresSettingsRepo) ListSettings(ctx context.Context) ([]*domain.Setting, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, &domain.StorageError{Op: "ListSettings", Err: err}
	}
	defer rows.Close()

	var out []*domain.Setting
	for rows.Next() {
		var s domain.Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, &domain.StorageError{Op: "ListSettings", Err: fmt.Errorf("scan: %w", err)}
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "ListSettings", Err: err}
	}
	return out, nil
}

func (r *PostgresSettingsRepo) UpsertSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	if err != nil {
		return &domain.StorageError{Op: "UpsertSetting", Err: err}
	}
	return nil
}

// SeedDefaults 已存在的键不覆盖
func (r *PostgresSettingsRepo) SeedDefaults(ctx context.Context, defaults map[string]string) error {
	for key, value := range defaults {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO settings (key, value)
			VALUES ($1, $2)
			ON CONFLICT (key) DO NOTHING
		`, key, value)
		if err != nil {
			return &domain.StorageError{Op: "SeedDefaults", Err: err}
		}
	}
	return nil
}
