package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/contextual-rag/internal/core/domain"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082502)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS app_settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	value_type TEXT NOT NULL DEFAULT 'str',
	description TEXT NOT NULL DEFAULT '',
	group_name TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_app_settings_group ON app_settings(group_name);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const settingColumns = `key, value, value_type, description, group_name, created_at, updated_at`

func (r *SettingsRepository) Get(ctx context.Context, key string) (*domain.Setting, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+settingColumns+`
FROM app_settings
WHERE key = $1
`, key)

	setting, err := scanSetting(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSettingNotFound, "get setting", fmt.Errorf("key %s", key))
		}
		return nil, fmt.Errorf("scan setting: %w", err)
	}
	return setting, nil
}

func (r *SettingsRepository) GetAll(ctx context.Context) ([]domain.Setting, error) {
	return r.list(ctx, `
SELECT `+settingColumns+`
FROM app_settings
ORDER BY key
`)
}

func (r *SettingsRepository) GetGroup(ctx context.Context, group string) ([]domain.Setting, error) {
	return r.list(ctx, `
SELECT `+settingColumns+`
FROM app_settings
WHERE group_name = $1
ORDER BY key
`, group)
}

func (r *SettingsRepository) list(ctx context.Context, query string, args ...any) ([]domain.Setting, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	var out []domain.Setting
	for rows.Next() {
		setting, err := scanSetting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out = append(out, *setting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}
	return out, nil
}

func (r *SettingsRepository) Set(ctx context.Context, setting domain.Setting) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO app_settings (key, value, value_type, description, group_name, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$6)
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value,
    value_type = EXCLUDED.value_type,
    description = EXCLUDED.description,
    group_name = EXCLUDED.group_name,
    updated_at = EXCLUDED.updated_at
`, setting.Key, setting.Value, string(setting.ValueType), setting.Description, setting.Group, now)
	if err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}

func (r *SettingsRepository) Delete(ctx context.Context, key string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM app_settings WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete setting rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrSettingNotFound, "delete setting", fmt.Errorf("key %s", key))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSetting(row rowScanner) (*domain.Setting, error) {
	var s domain.Setting
	var valueType string
	if err := row.Scan(&s.Key, &s.Value, &valueType, &s.Description, &s.Group, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.ValueType = domain.ValueType(valueType)
	return &s, nil
}
