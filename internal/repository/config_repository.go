package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Well-known bot_config keys.
const (
	ConfigMasterPrompt = "master_prompt"
)

type BotConfig struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConfigRepository holds per-tenant bot configuration, most importantly the
// master prompt forwarded to the LLM orchestrator.
type ConfigRepository struct {
	db *pgxpool.Pool
}

func NewConfigRepository(db *pgxpool.Pool) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// GetConfig returns a config value by key. Missing keys are not an error and
// come back as the empty string.
func (r *ConfigRepository) GetConfig(ctx context.Context, tenantKey, key string) (string, error) {
	var value string
	err := r.db.QueryRow(ctx,
		"SELECT value FROM bot_config WHERE tenant_key=$1 AND key=$2",
		tenantKey, key).Scan(&value)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil // Not found is not strictly an error
		}
		return "", err
	}
	return value, nil
}

// SetConfig upserts a config value for a tenant.
func (r *ConfigRepository) SetConfig(ctx context.Context, tenantKey, key, value string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO bot_config (tenant_key, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (tenant_key, key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()
	`, tenantKey, key, value)
	return err
}

// GetAllConfigs returns every config entry for a tenant.
func (r *ConfigRepository) GetAllConfigs(ctx context.Context, tenantKey string) ([]BotConfig, error) {
	rows, err := r.db.Query(ctx,
		"SELECT key, value, updated_at FROM bot_config WHERE tenant_key=$1", tenantKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	configs := []BotConfig{}
	for rows.Next() {
		var c BotConfig
		if err := rows.Scan(&c.Key, &c.Value, &c.UpdatedAt); err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}
