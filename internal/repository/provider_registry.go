package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgProviderRegistry stores the provider blacklist in Postgres, scoped by
// tenant. Add is a single INSERT ... ON CONFLICT DO NOTHING, so concurrent
// requests that each detect a new provider cannot overwrite each other.
type PgProviderRegistry struct {
	db *pgxpool.Pool
}

func NewPgProviderRegistry(db *pgxpool.Pool) *PgProviderRegistry {
	return &PgProviderRegistry{db: db}
}

func (r *PgProviderRegistry) Load(ctx context.Context, tenantKey string) (map[string]struct{}, error) {
	rows, err := r.db.Query(ctx,
		"SELECT sender FROM providers WHERE tenant_key=$1", tenantKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	providers := make(map[string]struct{})
	for rows.Next() {
		var sender string
		if err := rows.Scan(&sender); err != nil {
			return nil, err
		}
		providers[sender] = struct{}{}
	}
	return providers, rows.Err()
}

func (r *PgProviderRegistry) Add(ctx context.Context, tenantKey string, senders ...string) error {
	if len(senders) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO providers (tenant_key, sender)
		SELECT $1, unnest($2::text[])
		ON CONFLICT (tenant_key, sender) DO NOTHING
	`, tenantKey, senders)
	return err
}
