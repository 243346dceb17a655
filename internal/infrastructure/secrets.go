package infrastructure

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgSecretStore keeps secret values in the secrets table, keyed by reference
// (e.g. "tenants/acme/VERIFY_TOKEN"). The tenant admin writes them on tenant
// creation; the webhook reads them on every request.
type PgSecretStore struct {
	db *pgxpool.Pool
}

func NewPgSecretStore(db *pgxpool.Pool) *PgSecretStore {
	return &PgSecretStore{db: db}
}

func (s *PgSecretStore) GetSecret(ctx context.Context, ref string) (string, error) {
	var value string
	err := s.db.QueryRow(ctx, "SELECT value FROM secrets WHERE ref=$1", ref).Scan(&value)
	if err == pgx.ErrNoRows {
		return "", fmt.Errorf("secret %q not found", ref)
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *PgSecretStore) StoreSecret(ctx context.Context, ref, value string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO secrets (ref, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (ref) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()
	`, ref, value)
	return err
}

// EnvSecretStore resolves secret references from environment variables for
// local runs and tests. "tenants/acme/VERIFY_TOKEN" maps to
// TENANTS_ACME_VERIFY_TOKEN.
type EnvSecretStore struct{}

func NewEnvSecretStore() *EnvSecretStore {
	return &EnvSecretStore{}
}

func (s *EnvSecretStore) GetSecret(_ context.Context, ref string) (string, error) {
	name := envName(ref)
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("secret %q not found (env %s unset)", ref, name)
	}
	return value, nil
}

func envName(ref string) string {
	name := strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(ref)
	return strings.ToUpper(name)
}
