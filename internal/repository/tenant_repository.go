package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"agentes-ia/internal/entities"
)

// TenantRepository is the shared tenant store. The webhook core only reads
// from it; mutations happen through the tenant admin API.
type TenantRepository struct {
	db *pgxpool.Pool
}

func NewTenantRepository(db *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{db: db}
}

const tenantColumns = "key, phone_id, meta_token_ref, verify_token_ref, app_secret_ref, locale, persona, templates"

func scanTenant(row pgx.Row) (*entities.Tenant, error) {
	var t entities.Tenant
	var templates []byte
	err := row.Scan(&t.Key, &t.PhoneID, &t.Secrets.MetaToken, &t.Secrets.VerifyToken,
		&t.Secrets.MetaAppSecret, &t.Locale, &t.Persona, &templates)
	if err != nil {
		return nil, err
	}
	if len(templates) > 0 {
		if err := json.Unmarshal(templates, &t.Templates); err != nil {
			return nil, fmt.Errorf("decode tenant templates: %w", err)
		}
	}
	return &t, nil
}

// GetByKey returns (nil, nil) when the tenant does not exist.
func (r *TenantRepository) GetByKey(ctx context.Context, key string) (*entities.Tenant, error) {
	row := r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM tenants WHERE key=$1", tenantColumns), key)
	t, err := scanTenant(row)
	if err == pgx.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TenantRepository) Create(ctx context.Context, t *entities.Tenant) error {
	templates, err := json.Marshal(t.Templates)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO tenants (key, phone_id, meta_token_ref, verify_token_ref, app_secret_ref, locale, persona, templates)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.Key, t.PhoneID, t.Secrets.MetaToken, t.Secrets.VerifyToken, t.Secrets.MetaAppSecret,
		t.Locale, t.Persona, templates)
	return err
}

func (r *TenantRepository) Update(ctx context.Context, t *entities.Tenant) error {
	templates, err := json.Marshal(t.Templates)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE tenants SET phone_id=$2, locale=$3, persona=$4, templates=$5 WHERE key=$1
	`, t.Key, t.PhoneID, t.Locale, t.Persona, templates)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *TenantRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM tenants WHERE key=$1", key)
	return err
}

func (r *TenantRepository) List(ctx context.Context) ([]entities.Tenant, error) {
	rows, err := r.db.Query(ctx,
		fmt.Sprintf("SELECT %s FROM tenants ORDER BY key", tenantColumns))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tenants := []entities.Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, *t)
	}
	return tenants, rows.Err()
}
