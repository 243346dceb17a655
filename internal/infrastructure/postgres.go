package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}

	// Auto-migrate schema
	if err := client.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (p *PostgresClient) Migrate() error {
	ctx := context.Background()

	// Tenants Table
	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tenants (
			key VARCHAR(64) PRIMARY KEY,
			phone_id VARCHAR(32) NOT NULL,
			meta_token_ref VARCHAR(255) NOT NULL,
			verify_token_ref VARCHAR(255) NOT NULL,
			app_secret_ref VARCHAR(255) NOT NULL,
			locale VARCHAR(8) DEFAULT 'es',
			persona VARCHAR(64),
			templates JSONB DEFAULT '[]',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create tenants table: %w", err)
	}

	// Provider Registry (tenant-scoped blacklist, atomic add via ON CONFLICT)
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS providers (
			tenant_key VARCHAR(64) NOT NULL,
			sender VARCHAR(32) NOT NULL,
			added_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (tenant_key, sender)
		);
	`)
	if err != nil {
		return fmt.Errorf("create providers table: %w", err)
	}

	// Secrets Table (referenced by tenants.*_ref columns)
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS secrets (
			ref VARCHAR(255) PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create secrets table: %w", err)
	}

	// Operator Users Table
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) DEFAULT 'user',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}

	// Per-Tenant Bot Configuration (master prompt lives here)
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bot_config (
			tenant_key VARCHAR(64) NOT NULL,
			key VARCHAR(64) NOT NULL,
			value TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (tenant_key, key)
		);
	`)
	if err != nil {
		return fmt.Errorf("create bot_config table: %w", err)
	}

	// Daily Message Counters per Tenant
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS message_usage (
			tenant_key VARCHAR(64) NOT NULL,
			date DATE NOT NULL,
			messages_sent INT DEFAULT 0,
			messages_received INT DEFAULT 0,
			PRIMARY KEY (tenant_key, date)
		);
	`)
	if err != nil {
		return fmt.Errorf("create message_usage table: %w", err)
	}

	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
