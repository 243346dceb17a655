package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsageRepository struct {
	db *pgxpool.Pool
}

type DailyUsage struct {
	Date             time.Time `json:"date"`
	MessagesSent     int       `json:"messages_sent"`
	MessagesReceived int       `json:"messages_received"`
}

func NewUsageRepository(db *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{db: db}
}

// IncrementSent increments messages_sent for today
func (r *UsageRepository) IncrementSent(ctx context.Context, tenantKey string) error {
	today := time.Now().Format("2006-01-02")
	_, err := r.db.Exec(ctx, `
		INSERT INTO message_usage (tenant_key, date, messages_sent, messages_received)
		VALUES ($1, $2, 1, 0)
		ON CONFLICT (tenant_key, date)
		DO UPDATE SET messages_sent = message_usage.messages_sent + 1
	`, tenantKey, today)
	return err
}

// IncrementReceived increments messages_received for today
func (r *UsageRepository) IncrementReceived(ctx context.Context, tenantKey string) error {
	today := time.Now().Format("2006-01-02")
	_, err := r.db.Exec(ctx, `
		INSERT INTO message_usage (tenant_key, date, messages_sent, messages_received)
		VALUES ($1, $2, 0, 1)
		ON CONFLICT (tenant_key, date)
		DO UPDATE SET messages_received = message_usage.messages_received + 1
	`, tenantKey, today)
	return err
}

// GetTodayUsage returns today's message counts for a tenant
func (r *UsageRepository) GetTodayUsage(ctx context.Context, tenantKey string) (sent, received int, err error) {
	today := time.Now().Format("2006-01-02")
	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(messages_sent, 0), COALESCE(messages_received, 0)
		FROM message_usage WHERE tenant_key=$1 AND date=$2
	`, tenantKey, today).Scan(&sent, &received)
	if err == pgx.ErrNoRows {
		return 0, 0, nil
	}
	return sent, received, err
}

// GetRecentUsage returns the last N days of usage for a tenant
func (r *UsageRepository) GetRecentUsage(ctx context.Context, tenantKey string, days int) ([]DailyUsage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT date, messages_sent, messages_received
		FROM message_usage
		WHERE tenant_key=$1 AND date > CURRENT_DATE - $2::int
		ORDER BY date DESC
	`, tenantKey, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usage := []DailyUsage{}
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.MessagesSent, &u.MessagesReceived); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

// GetPlatformTotals returns aggregate sent/received counts across tenants
func (r *UsageRepository) GetPlatformTotals(ctx context.Context) (sent, received int, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(messages_sent), 0), COALESCE(SUM(messages_received), 0)
		FROM message_usage
	`).Scan(&sent, &received)
	return sent, received, err
}
