package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"toolhub/server/toolhub/domain"
)

// TotalCounterKey is the singleton row holding the all-endpoints total.
const TotalCounterKey = "__total__"

type UsageRepository struct {
	pool *pgxpool.Pool
}

func NewUsageRepository(pool *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{pool: pool}
}

func (r *UsageRepository) InsertActivity(ctx context.Context, entry domain.ActivityEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO activity_log(id, endpoint, method, caller_id, remote_addr, status, created_at)
		VALUES($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.Endpoint, entry.Method, entry.CallerID, entry.RemoteAddr, entry.Status, entry.At)
	return err
}

// IncrementCounter bumps the endpoint counter by one, creating it at one on
// first sight. The upsert is a single statement so concurrent requests
// cannot lose updates.
func (r *UsageRepository) IncrementCounter(ctx context.Context, endpoint string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO usage_counters(endpoint, count) VALUES($1, 1)
		ON CONFLICT (endpoint) DO UPDATE SET count = usage_counters.count + 1
	`, endpoint)
	return err
}
