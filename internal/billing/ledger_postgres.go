package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-solutions/internal/platform/apierr"
)

const dbTimeout = 5 * time.Second

// PostgresLedger keeps claims in the webhook_events table.
type PostgresLedger struct {
	// Lease overrides ClaimLease when positive.
	Lease time.Duration

	pool *pgxpool.Pool
}

func NewPostgresLedger(pool *pgxpool.Pool) (*PostgresLedger, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresLedger{pool: pool}, nil
}

func (l *PostgresLedger) Claim(ctx context.Context, key, event string, payload []byte) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if len(payload) == 0 {
		payload = []byte("{}")
	}
	tag, err := l.pool.Exec(ctx,
		`INSERT INTO webhook_events (key, event, payload)
		 VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (key) DO UPDATE
		 SET event = EXCLUDED.event, payload = EXCLUDED.payload, received_at = NOW()
		 WHERE webhook_events.processed_at IS NULL
		   AND webhook_events.received_at < NOW() - make_interval(secs => $4)`,
		key, event, string(payload), leaseOrDefault(l.Lease).Seconds(),
	)
	if err != nil {
		return false, apierr.Upstream("claiming webhook event", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (l *PostgresLedger) Complete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := l.pool.Exec(ctx,
		`UPDATE webhook_events SET processed_at = NOW() WHERE key = $1`, key,
	); err != nil {
		return apierr.Upstream("completing webhook event", err)
	}
	return nil
}

func (l *PostgresLedger) Release(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := l.pool.Exec(ctx,
		`DELETE FROM webhook_events WHERE key = $1 AND processed_at IS NULL`, key,
	); err != nil {
		return apierr.Upstream("releasing webhook event", err)
	}
	return nil
}
