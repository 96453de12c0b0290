package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres notification channels fired by triggers in the schema. The
// entitlement channel carries the affected user id as its payload; the
// features channel carries no payload, subscribers refetch the collection.
const (
	entitlementChannel = "entitlement_changed"
	featuresChannel    = "features_changed"
)

// openListener dedicates a pooled connection to LISTEN on channel and returns
// it already registered. Postgres only delivers notifications to sessions
// listening at commit time, so subscribers must LISTEN before they read their
// initial snapshot; a write committed between the two is then guaranteed to
// be either in the snapshot or notified, never silently dropped.
func openListener(ctx context.Context, pool *pgxpool.Pool, channel string) (*pgxpool.Conn, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring listen connection for %s: %w: %w", channel, ErrStoreUnavailable, err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listening on %s: %w: %w", channel, ErrStoreUnavailable, err)
	}
	return conn, nil
}

// notifyLoop invokes handle for every notification arriving on the listening
// connection until ctx is cancelled, then releases it. A cancelled context is
// a clean shutdown, not an error.
func notifyLoop(ctx context.Context, conn *pgxpool.Conn, channel string, handle func(payload string) error) error {
	defer conn.Release()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("waiting for notification on %s: %w: %w", channel, ErrStoreUnavailable, err)
		}
		if err := handle(n.Payload); err != nil {
			return err
		}
	}
}
