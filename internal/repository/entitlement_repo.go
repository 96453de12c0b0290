package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EntitlementRepository synchronizes per-user entitlement records with the
// store and issues atomic mutations against them.
type EntitlementRepository interface {
	// Get fetches the current record, or nil if none exists for the user.
	Get(ctx context.Context, userID string) (*model.UserEntitlement, error)
	// Create inserts a fresh free-plan record; a no-op if one already exists.
	Create(ctx context.Context, userID string) error
	// IncrementUsage atomically adds 1 to one feature counter and refreshes
	// last_usage_at in a single statement, so concurrent sessions never lose
	// updates to a read-modify-write cycle.
	IncrementUsage(ctx context.Context, userID, featureKey string) error
	// SetPlan atomically sets the user's plan, creating the record if needed.
	SetPlan(ctx context.Context, userID string, plan model.Plan) error
	// ResetUsage zeroes all counters and stamps last_usage_at. The write
	// round-trips through the store so every subscriber converges on the same
	// reset state.
	ResetUsage(ctx context.Context, userID string, now time.Time) error
	// ResetStale zeroes counters for every record whose last usage predates
	// cutoff, returning how many rows were corrected. The caller derives
	// cutoff from its clock so the sweep and the lazy per-user rollover agree
	// on where the day boundary lies.
	ResetStale(ctx context.Context, cutoff time.Time) (int64, error)
	// Subscribe opens a live subscription to one user's record. The returned
	// handle emits an initial snapshot promptly (nil if the record does not
	// exist) and a fresh snapshot after every committed change until Close.
	// The notification channel is registered before the initial snapshot is
	// read, so a write committed at any point after Subscribe returns is
	// always observed.
	Subscribe(ctx context.Context, userID string) (EntitlementStream, error)
}

// EntitlementStream is a cancellable live view of one entitlement record.
type EntitlementStream interface {
	// Snapshots is closed after Close or a subscription failure; check Err
	// once it is closed.
	Snapshots() <-chan *model.UserEntitlement
	// Err reports why the stream ended, or nil for a clean Close.
	Err() error
	// Close cancels the subscription and releases its listen connection.
	Close()
}

type entitlementRepo struct {
	pool *pgxpool.Pool
}

// NewEntitlementRepo creates a new EntitlementRepository.
func NewEntitlementRepo(pool *pgxpool.Pool) EntitlementRepository {
	return &entitlementRepo{pool: pool}
}

const entitlementColumns = `user_id, plan, role, usage, last_usage_at, created_at, updated_at`

func scanEntitlement(row pgx.Row) (*model.UserEntitlement, error) {
	var e model.UserEntitlement
	var rawUsage []byte
	err := row.Scan(&e.UserID, &e.Plan, &e.Role, &rawUsage, &e.LastUsageAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawUsage, &e.Usage); err != nil {
		return nil, fmt.Errorf("unmarshal usage for user %s: %w", e.UserID, err)
	}
	if e.Usage == nil {
		e.Usage = map[string]int{}
	}
	return &e, nil
}

func (r *entitlementRepo) Get(ctx context.Context, userID string) (*model.UserEntitlement, error) {
	const q = `SELECT ` + entitlementColumns + ` FROM user_entitlements WHERE user_id = $1`
	e, err := scanEntitlement(r.pool.QueryRow(ctx, q, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch entitlement for user %s: %w: %w", userID, ErrStoreUnavailable, err)
	}
	return e, nil
}

func (r *entitlementRepo) Create(ctx context.Context, userID string) error {
	const q = `
        INSERT INTO user_entitlements (user_id, plan, role, usage, last_usage_at)
        VALUES ($1, 'free', 'standard', '{}'::jsonb, NOW())
        ON CONFLICT (user_id) DO NOTHING
    `
	if _, err := r.pool.Exec(ctx, q, userID); err != nil {
		return fmt.Errorf("creating entitlement for user %s: %w: %w", userID, ErrStoreUnavailable, err)
	}
	return nil
}

// IncrementUsage upserts so that a record racing slightly behind sign-up still
// counts the use instead of dropping it.
func (r *entitlementRepo) IncrementUsage(ctx context.Context, userID, featureKey string) error {
	const q = `
        INSERT INTO user_entitlements (user_id, usage, last_usage_at)
        VALUES ($1, jsonb_build_object($2::text, 1), NOW())
        ON CONFLICT (user_id) DO UPDATE
        SET usage = jsonb_set(
                user_entitlements.usage,
                ARRAY[$2::text],
                to_jsonb(COALESCE((user_entitlements.usage ->> $2::text)::int, 0) + 1)
            ),
            last_usage_at = NOW(),
            updated_at = NOW()
    `
	if _, err := r.pool.Exec(ctx, q, userID, featureKey); err != nil {
		return fmt.Errorf("incrementing usage %q for user %s: %w: %w", featureKey, userID, ErrStoreUnavailable, err)
	}
	return nil
}

func (r *entitlementRepo) SetPlan(ctx context.Context, userID string, plan model.Plan) error {
	const q = `
        INSERT INTO user_entitlements (user_id, plan)
        VALUES ($1, $2)
        ON CONFLICT (user_id) DO UPDATE
        SET plan = EXCLUDED.plan,
            updated_at = NOW()
    `
	if _, err := r.pool.Exec(ctx, q, userID, plan); err != nil {
		return fmt.Errorf("setting plan %s for user %s: %w: %w", plan, userID, ErrStoreUnavailable, err)
	}
	return nil
}

func (r *entitlementRepo) ResetUsage(ctx context.Context, userID string, now time.Time) error {
	const q = `
        UPDATE user_entitlements
        SET usage = '{}'::jsonb,
            last_usage_at = $2,
            updated_at = NOW()
        WHERE user_id = $1
    `
	if _, err := r.pool.Exec(ctx, q, userID, now); err != nil {
		return fmt.Errorf("resetting usage for user %s: %w: %w", userID, ErrStoreUnavailable, err)
	}
	return nil
}

func (r *entitlementRepo) ResetStale(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `
        UPDATE user_entitlements
        SET usage = '{}'::jsonb,
            last_usage_at = NOW(),
            updated_at = NOW()
        WHERE last_usage_at < $1
          AND usage <> '{}'::jsonb
    `
	tag, err := r.pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("resetting stale usage: %w: %w", ErrStoreUnavailable, err)
	}
	return tag.RowsAffected(), nil
}

// EntitlementSubscription implements EntitlementStream over LISTEN/NOTIFY.
// Snapshots are conflated: a slow consumer observes the latest state, not
// every intermediate one. Consumers must call Close when done.
type EntitlementSubscription struct {
	snapshots chan *model.UserEntitlement
	cancel    context.CancelFunc

	mu  sync.Mutex
	err error
}

func (s *EntitlementSubscription) Snapshots() <-chan *model.UserEntitlement {
	return s.snapshots
}

func (s *EntitlementSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *EntitlementSubscription) Close() {
	s.cancel()
}

func (s *EntitlementSubscription) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// push conflates: the single producer drains any undelivered snapshot before
// sending, so the buffered send never blocks.
func (s *EntitlementSubscription) push(e *model.UserEntitlement) {
	select {
	case <-s.snapshots:
	default:
	}
	s.snapshots <- e
}

func (r *entitlementRepo) Subscribe(ctx context.Context, userID string) (EntitlementStream, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &EntitlementSubscription{
		snapshots: make(chan *model.UserEntitlement, 1),
		cancel:    cancel,
	}

	// LISTEN must be registered before the initial read: a write committed
	// after the read is then always notified, so no change falls into the gap
	// between snapshot and registration.
	conn, err := openListener(ctx, r.pool, entitlementChannel)
	if err != nil {
		cancel()
		return nil, err
	}

	initial, err := r.Get(ctx, userID)
	if err != nil {
		conn.Release()
		cancel()
		return nil, err
	}
	sub.push(initial)

	go func() {
		defer close(sub.snapshots)
		err := notifyLoop(ctx, conn, entitlementChannel, func(payload string) error {
			if payload != userID {
				return nil
			}
			e, err := r.Get(ctx, userID)
			if err != nil {
				return err
			}
			sub.push(e)
			return nil
		})
		if err != nil {
			sub.fail(err)
		}
	}()

	return sub, nil
}
