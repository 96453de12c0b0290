package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"app/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FeatureRepository manages the global feature flag collection. Flags are
// written only through the admin surface; everything else holds a cached,
// eventually-consistent read view fed by Subscribe.
type FeatureRepository interface {
	// List returns every flag, ordered by name.
	List(ctx context.Context) ([]model.FeatureFlag, error)
	// Create registers a new flag, enabled by default. Returns
	// ErrFeatureExists if the name is already taken.
	Create(ctx context.Context, name string) (*model.FeatureFlag, error)
	// SetEnabled flips a flag. Returns ErrFeatureNotFound for an unknown id.
	SetEnabled(ctx context.Context, id string, enabled bool) error
	// Subscribe opens a live view of the whole collection: one snapshot
	// promptly, then one per committed change until Close.
	Subscribe(ctx context.Context) (FeatureStream, error)
}

// FeatureStream is a cancellable live view of the flag collection.
type FeatureStream interface {
	// Snapshots is closed after Close or a subscription failure; check Err
	// once it is closed.
	Snapshots() <-chan []model.FeatureFlag
	// Err reports why the stream ended, or nil for a clean Close.
	Err() error
	// Close cancels the subscription and releases its listen connection.
	Close()
}

type featureRepo struct {
	pool *pgxpool.Pool
}

// NewFeatureRepo creates a new FeatureRepository.
func NewFeatureRepo(pool *pgxpool.Pool) FeatureRepository {
	return &featureRepo{pool: pool}
}

func (r *featureRepo) List(ctx context.Context) ([]model.FeatureFlag, error) {
	const q = `SELECT id, name, enabled, created_at, updated_at FROM features ORDER BY name`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing features: %w: %w", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var flags []model.FeatureFlag
	for rows.Next() {
		var f model.FeatureFlag
		if err := rows.Scan(&f.ID, &f.Name, &f.Enabled, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning feature: %w", err)
		}
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing features: %w: %w", ErrStoreUnavailable, err)
	}
	return flags, nil
}

func (r *featureRepo) Create(ctx context.Context, name string) (*model.FeatureFlag, error) {
	const q = `
        INSERT INTO features (id, name, enabled)
        VALUES ($1, $2, TRUE)
        RETURNING id, name, enabled, created_at, updated_at
    `
	var f model.FeatureFlag
	err := r.pool.QueryRow(ctx, q, uuid.NewString(), name).Scan(&f.ID, &f.Name, &f.Enabled, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("creating feature %q: %w", name, ErrFeatureExists)
		}
		return nil, fmt.Errorf("creating feature %q: %w: %w", name, ErrStoreUnavailable, err)
	}
	return &f, nil
}

func (r *featureRepo) SetEnabled(ctx context.Context, id string, enabled bool) error {
	const q = `UPDATE features SET enabled = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, enabled)
	if err != nil {
		return fmt.Errorf("toggling feature %s: %w: %w", id, ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("toggling feature %s: %w", id, ErrFeatureNotFound)
	}
	return nil
}

// FeatureSubscription implements FeatureStream over LISTEN/NOTIFY. Like
// entitlement subscriptions, snapshots are conflated to the latest state.
type FeatureSubscription struct {
	snapshots chan []model.FeatureFlag
	cancel    context.CancelFunc

	mu  sync.Mutex
	err error
}

func (s *FeatureSubscription) Snapshots() <-chan []model.FeatureFlag {
	return s.snapshots
}

func (s *FeatureSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *FeatureSubscription) Close() {
	s.cancel()
}

func (s *FeatureSubscription) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *FeatureSubscription) push(flags []model.FeatureFlag) {
	select {
	case <-s.snapshots:
	default:
	}
	s.snapshots <- flags
}

func (r *featureRepo) Subscribe(ctx context.Context) (FeatureStream, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &FeatureSubscription{
		snapshots: make(chan []model.FeatureFlag, 1),
		cancel:    cancel,
	}

	// LISTEN before the initial read, so a flag written right after the read
	// is always notified rather than lost in the registration gap.
	conn, err := openListener(ctx, r.pool, featuresChannel)
	if err != nil {
		cancel()
		return nil, err
	}

	initial, err := r.List(ctx)
	if err != nil {
		conn.Release()
		cancel()
		return nil, err
	}
	sub.push(initial)

	go func() {
		defer close(sub.snapshots)
		err := notifyLoop(ctx, conn, featuresChannel, func(string) error {
			flags, err := r.List(ctx)
			if err != nil {
				return err
			}
			sub.push(flags)
			return nil
		})
		if err != nil {
			sub.fail(err)
		}
	}()

	return sub, nil
}
