package service

import (
	"context"
	"encoding/json"
	"time"

	"app/internal/clock"
	"app/internal/model"
	"app/internal/pubsub"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// FreePlanLimits maps metered feature keys to their free-plan daily caps.
// Feature keys absent from this table are unlimited on every plan; gating for
// those (pro-only tools) happens via IsPro or feature flags instead.
var FreePlanLimits = map[string]int{
	"keywordGenerator": 3,
	"contentAnalysis":  2,
}

// IsPro reports whether the entitlement's plan bypasses all numeric limits.
func IsPro(ent *model.UserEntitlement) bool {
	return ent != nil && ent.Plan == model.PlanPro
}

// CanUse decides whether one more use of a feature is allowed right now.
// A nil entitlement (record still loading, or not created yet) is permissive:
// the client-side decision is advisory, enforcement happens on the stored
// counters server-side.
func CanUse(ent *model.UserEntitlement, featureKey string) bool {
	if ent == nil || IsPro(ent) {
		return true
	}
	limit, metered := FreePlanLimits[featureKey]
	if !metered {
		return true
	}
	return ent.UsageCount(featureKey) < limit
}

// NeedsRollover reports whether the record's counters belong to a prior
// calendar day and must be reset before they are exposed to callers. Within
// one calendar day it is idempotent: after a reset the stamped timestamp is
// current, so a second check is a no-op.
func NeedsRollover(ent *model.UserEntitlement, now time.Time) bool {
	if ent == nil {
		return false
	}
	return !clock.SameDay(now, ent.LastUsageAt)
}

// EntitlementService combines plan tier, usage counters, daily limits and the
// rollover policy into decisions and mutations for one user's entitlement.
type EntitlementService interface {
	// Get returns the user's entitlement with rollover applied, substituting
	// the fresh free-plan default when no record exists yet.
	Get(ctx context.Context, userID string) (*model.UserEntitlement, error)
	// Watch streams entitlement snapshots with rollover correction applied
	// through the store. The caller must Close the returned watch.
	Watch(ctx context.Context, userID string) (*EntitlementWatch, error)
	// RecordUse counts one use of a feature. Callers check CanUse first; the
	// two are deliberately not one atomic step, so concurrent sessions can
	// overrun a cap by the number of racing sessions (soft limit).
	RecordUse(ctx context.Context, userID, featureKey string) error
	// Upgrade moves the user to the pro plan. There is no downgrade path.
	Upgrade(ctx context.Context, userID string) error
	// SweepStale resets counters for every record left on a prior day.
	SweepStale(ctx context.Context) (int64, error)
}

type entitlementService struct {
	repo        repository.EntitlementRepository
	publisher   pubsub.Publisher
	eventsTopic string
	clk         clock.Clock
	logger      zerolog.Logger
}

// NewEntitlementService creates a new EntitlementService with a scoped logger.
func NewEntitlementService(
	repo repository.EntitlementRepository,
	publisher pubsub.Publisher,
	eventsTopic string,
	clk clock.Clock,
	logger zerolog.Logger,
) EntitlementService {
	return &entitlementService{
		repo:        repo,
		publisher:   publisher,
		eventsTopic: eventsTopic,
		clk:         clk,
		logger:      logger.With().Str("service", "EntitlementService").Logger(),
	}
}

func (s *entitlementService) Get(ctx context.Context, userID string) (*model.UserEntitlement, error) {
	ent, err := s.repo.Get(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch entitlement")
		return nil, err
	}
	if ent == nil {
		// Record creation races slightly behind sign-up; treat missing as a
		// fresh free-plan default rather than an error.
		return model.NewUserEntitlement(userID, s.clk.Now()), nil
	}
	if NeedsRollover(ent, s.clk.Now()) {
		if err := s.repo.ResetUsage(ctx, userID, s.clk.Now()); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to apply usage rollover")
			return ent, nil // fail open to last known state
		}
		return s.repo.Get(ctx, userID)
	}
	return ent, nil
}

func (s *entitlementService) RecordUse(ctx context.Context, userID, featureKey string) error {
	if err := s.repo.IncrementUsage(ctx, userID, featureKey); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("feature", featureKey).Msg("Failed to record usage")
		return err
	}
	return nil
}

func (s *entitlementService) Upgrade(ctx context.Context, userID string) error {
	if err := s.repo.SetPlan(ctx, userID, model.PlanPro); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to upgrade plan")
		return err
	}
	s.publishEvent(ctx, "entitlement.plan_upgraded", map[string]string{
		"user_id": userID,
		"plan":    string(model.PlanPro),
	})
	return nil
}

func (s *entitlementService) SweepStale(ctx context.Context) (int64, error) {
	// The cutoff is this clock's local midnight, the same day boundary the
	// lazy rollover uses via SameDay.
	now := s.clk.Now()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	n, err := s.repo.ResetStale(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to sweep stale usage")
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int64("records", n).Msg("Reset stale usage counters")
	}
	return n, nil
}

// publishEvent emits a domain event for downstream consumers. Event delivery
// is best effort; the mutation has already committed.
func (s *entitlementService) publishEvent(ctx context.Context, eventType string, fields map[string]string) {
	if s.publisher == nil || s.eventsTopic == "" {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"type":        eventType,
		"occurred_at": s.clk.Now().UTC().Format(time.RFC3339),
		"data":        fields,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("Failed to marshal event")
		return
	}
	if _, err := s.publisher.Publish(ctx, s.eventsTopic, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}

// EntitlementWatch is the engine-level view of a store subscription: missing
// records surface as the permissive default, and stale counters trigger a
// corrective reset whose converged result is what the watcher observes.
type EntitlementWatch struct {
	snapshots chan *model.UserEntitlement
	stream    repository.EntitlementStream
}

// Snapshots returns the snapshot channel; closed after Close or failure.
func (w *EntitlementWatch) Snapshots() <-chan *model.UserEntitlement {
	return w.snapshots
}

// Err reports why the watch ended, or nil for a clean Close.
func (w *EntitlementWatch) Err() error {
	return w.stream.Err()
}

// Close releases the underlying subscription. Watches left open leak a
// listen connection.
func (w *EntitlementWatch) Close() {
	w.stream.Close()
}

func (w *EntitlementWatch) push(ent *model.UserEntitlement) {
	select {
	case <-w.snapshots:
	default:
	}
	w.snapshots <- ent
}

func (s *entitlementService) Watch(ctx context.Context, userID string) (*EntitlementWatch, error) {
	stream, err := s.repo.Subscribe(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to subscribe to entitlement")
		return nil, err
	}
	watch := &EntitlementWatch{
		snapshots: make(chan *model.UserEntitlement, 1),
		stream:    stream,
	}

	go func() {
		defer close(watch.snapshots)
		for ent := range stream.Snapshots() {
			if ent == nil {
				watch.push(model.NewUserEntitlement(userID, s.clk.Now()))
				continue
			}
			if NeedsRollover(ent, s.clk.Now()) {
				err := s.repo.ResetUsage(ctx, userID, s.clk.Now())
				if err == nil {
					// The corrective write triggers its own snapshot; that one
					// is what the watcher sees, so all sessions converge.
					continue
				}
				// Fail open: expose the last known state rather than blocking.
				s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to apply usage rollover")
			}
			watch.push(ent)
		}
	}()

	return watch, nil
}
