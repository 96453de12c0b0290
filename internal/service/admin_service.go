package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"app/internal/clock"
	"app/internal/model"
	"app/internal/pubsub"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// ErrForbidden is returned when a non-admin invokes an admin mutation. The
// check happens before any store write is attempted; the store's own access
// rules remain the final authority.
var ErrForbidden = errors.New("forbidden")

// AdminService is the authorization-gated surface for feature flag mutations.
// Each call is a single independent mutation; there are no batch operations.
type AdminService interface {
	CreateFeature(ctx context.Context, actorID, name string) (*model.FeatureFlag, error)
	ToggleFeature(ctx context.Context, actorID, id string, enabled bool) error
}

type adminService struct {
	entitlements repository.EntitlementRepository
	features     repository.FeatureRepository
	publisher    pubsub.Publisher
	eventsTopic  string
	clk          clock.Clock
	logger       zerolog.Logger
}

// NewAdminService creates a new AdminService with a scoped logger.
func NewAdminService(
	entitlements repository.EntitlementRepository,
	features repository.FeatureRepository,
	publisher pubsub.Publisher,
	eventsTopic string,
	clk clock.Clock,
	logger zerolog.Logger,
) AdminService {
	return &adminService{
		entitlements: entitlements,
		features:     features,
		publisher:    publisher,
		eventsTopic:  eventsTopic,
		clk:          clk,
		logger:       logger.With().Str("service", "AdminService").Logger(),
	}
}

// requireAdmin resolves the actor's role. A missing entitlement record means
// the default standard role, which is not enough.
func (s *adminService) requireAdmin(ctx context.Context, actorID string) error {
	ent, err := s.entitlements.Get(ctx, actorID)
	if err != nil {
		return err
	}
	if !ent.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func (s *adminService) CreateFeature(ctx context.Context, actorID, name string) (*model.FeatureFlag, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	flag, err := s.features.Create(ctx, name)
	if err != nil {
		s.logger.Error().Err(err).Str("name", name).Msg("Failed to create feature flag")
		return nil, err
	}
	s.logger.Info().Str("actor", actorID).Str("name", name).Str("flag_id", flag.ID).Msg("Feature flag created")
	s.publishEvent(ctx, "feature.created", map[string]string{
		"actor_id": actorID,
		"flag_id":  flag.ID,
		"name":     name,
	})
	return flag, nil
}

func (s *adminService) ToggleFeature(ctx context.Context, actorID, id string, enabled bool) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	if err := s.features.SetEnabled(ctx, id, enabled); err != nil {
		s.logger.Error().Err(err).Str("flag_id", id).Msg("Failed to toggle feature flag")
		return err
	}
	s.logger.Info().Str("actor", actorID).Str("flag_id", id).Bool("enabled", enabled).Msg("Feature flag toggled")
	s.publishEvent(ctx, "feature.toggled", map[string]string{
		"actor_id": actorID,
		"flag_id":  id,
		"enabled":  strconv.FormatBool(enabled),
	})
	return nil
}

func (s *adminService) publishEvent(ctx context.Context, eventType string, fields map[string]string) {
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
