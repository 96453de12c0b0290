package service

import (
	"context"
	"sync"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// FeatureRegistry exposes enabled/disabled lookup over a cached live view of
// the global flag collection. Writes go through AdminService and are observed
// here only via the store's push channel, never applied locally.
type FeatureRegistry interface {
	// Start opens the background subscription feeding the cache. It returns
	// once the first snapshot has been applied and keeps the cache current
	// until ctx is cancelled.
	Start(ctx context.Context) error
	// IsEnabled looks the name up in the latest snapshot. Unregistered names
	// are disabled.
	IsEnabled(name string) bool
	// Flags returns the latest snapshot.
	Flags() []model.FeatureFlag
	// Watch opens an independent live view for a single consumer, who must
	// Close it.
	Watch(ctx context.Context) (repository.FeatureStream, error)
}

type featureRegistry struct {
	repo   repository.FeatureRepository
	logger zerolog.Logger

	mu      sync.RWMutex
	byName  map[string]model.FeatureFlag
	current []model.FeatureFlag
}

// NewFeatureRegistry creates a new FeatureRegistry with a scoped logger.
func NewFeatureRegistry(repo repository.FeatureRepository, logger zerolog.Logger) FeatureRegistry {
	return &featureRegistry{
		repo:   repo,
		logger: logger.With().Str("service", "FeatureRegistry").Logger(),
		byName: map[string]model.FeatureFlag{},
	}
}

func (r *featureRegistry) Start(ctx context.Context) error {
	stream, err := r.repo.Subscribe(ctx)
	if err != nil {
		return err
	}
	r.apply(<-stream.Snapshots())

	go func() {
		for {
			for flags := range stream.Snapshots() {
				r.apply(flags)
			}
			stream.Close()
			if ctx.Err() != nil {
				return
			}
			// The subscription dropped; keep serving the cached snapshot and
			// reconnect.
			r.logger.Warn().Err(stream.Err()).Msg("Feature subscription lost, reconnecting")
			for {
				select {
				case <-ctx.Done():
					return
				case <-time.After(5 * time.Second):
				}
				stream, err = r.repo.Subscribe(ctx)
				if err == nil {
					break
				}
				r.logger.Warn().Err(err).Msg("Feature subscription reconnect failed")
			}
		}
	}()

	return nil
}

func (r *featureRegistry) apply(flags []model.FeatureFlag) {
	byName := make(map[string]model.FeatureFlag, len(flags))
	for _, f := range flags {
		byName[f.Name] = f
	}
	r.mu.Lock()
	r.byName = byName
	r.current = flags
	r.mu.Unlock()
}

func (r *featureRegistry) IsEnabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.byName[name]
	return ok && f.Enabled
}

func (r *featureRegistry) Flags() []model.FeatureFlag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.FeatureFlag, len(r.current))
	copy(out, r.current)
	return out
}

func (r *featureRegistry) Watch(ctx context.Context) (repository.FeatureStream, error) {
	stream, err := r.repo.Subscribe(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to subscribe to features")
		return nil, err
	}
	return stream, nil
}
