package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"app/internal/clock"
	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

var adminTestClock = clock.Fixed{T: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}

func newTestAdminService(ents *fakeEntitlementRepo, features *fakeFeatureRepo, pub *fakePublisher) AdminService {
	return NewAdminService(ents, features, pub, "entitlement-events-test", adminTestClock, zerolog.Nop())
}

func seedUser(repo *fakeEntitlementRepo, userID string, role model.Role) {
	ent := model.NewUserEntitlement(userID, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	ent.Role = role
	repo.put(ent)
}

func TestCreateFeatureRequiresAdmin(t *testing.T) {
	ents := newFakeEntitlementRepo(time.Now)
	features := &fakeFeatureRepo{}
	svc := newTestAdminService(ents, features, &fakePublisher{})
	ctx := context.Background()

	seedUser(ents, "standard-user", model.RoleStandard)

	cases := []struct {
		name  string
		actor string
	}{
		{"standard role", "standard-user"},
		{"missing entitlement record", "ghost"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateFeature(ctx, tc.actor, "aiOverview"); !errors.Is(err, ErrForbidden) {
				t.Errorf("expected ErrForbidden, got %v", err)
			}
		})
	}
	if flags, _ := features.List(ctx); len(flags) != 0 {
		t.Errorf("expected no flags created, got %d", len(flags))
	}
}

func TestCreateFeatureAsAdmin(t *testing.T) {
	ents := newFakeEntitlementRepo(time.Now)
	features := &fakeFeatureRepo{}
	pub := &fakePublisher{}
	svc := newTestAdminService(ents, features, pub)
	ctx := context.Background()

	seedUser(ents, "admin-user", model.RoleAdmin)

	flag, err := svc.CreateFeature(ctx, "admin-user", "aiOverview")
	if err != nil {
		t.Fatalf("CreateFeature returned error: %v", err)
	}
	if flag.Name != "aiOverview" || !flag.Enabled || flag.ID == "" {
		t.Errorf("unexpected flag: %+v", flag)
	}

	if _, err := svc.CreateFeature(ctx, "admin-user", "aiOverview"); !errors.Is(err, repository.ErrFeatureExists) {
		t.Errorf("expected ErrFeatureExists for duplicate name, got %v", err)
	}

	if len(pub.events) != 1 || pub.events[0]["type"] != "feature.created" {
		t.Fatalf("expected one feature.created event, got %+v", pub.events)
	}
	if got := pub.events[0]["occurred_at"]; got != "2025-06-01T09:00:00Z" {
		t.Errorf("expected event stamped from the injected clock, got %v", got)
	}
}

func TestToggleFeature(t *testing.T) {
	ents := newFakeEntitlementRepo(time.Now)
	features := &fakeFeatureRepo{}
	pub := &fakePublisher{}
	svc := newTestAdminService(ents, features, pub)
	ctx := context.Background()

	seedUser(ents, "admin-user", model.RoleAdmin)
	seedUser(ents, "standard-user", model.RoleStandard)

	flag, err := svc.CreateFeature(ctx, "admin-user", "aiOverview")
	if err != nil {
		t.Fatalf("CreateFeature returned error: %v", err)
	}

	if err := svc.ToggleFeature(ctx, "standard-user", flag.ID, false); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for standard actor, got %v", err)
	}

	if err := svc.ToggleFeature(ctx, "admin-user", flag.ID, false); err != nil {
		t.Fatalf("ToggleFeature returned error: %v", err)
	}
	flags, _ := features.List(ctx)
	if len(flags) != 1 || flags[0].Enabled {
		t.Errorf("expected flag disabled, got %+v", flags)
	}

	if err := svc.ToggleFeature(ctx, "admin-user", "no-such-id", true); !errors.Is(err, repository.ErrFeatureNotFound) {
		t.Errorf("expected ErrFeatureNotFound, got %v", err)
	}
}
