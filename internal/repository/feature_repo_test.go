package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"app/internal/model"

	"github.com/google/uuid"
)

func featureNamed(flags []model.FeatureFlag, name string) *model.FeatureFlag {
	for i := range flags {
		if flags[i].Name == name {
			return &flags[i]
		}
	}
	return nil
}

func TestCreateFeatureRejectsDuplicateName(t *testing.T) {
	pool := testPool(t)
	repo := NewFeatureRepo(pool)
	ctx := context.Background()
	name := "it-flag-" + uuid.NewString()

	flag, err := repo.Create(ctx, name)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !flag.Enabled {
		t.Error("expected new flags to be enabled by default")
	}

	if _, err := repo.Create(ctx, name); !errors.Is(err, ErrFeatureExists) {
		t.Errorf("expected ErrFeatureExists for duplicate name, got %v", err)
	}
}

func TestSetEnabledUnknownID(t *testing.T) {
	pool := testPool(t)
	repo := NewFeatureRepo(pool)

	err := repo.SetEnabled(context.Background(), uuid.NewString(), true)
	if !errors.Is(err, ErrFeatureNotFound) {
		t.Errorf("expected ErrFeatureNotFound, got %v", err)
	}
}

func TestFeatureSubscribeObservesToggle(t *testing.T) {
	pool := testPool(t)
	repo := NewFeatureRepo(pool)
	ctx := context.Background()
	name := "it-flag-" + uuid.NewString()

	flag, err := repo.Create(ctx, name)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	sub, err := repo.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	defer sub.Close()

	select {
	case flags := <-sub.Snapshots():
		f := featureNamed(flags, name)
		if f == nil || !f.Enabled {
			t.Fatalf("expected %q enabled in initial snapshot", name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for initial snapshot")
	}

	if err := repo.SetEnabled(ctx, flag.ID, false); err != nil {
		t.Fatalf("SetEnabled returned error: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case flags, ok := <-sub.Snapshots():
			if !ok {
				t.Fatalf("subscription closed early: %v", sub.Err())
			}
			if f := featureNamed(flags, name); f != nil && !f.Enabled {
				return
			}
		case <-deadline:
			t.Fatal("timeout waiting for toggle snapshot")
		}
	}
}
