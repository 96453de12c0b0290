package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"app/internal/clock"
	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// fakeEntitlementRepo is an in-memory EntitlementRepository. Writes feed every
// open fake stream, mirroring the store's push channel.
type fakeEntitlementRepo struct {
	mu      sync.Mutex
	records map[string]*model.UserEntitlement
	streams []*fakeEntitlementStream
	now     func() time.Time

	failReset error
}

func newFakeEntitlementRepo(now func() time.Time) *fakeEntitlementRepo {
	return &fakeEntitlementRepo{
		records: map[string]*model.UserEntitlement{},
		now:     now,
	}
}

func (r *fakeEntitlementRepo) snapshot(userID string) *model.UserEntitlement {
	e, ok := r.records[userID]
	if !ok {
		return nil
	}
	cp := *e
	cp.Usage = make(map[string]int, len(e.Usage))
	for k, v := range e.Usage {
		cp.Usage[k] = v
	}
	return &cp
}

func (r *fakeEntitlementRepo) notifyLocked(userID string) {
	for _, s := range r.streams {
		if s.userID == userID && !s.closed {
			s.push(r.snapshot(userID))
		}
	}
}

func (r *fakeEntitlementRepo) put(e *model.UserEntitlement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[e.UserID] = e
	r.notifyLocked(e.UserID)
}

func (r *fakeEntitlementRepo) Get(_ context.Context, userID string) (*model.UserEntitlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(userID), nil
}

func (r *fakeEntitlementRepo) Create(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[userID]; ok {
		return nil
	}
	r.records[userID] = model.NewUserEntitlement(userID, r.now())
	r.notifyLocked(userID)
	return nil
}

func (r *fakeEntitlementRepo) IncrementUsage(_ context.Context, userID, featureKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.records[userID]
	if !ok {
		e = model.NewUserEntitlement(userID, r.now())
		r.records[userID] = e
	}
	e.Usage[featureKey]++
	e.LastUsageAt = r.now()
	r.notifyLocked(userID)
	return nil
}

func (r *fakeEntitlementRepo) SetPlan(_ context.Context, userID string, plan model.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.records[userID]
	if !ok {
		e = model.NewUserEntitlement(userID, r.now())
		r.records[userID] = e
	}
	e.Plan = plan
	r.notifyLocked(userID)
	return nil
}

func (r *fakeEntitlementRepo) ResetUsage(_ context.Context, userID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failReset != nil {
		return r.failReset
	}
	e, ok := r.records[userID]
	if !ok {
		return nil
	}
	e.Usage = map[string]int{}
	e.LastUsageAt = now
	r.notifyLocked(userID)
	return nil
}

func (r *fakeEntitlementRepo) ResetStale(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.records {
		if e.LastUsageAt.Before(cutoff) && len(e.Usage) > 0 {
			e.Usage = map[string]int{}
			e.LastUsageAt = r.now()
			n++
			r.notifyLocked(e.UserID)
		}
	}
	return n, nil
}

func (r *fakeEntitlementRepo) Subscribe(_ context.Context, userID string) (repository.EntitlementStream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &fakeEntitlementStream{
		userID:    userID,
		snapshots: make(chan *model.UserEntitlement, 16),
	}
	s.push(r.snapshot(userID))
	r.streams = append(r.streams, s)
	return s, nil
}

// fakeEntitlementStream buffers instead of conflating so tests can assert on
// every emission deterministically.
type fakeEntitlementStream struct {
	userID    string
	snapshots chan *model.UserEntitlement
	closed    bool
}

func (s *fakeEntitlementStream) push(e *model.UserEntitlement) { s.snapshots <- e }

func (s *fakeEntitlementStream) Snapshots() <-chan *model.UserEntitlement { return s.snapshots }

func (s *fakeEntitlementStream) Err() error { return nil }

func (s *fakeEntitlementStream) Close() {
	if !s.closed {
		s.closed = true
		close(s.snapshots)
	}
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []map[string]interface{}
}

func (p *fakePublisher) Publish(_ context.Context, topic string, payload []byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ev map[string]interface{}
	if err := json.Unmarshal(payload, &ev); err != nil {
		return "", err
	}
	p.events = append(p.events, ev)
	return "msg-1", nil
}

func newTestEntitlementService(repo *fakeEntitlementRepo, pub *fakePublisher, clk clock.Clock) EntitlementService {
	return NewEntitlementService(repo, pub, "entitlement-events-test", clk, zerolog.Nop())
}

func TestCanUse(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	free := model.NewUserEntitlement("u1", now)
	free.Usage = map[string]int{"keywordGenerator": 2, "contentAnalysis": 2}

	pro := model.NewUserEntitlement("u2", now)
	pro.Plan = model.PlanPro
	pro.Usage = map[string]int{"keywordGenerator": 100}

	cases := []struct {
		name    string
		ent     *model.UserEntitlement
		feature string
		want    bool
	}{
		{"nil entitlement is permissive", nil, "keywordGenerator", true},
		{"free under limit", free, "keywordGenerator", true},
		{"free at limit", free, "contentAnalysis", false},
		{"free unmetered key", free, "competitorTracking", true},
		{"pro ignores counters", pro, "keywordGenerator", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanUse(tc.ent, tc.feature); got != tc.want {
				t.Errorf("CanUse(%s) = %v, want %v", tc.feature, got, tc.want)
			}
		})
	}
}

func TestNeedsRolloverIsIdempotentWithinDay(t *testing.T) {
	yesterday := time.Date(2025, 5, 31, 23, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	ent := model.NewUserEntitlement("u1", yesterday)
	ent.Usage = map[string]int{"keywordGenerator": 3}

	if !NeedsRollover(ent, now) {
		t.Fatal("expected rollover for counters from a prior day")
	}

	// A reset stamps the current time, so a second check is a no-op.
	ent.Usage = map[string]int{}
	ent.LastUsageAt = now
	if NeedsRollover(ent, now.Add(2*time.Hour)) {
		t.Error("expected no rollover after a same-day reset")
	}
	if NeedsRollover(nil, now) {
		t.Error("expected no rollover for a nil entitlement")
	}
}

func TestGetSubstitutesDefaultForMissingRecord(t *testing.T) {
	clk := clock.Fixed{T: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	repo := newFakeEntitlementRepo(clk.Now)
	svc := newTestEntitlementService(repo, &fakePublisher{}, clk)

	ent, err := svc.Get(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if ent == nil {
		t.Fatal("expected a default entitlement, got nil")
	}
	if ent.Plan != model.PlanFree || ent.Role != model.RoleStandard || len(ent.Usage) != 0 {
		t.Errorf("unexpected default entitlement: %+v", ent)
	}
}

func TestGetAppliesRolloverThroughStore(t *testing.T) {
	clk := clock.Fixed{T: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	repo := newFakeEntitlementRepo(clk.Now)
	svc := newTestEntitlementService(repo, &fakePublisher{}, clk)

	stale := model.NewUserEntitlement("u1", time.Date(2025, 5, 31, 22, 0, 0, 0, time.UTC))
	stale.Usage = map[string]int{"keywordGenerator": 3, "contentAnalysis": 1}
	repo.put(stale)

	ent, err := svc.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got := ent.UsageCount("keywordGenerator"); got != 0 {
		t.Errorf("expected counters reset after rollover, got %d", got)
	}
	if !clock.SameDay(ent.LastUsageAt, clk.Now()) {
		t.Errorf("expected last usage stamped today, got %v", ent.LastUsageAt)
	}
	// The reset went through the store, not a local mutation.
	stored, _ := repo.Get(context.Background(), "u1")
	if got := stored.UsageCount("keywordGenerator"); got != 0 {
		t.Errorf("expected stored counters reset, got %d", got)
	}
}

func TestGetFailsOpenWhenResetFails(t *testing.T) {
	clk := clock.Fixed{T: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	repo := newFakeEntitlementRepo(clk.Now)
	svc := newTestEntitlementService(repo, &fakePublisher{}, clk)

	stale := model.NewUserEntitlement("u1", time.Date(2025, 5, 31, 22, 0, 0, 0, time.UTC))
	stale.Usage = map[string]int{"keywordGenerator": 3}
	repo.put(stale)
	repo.failReset = errors.New("write refused")

	ent, err := svc.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	// Last known state, counters intact.
	if got := ent.UsageCount("keywordGenerator"); got != 3 {
		t.Errorf("expected last known counters on reset failure, got %d", got)
	}
}

func TestWatchObservesUpgradeAndRollover(t *testing.T) {
	clk := clock.Fixed{T: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	repo := newFakeEntitlementRepo(clk.Now)
	pub := &fakePublisher{}
	svc := newTestEntitlementService(repo, pub, clk)
	ctx := context.Background()

	stale := model.NewUserEntitlement("u1", time.Date(2025, 5, 31, 22, 0, 0, 0, time.UTC))
	stale.Usage = map[string]int{"keywordGenerator": 3}
	repo.put(stale)

	watch, err := svc.Watch(ctx, "u1")
	if err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}
	defer watch.Close()

	// The stale initial snapshot is suppressed; the first observed state is
	// the converged post-reset one.
	first := nextSnapshot(t, watch.Snapshots())
	if got := first.UsageCount("keywordGenerator"); got != 0 {
		t.Fatalf("expected reset counters in first snapshot, got %d", got)
	}

	if err := svc.Upgrade(ctx, "u1"); err != nil {
		t.Fatalf("Upgrade returned error: %v", err)
	}
	upgraded := nextSnapshot(t, watch.Snapshots())
	if upgraded.Plan != model.PlanPro {
		t.Errorf("expected pro plan after upgrade, got %s", upgraded.Plan)
	}

	if len(pub.events) != 1 || pub.events[0]["type"] != "entitlement.plan_upgraded" {
		t.Errorf("expected one plan_upgraded event, got %+v", pub.events)
	}
}

func TestWatchEmitsDefaultForMissingRecord(t *testing.T) {
	clk := clock.Fixed{T: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	repo := newFakeEntitlementRepo(clk.Now)
	svc := newTestEntitlementService(repo, &fakePublisher{}, clk)

	watch, err := svc.Watch(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}
	defer watch.Close()

	ent := nextSnapshot(t, watch.Snapshots())
	if ent == nil || ent.Plan != model.PlanFree {
		t.Fatalf("expected default free entitlement, got %+v", ent)
	}
}

// Checking the allowance and recording the use are two steps, not one atomic
// operation. Racing sessions that both pass the check both record, so the cap
// can be overrun by the number of racing sessions.
func TestConcurrentSessionsMayOverrunSoftLimit(t *testing.T) {
	clk := clock.Fixed{T: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	repo := newFakeEntitlementRepo(clk.Now)
	svc := newTestEntitlementService(repo, &fakePublisher{}, clk)
	ctx := context.Background()

	ent := model.NewUserEntitlement("u1", clk.Now())
	ent.Usage = map[string]int{"keywordGenerator": 2} // limit is 3
	repo.put(ent)

	const sessions = 4
	var wg sync.WaitGroup
	allowed := make(chan bool, sessions)
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := svc.Get(ctx, "u1")
			if err != nil {
				t.Errorf("Get returned error: %v", err)
				return
			}
			if !CanUse(snap, "keywordGenerator") {
				allowed <- false
				return
			}
			if err := svc.RecordUse(ctx, "u1", "keywordGenerator"); err != nil {
				t.Errorf("RecordUse returned error: %v", err)
				return
			}
			allowed <- true
		}()
	}
	wg.Wait()
	close(allowed)

	var recorded int
	for ok := range allowed {
		if ok {
			recorded++
		}
	}
	// Every session saw count 2 < 3 before any write landed, so all of them
	// may record; none may be lost.
	final, _ := repo.Get(ctx, "u1")
	if got := final.UsageCount("keywordGenerator"); got != 2+recorded {
		t.Errorf("expected %d recorded uses, store has %d", 2+recorded, got-2)
	}
	if recorded < 1 {
		t.Error("expected at least one session to record")
	}
}

func TestSweepStaleCountsCorrectedRecords(t *testing.T) {
	clk := clock.Fixed{T: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	repo := newFakeEntitlementRepo(clk.Now)
	svc := newTestEntitlementService(repo, &fakePublisher{}, clk)

	stale := model.NewUserEntitlement("old", time.Date(2025, 5, 30, 10, 0, 0, 0, time.UTC))
	stale.Usage = map[string]int{"contentAnalysis": 2}
	repo.put(stale)

	fresh := model.NewUserEntitlement("new", clk.Now())
	fresh.Usage = map[string]int{"contentAnalysis": 1}
	repo.put(fresh)

	n, err := svc.SweepStale(context.Background())
	if err != nil {
		t.Fatalf("SweepStale returned error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 corrected record, got %d", n)
	}
	kept, _ := repo.Get(context.Background(), "new")
	if got := kept.UsageCount("contentAnalysis"); got != 1 {
		t.Errorf("expected same-day counters untouched, got %d", got)
	}
}

// The sweep's day boundary is the clock's local midnight, the same boundary
// the lazy rollover uses. A record last used late yesterday local time is
// stale even when it still falls on today's UTC date.
func TestSweepStaleUsesClockLocalMidnight(t *testing.T) {
	east := time.FixedZone("UTC+10", 10*60*60)
	clk := clock.Fixed{T: time.Date(2025, 6, 1, 1, 0, 0, 0, east)}
	repo := newFakeEntitlementRepo(clk.Now)
	svc := newTestEntitlementService(repo, &fakePublisher{}, clk)

	// 2025-05-31 23:30 local is 2025-05-31 13:30 UTC — same UTC day as the
	// clock's now (2025-05-31 15:00 UTC), but yesterday locally.
	stale := model.NewUserEntitlement("u1", time.Date(2025, 5, 31, 23, 30, 0, 0, east))
	stale.Usage = map[string]int{"keywordGenerator": 3}
	repo.put(stale)

	n, err := svc.SweepStale(context.Background())
	if err != nil {
		t.Fatalf("SweepStale returned error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected record from before local midnight to be reset, corrected %d", n)
	}
}

func nextSnapshot(t *testing.T, ch <-chan *model.UserEntitlement) *model.UserEntitlement {
	t.Helper()
	select {
	case e, ok := <-ch:
		if !ok {
			t.Fatal("snapshot channel closed")
		}
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}
