package trust

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/modsentry/modsentry/internal/config"
)

func newTestEngine() *Engine {
	return NewEngine(config.DefaultTrustConfig(), NewMemoryStore())
}

func TestCalculateUpdateDeltas(t *testing.T) {
	engine := newTestEngine()

	cases := []struct {
		action   ActionType
		severity Severity
		change   float64
	}{
		{ActionPositive, "", 0.8},
		{ActionViolation, SeverityLow, -5},
		{ActionViolation, SeverityMedium, -10},
		{ActionViolation, SeverityHigh, -15},
		{ActionViolation, SeverityCritical, -25},
		{ActionViolation, "unknown", -5}, // unknown severity counts as low
		{ActionMute, "", -8},
		{ActionBanAttempt, "", -15},
	}
	for _, tc := range cases {
		u := engine.CalculateUpdate(50, tc.action, tc.severity)
		if u.Change != tc.change {
			t.Errorf("%s/%s: change = %v, want %v", tc.action, tc.severity, u.Change, tc.change)
		}
		if u.NewScore != 50+tc.change {
			t.Errorf("%s/%s: new score = %v, want %v", tc.action, tc.severity, u.NewScore, 50+tc.change)
		}
	}
}

func TestClampingNeverLeavesBounds(t *testing.T) {
	engine := newTestEngine()

	// From 95: a ban_attempt and repeated critical violations must floor
	// at 0, never go negative.
	score := 95.0
	score = engine.CalculateUpdate(score, ActionBanAttempt, "").NewScore // 80
	score = engine.CalculateUpdate(score, ActionViolation, SeverityCritical).NewScore // 55
	score = engine.CalculateUpdate(score, ActionViolation, SeverityCritical).NewScore // 30
	score = engine.CalculateUpdate(score, ActionViolation, SeverityCritical).NewScore // 5
	score = engine.CalculateUpdate(score, ActionViolation, SeverityCritical).NewScore // clamped
	if score != 0 {
		t.Errorf("score should floor at 0, got %v", score)
	}

	// Ceiling
	u := engine.CalculateUpdate(99.9, ActionPositive, "")
	if u.NewScore != 100 {
		t.Errorf("score should cap at 100, got %v", u.NewScore)
	}
}

func TestRestrictions(t *testing.T) {
	engine := newTestEngine()

	if r := engine.Restrictions(50); len(r) != 0 {
		t.Errorf("midpoint score should have no restrictions, got %v", r)
	}
	if r := engine.Restrictions(20); len(r) != 1 || r[0] != RestrictionMedia {
		t.Errorf("score 20 should be media_restricted only, got %v", r)
	}
	// Below both thresholds: both apply simultaneously
	r := engine.Restrictions(5)
	if len(r) != 2 || r[0] != RestrictionMedia || r[1] != RestrictionAutoBan {
		t.Errorf("score 5 should carry both restrictions, got %v", r)
	}
}

func TestDecay(t *testing.T) {
	engine := newTestEngine()

	cases := []struct {
		score float64
		days  int
		want  float64
	}{
		{50, 0, 50},
		{50, 6, 50},  // grace period
		{50, 7, 50},  // first week complete, no additional full week yet
		{50, 13, 50}, // still no additional full week
		{50, 14, 48}, // one full week past grace
		{50, 21, 46},
		{50, 70, 32}, // nine weeks past grace
		{3, 70, 0},   // floored at min
	}
	for _, tc := range cases {
		if got := engine.Decay(tc.score, tc.days); got != tc.want {
			t.Errorf("Decay(%v, %d days) = %v, want %v", tc.score, tc.days, got, tc.want)
		}
	}
}

func TestApplyDefaultsToInitialScore(t *testing.T) {
	engine := newTestEngine()

	// First interaction for an unseen member starts from the initial 50.
	u, err := engine.Apply(context.Background(), 1, 100, ActionViolation, SeverityLow)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if u.OldScore != 50 {
		t.Errorf("old score = %v, want initial 50", u.OldScore)
	}
	if u.NewScore != 45 {
		t.Errorf("new score = %v, want 45", u.NewScore)
	}
}

func TestApplyPersistsScore(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	if _, err := engine.Apply(ctx, 1, 100, ActionMute, ""); err != nil {
		t.Fatalf("apply: %v", err)
	}
	score, restrictions, err := engine.Current(ctx, 1, 100)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if score != 42 {
		t.Errorf("persisted score = %v, want 42", score)
	}
	if len(restrictions) != 0 {
		t.Errorf("unexpected restrictions at 42: %v", restrictions)
	}
}

type failingSetStore struct {
	*MemoryStore
}

func (s *failingSetStore) Set(context.Context, int64, int64, float64) error {
	return errors.New("disk on fire")
}

func TestApplySurfacesWriteFailureWithUpdate(t *testing.T) {
	engine := NewEngine(config.DefaultTrustConfig(), &failingSetStore{NewMemoryStore()})

	u, err := engine.Apply(context.Background(), 1, 100, ActionViolation, SeverityHigh)
	if err == nil {
		t.Fatal("expected write error")
	}
	// The computed update is still returned for retry/logging.
	if u.NewScore != 35 {
		t.Errorf("computed update lost on write failure: %+v", u)
	}
}

func TestConcurrentApplySameMemberLosesNoUpdates(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = engine.Apply(ctx, 1, 100, ActionViolation, SeverityLow)
		}()
	}
	wg.Wait()

	score, _, err := engine.Current(ctx, 1, 100)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	// 50 - 20*5 clamps at 0; with serialization every update lands.
	if score != 0 {
		t.Errorf("score after %d concurrent violations = %v, want 0", n, score)
	}
}

func TestApplyDecayWritesDecayedScore(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	if err := engine.store.Set(ctx, 1, 100, 60); err != nil {
		t.Fatalf("set: %v", err)
	}

	next, applied, err := engine.ApplyDecay(ctx, 1, 100, 60, 14)
	if err != nil {
		t.Fatalf("apply decay: %v", err)
	}
	if !applied || next != 58 {
		t.Errorf("decay result = (%v, %v), want (58, true)", next, applied)
	}
	score, _, err := engine.Current(ctx, 1, 100)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if score != 58 {
		t.Errorf("persisted score = %v, want 58", score)
	}
}

func TestApplyDecaySkipsWhenScoreMovedSinceListing(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	if err := engine.store.Set(ctx, 1, 100, 60); err != nil {
		t.Fatalf("set: %v", err)
	}

	// A sweep lists the member at 60; before the decay write lands, a
	// ban attempt drops the score to 45. The decay must not erase it.
	if _, err := engine.Apply(ctx, 1, 100, ActionBanAttempt, ""); err != nil {
		t.Fatalf("apply: %v", err)
	}

	next, applied, err := engine.ApplyDecay(ctx, 1, 100, 60, 14)
	if err != nil {
		t.Fatalf("apply decay: %v", err)
	}
	if applied {
		t.Error("decay from a stale listing should not write")
	}
	if next != 45 {
		t.Errorf("current score = %v, want 45", next)
	}
	score, _, err := engine.Current(ctx, 1, 100)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if score != 45 {
		t.Errorf("penalty overwritten by decay: score = %v, want 45", score)
	}
}

func TestApplyDecayNoWriteInsideGracePeriod(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	if err := engine.store.Set(ctx, 1, 100, 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	_, applied, err := engine.ApplyDecay(ctx, 1, 100, 60, 6)
	if err != nil {
		t.Fatalf("apply decay: %v", err)
	}
	if applied {
		t.Error("no decay should apply inside the grace period")
	}
}

func TestMemoryStoreListInactive(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, 1, 100, 40); err != nil {
		t.Fatalf("set: %v", err)
	}

	// Nothing is older than a cutoff in the past
	old, err := store.ListInactive(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(old) != 0 {
		t.Errorf("expected no inactive records, got %d", len(old))
	}

	// Everything is older than a future cutoff
	all, err := store.ListInactive(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].Score != 40 {
		t.Errorf("expected the one record back, got %+v", all)
	}
}
