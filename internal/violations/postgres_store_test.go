//go:build integration

package violations

import (
	"context"
	"testing"
	"time"

	"github.com/modsentry/modsentry/internal/testutil"
)

func TestPostgres_RecordAndCountsFor(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	recent := &Violation{
		ID: "vio_recent", GroupID: 1, UserID: 42,
		Type: TypeSpam, Severity: "high", RiskScore: 88.2,
		ActionTaken: "delete_warn",
	}
	if err := store.Record(ctx, recent); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	old := &Violation{
		ID: "vio_old", GroupID: 1, UserID: 42,
		Type: TypeToxic, Severity: "medium", RiskScore: 61.0,
		ActionTaken: "delete_warn",
		CreatedAt:   time.Now().Add(-48 * time.Hour),
	}
	if err := store.Record(ctx, old); err != nil {
		t.Fatalf("Record (backdated) failed: %v", err)
	}

	counts, err := store.CountsFor(ctx, 1, 42)
	if err != nil {
		t.Fatalf("CountsFor failed: %v", err)
	}

	if counts.Violations24h != 1 {
		t.Errorf("Expected 1 violation in 24h, got %d", counts.Violations24h)
	}
	if counts.Violations7d != 2 {
		t.Errorf("Expected 2 violations in 7d, got %d", counts.Violations7d)
	}
	if counts.Total != 2 {
		t.Errorf("Expected 2 total violations, got %d", counts.Total)
	}
}

func TestPostgres_ListByUserOrderAndNullText(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	store.Record(ctx, &Violation{
		ID: "vio_1", GroupID: 2, UserID: 7,
		Type: TypeScam, Severity: "critical", RiskScore: 95,
		MessageText: "free crypto here", ActionTaken: "delete_mute_notify",
		CreatedAt: time.Now().Add(-time.Hour),
	})
	store.Record(ctx, &Violation{
		ID: "vio_2", GroupID: 2, UserID: 7,
		Type: TypeFlood, Severity: "low", RiskScore: 52,
		ActionTaken: "soft_warn_monitor",
	})

	list, err := store.ListByUser(ctx, 2, 7, 10)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 violations, got %d", len(list))
	}

	// Most recent first
	if list[0].ID != "vio_2" {
		t.Errorf("Expected vio_2 first, got %s", list[0].ID)
	}
	if list[1].MessageText != "free crypto here" {
		t.Errorf("Expected message text preserved, got %q", list[1].MessageText)
	}
	if list[0].MessageText != "" {
		t.Errorf("Expected empty text for NULL message_text, got %q", list[0].MessageText)
	}

	// Other users are not included
	other, _ := store.ListByUser(ctx, 2, 8, 10)
	if len(other) != 0 {
		t.Errorf("Expected no violations for other user, got %d", len(other))
	}
}
