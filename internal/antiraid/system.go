package antiraid

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/modsentry/modsentry/internal/config"
	"github.com/modsentry/modsentry/internal/idgen"
	"github.com/modsentry/modsentry/internal/metrics"
	"github.com/modsentry/modsentry/internal/traces"
)

const (
	windowDuration = 5 * time.Minute
	maxWindowSize  = 500

	minEventsForDetection = 3
	newAccountWaveMin     = 5
	patternThreshold      = 0.7
	patternAffectedCount  = 10
)

// System tracks join windows and raid status per group.
type System struct {
	cfg       config.RaidConfig
	store     Store
	broadcast Broadcaster
	groups    sync.Map // map[int64]*groupState

	now func() time.Time
}

type groupState struct {
	mu     sync.Mutex
	joins  []JoinEvent
	status *Status
}

// NewSystem creates an anti-raid system backed by the given audit store.
// A nil store disables the audit trail.
func NewSystem(cfg config.RaidConfig, store Store) *System {
	return &System{
		cfg:   cfg,
		store: store,
		now:   time.Now,
	}
}

// WithBroadcaster attaches a realtime event feed.
func (s *System) WithBroadcaster(b Broadcaster) *System {
	s.broadcast = b
	return s
}

// RecordJoin appends a join event to the group's window, prunes stale
// entries, and evaluates raid detection. Protection activates only on a
// fresh monitoring-to-active transition; a detection while a raid is
// already active leaves the existing status untouched.
func (s *System) RecordJoin(ctx context.Context, groupID, userID int64, username string, accountCreatedAt *time.Time) Detection {
	ctx, span := traces.StartSpan(ctx, "antiraid.record_join",
		traces.GroupID(groupID), traces.UserID(userID))
	defer span.End()

	g := s.group(groupID)
	g.mu.Lock()
	defer g.mu.Unlock()

	now := s.now()
	g.joins = append(g.joins, JoinEvent{
		UserID:           userID,
		Username:         username,
		AccountCreatedAt: accountCreatedAt,
		JoinedAt:         now,
	})
	pruneWindow(g, now)

	det := s.detect(g.joins, now)

	if det.IsRaid {
		span.SetAttributes(traces.RaidType(string(det.RaidType)))
	}

	if det.IsRaid && (g.status == nil || !g.status.Active) {
		g.status = &Status{
			Active:        true,
			RaidType:      det.RaidType,
			AffectedUsers: append([]int64(nil), det.AffectedUsers...),
			StartedAt:     now,
		}
		metrics.RaidsDetectedTotal.WithLabelValues(string(det.RaidType)).Inc()
		metrics.ActiveRaids.Inc()
		if s.broadcast != nil {
			s.broadcast.Broadcast(EventRaidDetected, groupID, det)
		}
		if s.store != nil {
			ev := &Event{
				ID:            idgen.WithPrefix("raid_"),
				GroupID:       groupID,
				RaidType:      det.RaidType,
				Confidence:    det.Confidence,
				AffectedUsers: append([]int64(nil), det.AffectedUsers...),
				TriggerReason: det.TriggerReason,
				DetectedAt:    now,
			}
			go func() {
				_ = s.store.Record(context.Background(), ev)
			}()
		}
	}

	return det
}

// Deactivate ends raid protection for a group. It reports whether an
// active raid was cleared. Deactivation is always explicit; protection
// never times out on its own.
func (s *System) Deactivate(groupID int64) bool {
	g := s.group(groupID)
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status == nil || !g.status.Active {
		return false
	}
	now := s.now()
	g.status.Active = false
	g.status.EndedAt = &now
	metrics.ActiveRaids.Dec()
	return true
}

// IsActive reports whether raid protection is currently active for a group.
func (s *System) IsActive(groupID int64) bool {
	g := s.group(groupID)
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status != nil && g.status.Active
}

// Status returns a copy of the group's raid status, or ok=false if the
// group has never had a raid detected.
func (s *System) Status(groupID int64) (Status, bool) {
	g := s.group(groupID)
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status == nil {
		return Status{}, false
	}
	cp := *g.status
	cp.AffectedUsers = append([]int64(nil), g.status.AffectedUsers...)
	return cp, true
}

func (s *System) group(groupID int64) *groupState {
	v, _ := s.groups.LoadOrStore(groupID, &groupState{})
	return v.(*groupState)
}

// pruneWindow drops entries older than 5 minutes and caps the window at
// maxWindowSize, oldest first (caller holds the group lock).
func pruneWindow(g *groupState, now time.Time) {
	cutoff := now.Add(-windowDuration)
	start := 0
	for start < len(g.joins) && !g.joins[start].JoinedAt.After(cutoff) {
		start++
	}
	if start > 0 {
		g.joins = g.joins[start:]
	}
	if len(g.joins) > maxWindowSize {
		g.joins = g.joins[len(g.joins)-maxWindowSize:]
	}
}

// detect evaluates the heuristics in priority order; the first match
// wins. It never errors: sparse data returns a not-a-raid result.
func (s *System) detect(events []JoinEvent, now time.Time) Detection {
	if len(events) < minEventsForDetection {
		return Detection{
			RaidType:          RaidNone,
			AffectedUsers:     []int64{},
			RecommendedAction: ActionNone,
			TriggerReason:     "Insufficient data",
		}
	}

	// Mass join velocity over the trailing window.
	velocityCutoff := now.Add(-time.Duration(s.cfg.TimeWindowSeconds) * time.Second)
	var recent []int64
	for _, e := range events {
		if e.JoinedAt.After(velocityCutoff) {
			recent = append(recent, e.UserID)
		}
	}
	if len(recent) >= s.cfg.JoinThreshold {
		return Detection{
			IsRaid:            true,
			RaidType:          RaidMassJoin,
			Confidence:        math.Min(float64(len(recent))/20, 1.0),
			AffectedUsers:     recent,
			RecommendedAction: ActionSlowMode,
			TriggerReason:     fmt.Sprintf("%d joins in %d seconds", len(recent), s.cfg.TimeWindowSeconds),
		}
	}

	// New account wave. Joins with unknown account age never count.
	ageCutoff := now.AddDate(0, 0, -s.cfg.NewAccountDays)
	var fresh []int64
	for _, e := range events {
		if e.AccountCreatedAt != nil && e.AccountCreatedAt.After(ageCutoff) {
			fresh = append(fresh, e.UserID)
		}
	}
	if len(fresh) >= newAccountWaveMin {
		return Detection{
			IsRaid:            true,
			RaidType:          RaidNewAccountWave,
			Confidence:        math.Min(float64(len(fresh))/10, 1.0),
			AffectedUsers:     fresh,
			RecommendedAction: ActionRestrictNew,
			TriggerReason:     fmt.Sprintf("%d new accounts joined", len(fresh)),
		}
	}

	// Username patterning. Affected users are the most recent joiners,
	// an approximation of the actual pattern members.
	if score := usernamePatternScore(events); score > patternThreshold {
		return Detection{
			IsRaid:            true,
			RaidType:          RaidUsernamePattern,
			Confidence:        score,
			AffectedUsers:     recentJoiners(events, patternAffectedCount),
			RecommendedAction: ActionManualReview,
			TriggerReason:     "Suspicious username patterns detected",
		}
	}

	return Detection{
		RaidType:          RaidNone,
		AffectedUsers:     []int64{},
		RecommendedAction: ActionMonitor,
		TriggerReason:     "No raid patterns detected",
	}
}

// recentJoiners returns the user IDs of the n most recent joins.
func recentJoiners(events []JoinEvent, n int) []int64 {
	sorted := append([]JoinEvent(nil), events...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].JoinedAt.After(sorted[j].JoinedAt)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	ids := make([]int64, 0, len(sorted))
	for _, e := range sorted {
		ids = append(ids, e.UserID)
	}
	return ids
}
