package trust

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/modsentry/modsentry/internal/config"
	"github.com/modsentry/modsentry/internal/metrics"
	"github.com/modsentry/modsentry/internal/syncutil"
)

// Engine computes and applies trust score updates.
//
// CalculateUpdate and Decay are pure and safe to call from anywhere.
// Apply is the one mutating path: it serializes the read-modify-write
// per (group, user) key so concurrent violations for the same member
// cannot lose updates.
type Engine struct {
	cfg   config.TrustConfig
	store Store
	locks syncutil.ShardedMutex
}

// NewEngine creates a trust engine over the given store.
func NewEngine(cfg config.TrustConfig, store Store) *Engine {
	return &Engine{cfg: cfg, store: store}
}

// CalculateUpdate computes the score transition for one behavioral
// outcome. Pure: no I/O, no state.
func (e *Engine) CalculateUpdate(old float64, action ActionType, severity Severity) Update {
	var change float64
	var reason string

	switch action {
	case ActionPositive:
		change = e.cfg.BonusPositive
		reason = "Positive interaction"
	case ActionViolation:
		change = -e.cfg.PenaltyViolation * severityMultiplier(severity)
		reason = fmt.Sprintf("Violation (%s)", severity)
	case ActionMute:
		change = -e.cfg.PenaltyMute
		reason = "User muted"
	case ActionBanAttempt:
		change = -e.cfg.PenaltyBan
		reason = "Ban attempt"
	default:
		reason = "No action"
	}

	newScore := e.clamp(old + change)

	return Update{
		OldScore:     round2(old),
		NewScore:     round2(newScore),
		Change:       round2(change),
		Reason:       reason,
		Restrictions: e.Restrictions(newScore),
		AppliedAt:    time.Now().UTC(),
	}
}

// Apply reads the current score, computes the update, and writes the new
// score through the store. The whole cycle holds the per-key lock. A store
// write failure is returned alongside the computed update: the calculation
// itself succeeded and the caller may retry the write.
func (e *Engine) Apply(ctx context.Context, groupID, userID int64, action ActionType, severity Severity) (Update, error) {
	unlock := e.locks.Lock(key(groupID, userID))
	defer unlock()

	old, err := e.current(ctx, groupID, userID)
	if err != nil {
		return Update{}, fmt.Errorf("read trust score: %w", err)
	}

	u := e.CalculateUpdate(old, action, severity)
	u.GroupID = groupID
	u.UserID = userID

	if err := e.store.Set(ctx, groupID, userID, u.NewScore); err != nil {
		return u, fmt.Errorf("write trust score: %w", err)
	}
	metrics.TrustUpdatesTotal.WithLabelValues(string(action)).Inc()
	return u, nil
}

// ApplyDecay writes the decayed score for a member the sweep listed as
// inactive. It holds the same per-key lock as Apply and re-reads the
// score under it: if the score no longer matches what the sweep listed,
// a behavioral update landed in between and reset the inactivity clock,
// so the member is skipped rather than overwritten with a stale value.
// Reports whether a decayed score was written.
func (e *Engine) ApplyDecay(ctx context.Context, groupID, userID int64, listedScore float64, daysInactive int) (float64, bool, error) {
	unlock := e.locks.Lock(key(groupID, userID))
	defer unlock()

	current, err := e.current(ctx, groupID, userID)
	if err != nil {
		return 0, false, fmt.Errorf("read trust score: %w", err)
	}
	if current != listedScore {
		return current, false, nil
	}

	next := e.Decay(current, daysInactive)
	if next == current {
		return current, false, nil
	}
	if err := e.store.Set(ctx, groupID, userID, next); err != nil {
		return current, false, fmt.Errorf("write trust score: %w", err)
	}
	return next, true, nil
}

// Current returns the score and derived restrictions for a member,
// defaulting to the initial score when no record exists.
func (e *Engine) Current(ctx context.Context, groupID, userID int64) (float64, []string, error) {
	score, err := e.current(ctx, groupID, userID)
	if err != nil {
		return 0, nil, err
	}
	return score, e.Restrictions(score), nil
}

func (e *Engine) current(ctx context.Context, groupID, userID int64) (float64, error) {
	score, ok, err := e.store.Get(ctx, groupID, userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return e.cfg.Initial, nil
	}
	return score, nil
}

// Restrictions derives the restriction set for a score. Both labels may
// apply at once.
func (e *Engine) Restrictions(score float64) []string {
	restrictions := []string{}
	if score < e.cfg.RestrictMediaBelow {
		restrictions = append(restrictions, RestrictionMedia)
	}
	if score < e.cfg.AutoBanBelow {
		restrictions = append(restrictions, RestrictionAutoBan)
	}
	return restrictions
}

// Decay computes the decayed score for an inactive member: no decay for
// the first 7 days, then 2 points per additional full week, floored at
// the configured minimum. Pure; scheduling belongs to the caller.
func (e *Engine) Decay(current float64, daysInactive int) float64 {
	if daysInactive < 7 {
		return current
	}
	decay := float64((daysInactive-7)/7) * 2
	return math.Max(e.cfg.Min, current-decay)
}

// Min returns the configured lower bound.
func (e *Engine) Min() float64 { return e.cfg.Min }

// Initial returns the configured starting score.
func (e *Engine) Initial() float64 { return e.cfg.Initial }

func (e *Engine) clamp(score float64) float64 {
	return math.Max(e.cfg.Min, math.Min(e.cfg.Max, score))
}

func key(groupID, userID int64) string {
	return fmt.Sprintf("%d:%d", groupID, userID)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
