// Package trust maintains the per-(user, group) reputation score.
//
// Scores live in a configured bounded range (default 0-100, initial 50)
// and move through behavioral outcomes: positive interactions nudge them
// up, violations, mutes and ban attempts pull them down. Every value the
// engine produces is clamped into range; no caller can observe an
// out-of-range score. Restrictions are derived from the score on read,
// never stored.
package trust

import (
	"context"
	"time"
)

// ActionType is a behavioral outcome fed back into the score.
type ActionType string

const (
	ActionPositive   ActionType = "positive_interaction"
	ActionViolation  ActionType = "violation"
	ActionMute       ActionType = "mute"
	ActionBanAttempt ActionType = "ban_attempt"
)

// Severity scales the violation penalty.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityMultiplier returns the penalty multiplier for a violation.
// Unknown severities count as low.
func severityMultiplier(s Severity) float64 {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}

// Restriction labels derived from low scores.
const (
	RestrictionMedia   = "media_restricted"
	RestrictionAutoBan = "auto_ban_candidate"
)

// Update is the result of applying one behavioral outcome.
type Update struct {
	GroupID      int64     `json:"groupId"`
	UserID       int64     `json:"userId"`
	OldScore     float64   `json:"oldScore"`
	NewScore     float64   `json:"newScore"`
	Change       float64   `json:"change"`
	Reason       string    `json:"reason"`
	Restrictions []string  `json:"restrictions"`
	AppliedAt    time.Time `json:"appliedAt"`
}

// Record is one persisted (user, group) score row.
type Record struct {
	GroupID   int64     `json:"groupId"`
	UserID    int64     `json:"userId"`
	Score     float64   `json:"score"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists trust scores. Get reports ok=false when no row exists;
// the engine substitutes the configured initial score. Set is the single
// mutation path — implementations never clamp, the engine already has.
type Store interface {
	Get(ctx context.Context, groupID, userID int64) (score float64, ok bool, err error)
	Set(ctx context.Context, groupID, userID int64, score float64) error

	// ListInactive returns records not updated since the cutoff,
	// for the decay sweep.
	ListInactive(ctx context.Context, cutoff time.Time) ([]*Record, error)
}
