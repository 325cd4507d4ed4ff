// Package antiraid detects coordinated join waves against a group and
// tracks per-group raid protection state.
//
// Detection is heuristic and in-memory: each group keeps a bounded
// sliding window of recent join events, and every recorded join
// re-evaluates three signals in priority order (join velocity, new
// account concentration, username patterning). Detection never fails;
// ambiguous or sparse data degrades to a not-a-raid result.
package antiraid

import (
	"context"
	"time"
)

// RaidType labels which heuristic triggered a detection.
type RaidType string

const (
	RaidNone            RaidType = "none"
	RaidMassJoin        RaidType = "mass_join"
	RaidNewAccountWave  RaidType = "new_account_wave"
	RaidUsernamePattern RaidType = "username_pattern"
)

// Recommended actions attached to detections. The enforcement layer is
// responsible for translating these into platform effects; this package
// never performs them.
const (
	ActionNone         = "none"
	ActionMonitor      = "monitor"
	ActionSlowMode     = "enable_slow_mode_restrict_new"
	ActionRestrictNew  = "restrict_new_accounts_verify"
	ActionManualReview = "manual_review_ban_pattern"
)

// JoinEvent is a single user join tracked in a group's window.
type JoinEvent struct {
	UserID           int64      `json:"userId"`
	Username         string     `json:"username"`
	AccountCreatedAt *time.Time `json:"accountCreatedAt,omitempty"`
	JoinedAt         time.Time  `json:"joinedAt"`
}

// Detection is the result of evaluating a group's join window.
type Detection struct {
	IsRaid            bool     `json:"isRaid"`
	RaidType          RaidType `json:"raidType"`
	Confidence        float64  `json:"confidence"`
	AffectedUsers     []int64  `json:"affectedUsers"`
	RecommendedAction string   `json:"recommendedAction"`
	TriggerReason     string   `json:"triggerReason"`
}

// Status is a group's raid protection state. A group moves from
// monitoring to raid_active on the first positive detection and back
// only via an explicit Deactivate call.
type Status struct {
	Active        bool       `json:"active"`
	RaidType      RaidType   `json:"raidType,omitempty"`
	AffectedUsers []int64    `json:"affectedUsers,omitempty"`
	StartedAt     time.Time  `json:"startedAt"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
}

// Event is the persisted audit record of a raid activation.
type Event struct {
	ID            string    `json:"id"`
	GroupID       int64     `json:"groupId"`
	RaidType      RaidType  `json:"raidType"`
	Confidence    float64   `json:"confidence"`
	AffectedUsers []int64   `json:"affectedUsers"`
	TriggerReason string    `json:"triggerReason"`
	DetectedAt    time.Time `json:"detectedAt"`
}

// Store persists raid activation events for audit.
type Store interface {
	Record(ctx context.Context, ev *Event) error
	ListByGroup(ctx context.Context, groupID int64, limit int) ([]*Event, error)
}

// EventRaidDetected is emitted on the realtime feed when a group enters
// raid protection.
const EventRaidDetected = "raid_detected"

// Broadcaster pushes raid activations to connected consumers.
type Broadcaster interface {
	Broadcast(eventType string, groupID int64, payload any)
}
