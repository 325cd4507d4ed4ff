// Package risk implements multi-factor risk scoring for group chat messages.
//
// Every inbound message is scored from ten weighted factors: six content
// categories reported by the external classifiers (spam, toxic, scam,
// illegal, phishing, nsfw) plus four derived locally (message flood
// velocity, violation history, content similarity, suspicious links).
// Factors combine through a noisy-OR formula, escalate on aggravating
// history, and resolve through a sigmoid into a 0-100 score mapped to an
// allow/warn/block decision. Scoring is deterministic and never fails:
// the enforcement pipeline always receives a decision.
package risk

import (
	"context"
	"time"

	"github.com/modsentry/modsentry/internal/classifier"
)

// Decision represents the engine's verdict on a message.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionWarn  Decision = "warn"
	DecisionBlock Decision = "block"
)

// Level buckets the final score into severity tiers.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Enforcement instructions handed to the (external) enforcement layer.
// The engine never performs these effects itself.
const (
	ActionAllow           = "allow"
	ActionSoftWarnMonitor = "soft_warn_monitor"
	ActionDeleteWarn      = "delete_warn"
	ActionDeleteMuteNotif = "delete_mute_notify"
)

// Factors holds the ten scalar risk signals, each in [0, 1].
// Recomputed per call, never persisted as mutable state.
type Factors struct {
	Spam           float64 `json:"spam"`
	Toxic          float64 `json:"toxic"`
	Scam           float64 `json:"scam"`
	Illegal        float64 `json:"illegal"`
	Phishing       float64 `json:"phishing"`
	NSFW           float64 `json:"nsfw"`
	Flood          float64 `json:"flood"`
	UserHistory    float64 `json:"user_history"`
	Similarity     float64 `json:"similarity"`
	LinkSuspicious float64 `json:"link_suspicious"`
}

// Assessment is the immutable result of scoring a single message.
type Assessment struct {
	ID              string        `json:"id"`
	GroupID         int64         `json:"groupId"`
	UserID          int64         `json:"userId"`
	FinalScore      float64       `json:"finalScore"`      // 0-100
	NormalizedScore float64       `json:"normalizedScore"` // 0-1, post-sigmoid
	Level           Level         `json:"riskLevel"`
	Factors         Factors       `json:"factors"`
	Decision        Decision      `json:"decision"`
	Action          string        `json:"action"`
	Confidence      float64       `json:"confidence"`
	ProcessingMS    float64       `json:"processingMs"`
	EvaluatedAt     time.Time     `json:"evaluatedAt"`
	elapsed         time.Duration // raw latency, for metrics
}

// Elapsed returns the raw scoring latency.
func (a *Assessment) Elapsed() time.Duration { return a.elapsed }

// UserHistory is the caller-supplied behavioral snapshot for the author.
type UserHistory struct {
	Violations24h   int     `json:"violations24h"`
	Violations7d    int     `json:"violations7d"`
	TotalViolations int     `json:"totalViolations"`
	TrustScore      float64 `json:"trustScore"`
}

// MessageContext carries the recent-activity data used to derive the
// flood factor.
type MessageContext struct {
	RecentUserMessages int `json:"recentUserMessages"`
	TimeWindowSeconds  int `json:"timeWindowSeconds"`
}

// Input bundles everything the engine needs to score one message.
type Input struct {
	Text     string
	GroupID  int64
	UserID   int64
	Analysis classifier.Vector
	History  UserHistory
	Context  MessageContext
}

// SimilarityIndex scores a message's similarity to recent group traffic
// for duplicate detection. Implementations are expected to be backed by a
// recent-message cache. The engine treats a nil index as "no signal".
type SimilarityIndex interface {
	Score(ctx context.Context, groupID int64, text string) float64
}

// Store persists assessments for the audit trail.
type Store interface {
	Record(ctx context.Context, a *Assessment) error
	ListByUser(ctx context.Context, groupID, userID int64, limit int) ([]*Assessment, error)
}
