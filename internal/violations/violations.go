// Package violations keeps per-user violation history. The recent-count
// snapshot it produces feeds the risk engine's user_history factor.
package violations

import (
	"context"
	"time"
)

// Type categorizes what a violation was about.
type Type string

const (
	TypeSpam     Type = "spam"
	TypeToxic    Type = "toxic"
	TypeScam     Type = "scam"
	TypeIllegal  Type = "illegal"
	TypePhishing Type = "phishing"
	TypeNSFW     Type = "nsfw"
	TypeFlood    Type = "flood"
	TypeOther    Type = "other"
)

// Violation is a recorded moderation strike against a user in a group.
type Violation struct {
	ID          string    `json:"id"`
	GroupID     int64     `json:"groupId"`
	UserID      int64     `json:"userId"`
	Type        Type      `json:"type"`
	Severity    string    `json:"severity"`
	RiskScore   float64   `json:"riskScore"` // 0-100
	MessageText string    `json:"messageText,omitempty"`
	ActionTaken string    `json:"actionTaken"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Counts is the recent-history snapshot consumed by risk scoring.
type Counts struct {
	Violations24h int `json:"violations24h"`
	Violations7d  int `json:"violations7d"`
	Total         int `json:"total"`
}

// Store persists violations and answers count queries.
type Store interface {
	Record(ctx context.Context, v *Violation) error
	CountsFor(ctx context.Context, groupID, userID int64) (Counts, error)
	ListByUser(ctx context.Context, groupID, userID int64, limit int) ([]*Violation, error)
}
