// Package moderation runs the full message pipeline: classifier vector
// in, risk assessment plus history bookkeeping out. The enforcement
// layer consumes the resulting decision; this package never performs
// deletes, mutes, or bans itself.
package moderation

import (
	"context"

	"github.com/modsentry/modsentry/internal/classifier"
	"github.com/modsentry/modsentry/internal/idgen"
	"github.com/modsentry/modsentry/internal/logging"
	"github.com/modsentry/modsentry/internal/metrics"
	"github.com/modsentry/modsentry/internal/risk"
	"github.com/modsentry/modsentry/internal/traces"
	"github.com/modsentry/modsentry/internal/trust"
	"github.com/modsentry/modsentry/internal/violations"
)

// Message is an inbound chat message to moderate.
type Message struct {
	GroupID            int64  `json:"groupId"`
	UserID             int64  `json:"userId"`
	Username           string `json:"username,omitempty"`
	Text               string `json:"text"`
	RecentUserMessages int    `json:"recentUserMessages"`
	TimeWindowSeconds  int    `json:"timeWindowSeconds"`
}

// Result is the pipeline outcome handed to the enforcement layer. A
// trust write failure is reported in TrustError but never withholds
// the decision itself.
type Result struct {
	Assessment  *risk.Assessment      `json:"assessment"`
	TrustUpdate *trust.Update         `json:"trustUpdate,omitempty"`
	Violation   *violations.Violation `json:"violation,omitempty"`
	TrustError  string                `json:"trustError,omitempty"`
}

// Broadcaster pushes pipeline events to connected consumers.
type Broadcaster interface {
	Broadcast(eventType string, groupID int64, payload any)
}

// Event types emitted on the realtime feed.
const (
	EventAssessment   = "assessment"
	EventTrustChanged = "trust_changed"
)

// Service wires the scoring engine, trust engine, and violation history
// into one pipeline.
type Service struct {
	risk       *risk.Engine
	trust      *trust.Engine
	violations violations.Store
	broadcast  Broadcaster
}

// NewService creates the moderation pipeline.
func NewService(riskEngine *risk.Engine, trustEngine *trust.Engine, store violations.Store) *Service {
	return &Service{
		risk:       riskEngine,
		trust:      trustEngine,
		violations: store,
	}
}

// WithBroadcaster attaches a realtime event feed.
func (s *Service) WithBroadcaster(b Broadcaster) *Service {
	s.broadcast = b
	return s
}

// Moderate runs the scoring pipeline for one message. It always returns
// a well-formed result: scoring cannot fail, and storage faults degrade
// to defaults (missing history scores as a clean user) or surface in
// the result without blocking the decision.
func (s *Service) Moderate(ctx context.Context, msg Message, rawAnalysis map[string]any) *Result {
	ctx, span := traces.StartSpan(ctx, "moderation.moderate",
		traces.GroupID(msg.GroupID), traces.UserID(msg.UserID))
	defer span.End()

	log := logging.L(ctx)

	trustScore, _, err := s.trust.Current(ctx, msg.GroupID, msg.UserID)
	if err != nil {
		log.Warn("trust lookup failed, using initial score",
			"group_id", msg.GroupID, "user_id", msg.UserID, "error", err)
		trustScore = s.trust.Initial()
	}

	var counts violations.Counts
	if s.violations != nil {
		counts, err = s.violations.CountsFor(ctx, msg.GroupID, msg.UserID)
		if err != nil {
			log.Warn("violation counts unavailable",
				"group_id", msg.GroupID, "user_id", msg.UserID, "error", err)
			counts = violations.Counts{}
		}
	}

	assessment := s.risk.Assess(ctx, risk.Input{
		Text:     msg.Text,
		GroupID:  msg.GroupID,
		UserID:   msg.UserID,
		Analysis: classifier.Parse(rawAnalysis),
		History: risk.UserHistory{
			Violations24h:   counts.Violations24h,
			Violations7d:    counts.Violations7d,
			TotalViolations: counts.Total,
			TrustScore:      trustScore,
		},
		Context: risk.MessageContext{
			RecentUserMessages: msg.RecentUserMessages,
			TimeWindowSeconds:  msg.TimeWindowSeconds,
		},
	})

	span.SetAttributes(
		traces.Decision(string(assessment.Decision)),
		traces.RiskLevel(string(assessment.Level)),
	)

	result := &Result{Assessment: assessment}

	action, severity := trustOutcome(assessment.Level)

	if assessment.Decision != risk.DecisionAllow && s.violations != nil {
		v := &violations.Violation{
			ID:          idgen.WithPrefix("vio_"),
			GroupID:     msg.GroupID,
			UserID:      msg.UserID,
			Type:        dominantType(assessment.Factors),
			Severity:    string(assessment.Level),
			RiskScore:   assessment.FinalScore,
			MessageText: msg.Text,
			ActionTaken: assessment.Action,
			CreatedAt:   assessment.EvaluatedAt,
		}
		if err := s.violations.Record(ctx, v); err != nil {
			log.Error("failed to record violation",
				"group_id", msg.GroupID, "user_id", msg.UserID, "error", err)
		} else {
			result.Violation = v
			metrics.ViolationsTotal.WithLabelValues(v.Severity).Inc()
		}
	}

	update, err := s.trust.Apply(ctx, msg.GroupID, msg.UserID, action, severity)
	result.TrustUpdate = &update
	if err != nil {
		// The calculation succeeded; only the write is at risk.
		result.TrustError = err.Error()
		log.Error("trust write failed",
			"group_id", msg.GroupID, "user_id", msg.UserID, "error", err)
	}

	if s.broadcast != nil {
		s.broadcast.Broadcast(EventAssessment, msg.GroupID, assessment)
		if update.Change != 0 {
			s.broadcast.Broadcast(EventTrustChanged, msg.GroupID, update)
		}
	}

	return result
}

// trustOutcome maps a risk level to the trust action it feeds back.
// Non-allow findings become violations at the same severity as the
// risk level; clean messages earn the positive-interaction bonus.
func trustOutcome(level risk.Level) (trust.ActionType, trust.Severity) {
	switch level {
	case risk.LevelCritical:
		return trust.ActionViolation, trust.SeverityCritical
	case risk.LevelHigh:
		return trust.ActionViolation, trust.SeverityHigh
	case risk.LevelMedium:
		return trust.ActionViolation, trust.SeverityMedium
	default:
		return trust.ActionPositive, ""
	}
}

// dominantType picks the violation category with the strongest signal.
func dominantType(f risk.Factors) violations.Type {
	best := violations.TypeOther
	bestScore := 0.0
	for _, c := range []struct {
		t     violations.Type
		score float64
	}{
		{violations.TypeSpam, f.Spam},
		{violations.TypeToxic, f.Toxic},
		{violations.TypeScam, f.Scam},
		{violations.TypeIllegal, f.Illegal},
		{violations.TypePhishing, f.Phishing},
		{violations.TypeNSFW, f.NSFW},
		{violations.TypeFlood, f.Flood},
		{violations.TypePhishing, f.LinkSuspicious},
	} {
		if c.score > bestScore {
			best = c.t
			bestScore = c.score
		}
	}
	return best
}
