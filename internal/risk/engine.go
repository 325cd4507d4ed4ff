package risk

import (
	"context"
	"math"
	"time"

	"github.com/modsentry/modsentry/internal/config"
	"github.com/modsentry/modsentry/internal/idgen"
	"github.com/modsentry/modsentry/internal/metrics"
)

// Escalation multipliers applied to the raw score before smoothing.
const (
	escalationRepeatOffender = 1.15 // more than 3 violations in 24h
	escalationLowTrust       = 1.25 // trust score below 20
	sigmoidSteepness         = 10.0
)

// minSimilarityTextLen is the shortest message worth running duplicate
// detection on.
const minSimilarityTextLen = 10

// Engine scores messages against the configured weights and thresholds.
// All methods are pure with respect to engine state and safe for
// concurrent use.
type Engine struct {
	cfg        config.RiskConfig
	store      Store
	similarity SimilarityIndex
}

// NewEngine creates a risk scoring engine backed by the given audit store.
// store may be nil (no audit trail).
func NewEngine(cfg config.RiskConfig, store Store) *Engine {
	return &Engine{cfg: cfg, store: store}
}

// WithSimilarityIndex attaches a duplicate-content index. Without one the
// similarity factor is always 0.
func (e *Engine) WithSimilarityIndex(idx SimilarityIndex) *Engine {
	e.similarity = idx
	return e
}

// Assess scores a single message. It never returns an error: malformed
// input has already been defaulted at the classifier boundary, and every
// arithmetic step is total.
func (e *Engine) Assess(ctx context.Context, in Input) *Assessment {
	start := time.Now()

	factors := Factors{
		Spam:     in.Analysis.Spam,
		Toxic:    in.Analysis.Toxic,
		Scam:     in.Analysis.Scam,
		Illegal:  in.Analysis.Illegal,
		Phishing: in.Analysis.Phishing,
		NSFW:     in.Analysis.NSFW,
	}
	factors.Flood = floodFactor(in.Context)
	factors.UserHistory = historyFactor(in.History)
	factors.Similarity = e.similarityFactor(ctx, in.GroupID, in.Text)
	factors.LinkSuspicious = linkFactor(in.Text, in.Analysis.SuspiciousLinks, in.Analysis.Phishing)

	raw := e.noisyOR(factors)
	escalated := escalate(raw, in.History)
	normalized := sigmoid(escalated)
	final := normalized * 100

	level, decision, action := e.classify(final)

	elapsed := time.Since(start)
	a := &Assessment{
		ID:              idgen.WithPrefix("risk_"),
		GroupID:         in.GroupID,
		UserID:          in.UserID,
		FinalScore:      final,
		NormalizedScore: normalized,
		Level:           level,
		Factors:         factors,
		Decision:        decision,
		Action:          action,
		Confidence:      confidence(factors, in.Analysis.Confidence),
		ProcessingMS:    float64(elapsed.Microseconds()) / 1000.0,
		EvaluatedAt:     time.Now().UTC(),
		elapsed:         elapsed,
	}

	metrics.AssessmentsTotal.WithLabelValues(string(decision), string(level)).Inc()
	metrics.AssessmentDuration.Observe(elapsed.Seconds())

	// Persist asynchronously (best-effort audit trail)
	if e.store != nil {
		go func() {
			_ = e.store.Record(context.Background(), a)
		}()
	}

	return a
}

// floodFactor maps the author's messages-per-minute rate onto [0, 1]:
// up to 5/min is normal, 20/min or more saturates, linear in between.
func floodFactor(mc MessageContext) float64 {
	if mc.RecentUserMessages == 0 || mc.TimeWindowSeconds == 0 {
		return 0
	}
	rate := float64(mc.RecentUserMessages) / float64(mc.TimeWindowSeconds) * 60

	switch {
	case rate <= 5:
		return 0
	case rate >= 20:
		return 1
	default:
		return (rate - 5) / 15
	}
}

// historyFactor blends recent violation density with the trust deficit.
// Recent violations dominate (weight 0.6); a trust score below the neutral
// midpoint of 50 contributes the rest.
func historyFactor(h UserHistory) float64 {
	recent := math.Min(float64(h.Violations24h)*0.3+float64(h.Violations7d)*0.1, 1.0)
	deficit := math.Max(0, (50-h.TrustScore)/50)
	return math.Min(recent*0.6+deficit*0.4, 1.0)
}

func (e *Engine) similarityFactor(ctx context.Context, groupID int64, text string) float64 {
	if e.similarity == nil || len(text) < minSimilarityTextLen {
		return 0
	}
	return clamp01(e.similarity.Score(ctx, groupID, text))
}

// linkFactor takes the stronger of the classifier's link signal and a
// discounted phishing signal.
func linkFactor(text string, links, phishing float64) float64 {
	if text == "" {
		return 0
	}
	return math.Max(links, phishing*0.8)
}

// noisyOR combines the weighted factors as independent chances of
// triggering risk: R = 1 - Π(1 - Wi*Si). A single factor at 1.0 with
// weight 1.0 forces the score to 1.0 regardless of the rest; several weak
// factors compound multiplicatively instead of additively.
func (e *Engine) noisyOR(f Factors) float64 {
	w := e.cfg
	product := 1.0
	for _, ws := range [...]struct{ weight, score float64 }{
		{w.WeightSpam, f.Spam},
		{w.WeightToxic, f.Toxic},
		{w.WeightScam, f.Scam},
		{w.WeightIllegal, f.Illegal},
		{w.WeightPhishing, f.Phishing},
		{w.WeightNSFW, f.NSFW},
		{w.WeightFlood, f.Flood},
		{w.WeightUserHistory, f.UserHistory},
		{w.WeightSimilarity, f.Similarity},
		{w.WeightLink, f.LinkSuspicious},
	} {
		product *= 1 - ws.weight*ws.score
	}
	return clamp01(1 - product)
}

// escalate multiplies the raw score for repeat offenders and low-trust
// authors. Both multipliers compose when both conditions hold.
func escalate(raw float64, h UserHistory) float64 {
	m := 1.0
	if h.Violations24h > 3 {
		m *= escalationRepeatOffender
	}
	if h.TrustScore < 20 {
		m *= escalationLowTrust
	}
	return math.Min(raw*m, 1.0)
}

// sigmoid pushes scores away from the 0.5 midpoint so borderline cases
// resolve decisively toward either extreme.
func sigmoid(score float64) float64 {
	return 1 / (1 + math.Exp(-sigmoidSteepness*(score-0.5)))
}

// classify maps the 0-100 score to (level, decision, action). A score
// exactly on a threshold lands in the higher tier.
func (e *Engine) classify(final float64) (Level, Decision, string) {
	switch {
	case final >= e.cfg.ThresholdCritical:
		return LevelCritical, DecisionBlock, ActionDeleteMuteNotif
	case final >= e.cfg.ThresholdHigh:
		return LevelHigh, DecisionBlock, ActionDeleteWarn
	case final >= e.cfg.ThresholdMedium:
		return LevelMedium, DecisionWarn, ActionSoftWarnMonitor
	default:
		return LevelLow, DecisionAllow, ActionAllow
	}
}

// confidence starts from the classifier's self-reported confidence and
// subtracts a penalty proportional to the variance across the six content
// categories: strong disagreement between categories lowers confidence
// even when the blended score is extreme.
func confidence(f Factors, aiConfidence float64) float64 {
	values := [...]float64{f.Spam, f.Toxic, f.Scam, f.Illegal, f.Phishing, f.NSFW}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	penalty := math.Min(variance*2, 0.2)
	c := math.Max(0.5, aiConfidence-penalty)
	return math.Round(c*100) / 100
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
