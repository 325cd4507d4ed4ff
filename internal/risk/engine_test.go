package risk

import (
	"context"
	"math"
	"testing"

	"github.com/modsentry/modsentry/internal/classifier"
	"github.com/modsentry/modsentry/internal/config"
)

func newTestEngine() *Engine {
	return NewEngine(config.DefaultRiskConfig(), NewMemoryStore())
}

// neutralHistory is a clean author: no violations, midpoint trust.
func neutralHistory() UserHistory {
	return UserHistory{TrustScore: 50}
}

func TestCleanMessageAllows(t *testing.T) {
	engine := newTestEngine()

	a := engine.Assess(context.Background(), Input{
		Text:     "hello everyone, how is the project going?",
		GroupID:  1,
		UserID:   100,
		Analysis: classifier.Parse(map[string]any{"spam": 0.05, "toxicity": 0.02}),
		History:  neutralHistory(),
		Context:  MessageContext{RecentUserMessages: 2, TimeWindowSeconds: 60},
	})

	if a.Decision != DecisionAllow {
		t.Errorf("expected allow, got %s (score %f, factors %+v)", a.Decision, a.FinalScore, a.Factors)
	}
	if a.Level != LevelLow {
		t.Errorf("expected low level, got %s", a.Level)
	}
	if a.Action != ActionAllow {
		t.Errorf("expected action %q, got %q", ActionAllow, a.Action)
	}
}

func TestNoisyORExactArithmetic(t *testing.T) {
	// A single illegal factor at 1.0 with weight 0.18 must yield exactly
	// raw = 1 - (1 - 0.18) = 0.18 before escalation.
	engine := newTestEngine()

	raw := engine.noisyOR(Factors{Illegal: 1.0})
	if math.Abs(raw-0.18) > 1e-12 {
		t.Errorf("noisy-OR raw = %v, want 0.18", raw)
	}

	// Two factors: 1 - (1-0.18)(1-0.14*0.5) = 1 - 0.82*0.93 = 0.2374
	raw = engine.noisyOR(Factors{Illegal: 1.0, Toxic: 0.5})
	if math.Abs(raw-0.2374) > 1e-12 {
		t.Errorf("noisy-OR raw = %v, want 0.2374", raw)
	}
}

func TestNoisyORMonotonicity(t *testing.T) {
	engine := newTestEngine()

	base := Factors{Spam: 0.3, Toxic: 0.2, Scam: 0.1, Flood: 0.4}
	baseScore := engine.noisyOR(base)

	bumped := base
	for i, f := range []*float64{
		&bumped.Spam, &bumped.Toxic, &bumped.Scam, &bumped.Illegal, &bumped.Phishing,
		&bumped.NSFW, &bumped.Flood, &bumped.UserHistory, &bumped.Similarity, &bumped.LinkSuspicious,
	} {
		prev := *f
		*f = math.Min(prev+0.3, 1.0)
		if got := engine.noisyOR(bumped); got < baseScore {
			t.Errorf("factor %d: increasing a factor decreased score: %v -> %v", i, baseScore, got)
		}
		*f = prev
	}
}

func TestCatastrophicOverride(t *testing.T) {
	// A factor at 1.0 carrying full weight drives the score to 1.0
	// regardless of everything else.
	cfg := config.DefaultRiskConfig()
	cfg.WeightIllegal = 1.0
	engine := NewEngine(cfg, nil)

	a := engine.Assess(context.Background(), Input{
		Text:     "x",
		Analysis: classifier.Parse(map[string]any{"illegal": 1.0}),
		History:  neutralHistory(),
	})

	if a.NormalizedScore < 0.99 {
		t.Errorf("normalized score = %f, want ~1.0", a.NormalizedScore)
	}
	if a.Level != LevelCritical || a.Decision != DecisionBlock {
		t.Errorf("expected critical/block, got %s/%s", a.Level, a.Decision)
	}
	if a.Action != ActionDeleteMuteNotif {
		t.Errorf("expected action %q, got %q", ActionDeleteMuteNotif, a.Action)
	}
}

func TestThresholdBoundaryClassifiesHigherTier(t *testing.T) {
	engine := newTestEngine()

	cases := []struct {
		score float64
		level Level
	}{
		{85.0, LevelCritical},
		{84.999, LevelHigh},
		{70.0, LevelHigh},
		{69.999, LevelMedium},
		{50.0, LevelMedium},
		{49.999, LevelLow},
	}
	for _, tc := range cases {
		level, _, _ := engine.classify(tc.score)
		if level != tc.level {
			t.Errorf("classify(%v) = %s, want %s", tc.score, level, tc.level)
		}
	}
}

func TestEscalationMultipliers(t *testing.T) {
	// Repeat offender only: 1.15x
	got := escalate(0.5, UserHistory{Violations24h: 4, TrustScore: 50})
	if math.Abs(got-0.575) > 1e-12 {
		t.Errorf("repeat offender escalation = %v, want 0.575", got)
	}

	// Low trust only: 1.25x
	got = escalate(0.5, UserHistory{TrustScore: 10})
	if math.Abs(got-0.625) > 1e-12 {
		t.Errorf("low trust escalation = %v, want 0.625", got)
	}

	// Both compose multiplicatively: 0.5 * 1.15 * 1.25 = 0.71875
	got = escalate(0.5, UserHistory{Violations24h: 5, TrustScore: 5})
	if math.Abs(got-0.71875) > 1e-12 {
		t.Errorf("composed escalation = %v, want 0.71875", got)
	}

	// Clamped at 1.0
	got = escalate(0.95, UserHistory{Violations24h: 5, TrustScore: 5})
	if got != 1.0 {
		t.Errorf("escalation should clamp at 1.0, got %v", got)
	}

	// Exactly 3 violations does not trigger
	got = escalate(0.5, UserHistory{Violations24h: 3, TrustScore: 50})
	if got != 0.5 {
		t.Errorf("3 violations should not escalate, got %v", got)
	}
}

func TestSigmoidMidpointAndExtremes(t *testing.T) {
	if got := sigmoid(0.5); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("sigmoid(0.5) = %v, want 0.5", got)
	}
	if got := sigmoid(1.0); got < 0.99 {
		t.Errorf("sigmoid(1.0) = %v, want > 0.99", got)
	}
	if got := sigmoid(0.0); got > 0.01 {
		t.Errorf("sigmoid(0.0) = %v, want < 0.01", got)
	}
}

func TestFloodFactor(t *testing.T) {
	cases := []struct {
		messages int
		window   int
		want     float64
	}{
		{0, 60, 0},      // no messages
		{5, 0, 0},       // no window
		{5, 60, 0},      // 5/min: at the floor
		{10, 60, 1.0 / 3.0}, // 10/min: linear region
		{20, 60, 1},     // 20/min: saturated
		{40, 60, 1},     // beyond saturation
		{10, 30, 1},     // 20/min via shorter window
	}
	for _, tc := range cases {
		got := floodFactor(MessageContext{RecentUserMessages: tc.messages, TimeWindowSeconds: tc.window})
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("floodFactor(%d msgs / %ds) = %v, want %v", tc.messages, tc.window, got, tc.want)
		}
	}
}

func TestHistoryFactor(t *testing.T) {
	// 2 violations in 24h, 3 in 7d, trust 30:
	// recent = min(0.6 + 0.3, 1) = 0.9, deficit = (50-30)/50 = 0.4
	// blended = 0.9*0.6 + 0.4*0.4 = 0.70
	got := historyFactor(UserHistory{Violations24h: 2, Violations7d: 3, TrustScore: 30})
	if math.Abs(got-0.70) > 1e-12 {
		t.Errorf("historyFactor = %v, want 0.70", got)
	}

	// Clean user at midpoint trust contributes nothing
	if got := historyFactor(neutralHistory()); got != 0 {
		t.Errorf("neutral history factor = %v, want 0", got)
	}

	// High trust never goes negative
	if got := historyFactor(UserHistory{TrustScore: 100}); got != 0 {
		t.Errorf("high-trust history factor = %v, want 0", got)
	}

	// Saturates at 1.0
	got = historyFactor(UserHistory{Violations24h: 10, Violations7d: 10, TrustScore: 0})
	if got != 1.0 {
		t.Errorf("saturated history factor = %v, want 1.0", got)
	}
}

func TestLinkFactor(t *testing.T) {
	if got := linkFactor("", 0.9, 0.9); got != 0 {
		t.Errorf("empty text link factor = %v, want 0", got)
	}
	// max(0.3, 0.9*0.8) = 0.72
	if got := linkFactor("http://example.test", 0.3, 0.9); math.Abs(got-0.72) > 1e-12 {
		t.Errorf("link factor = %v, want 0.72", got)
	}
	// direct link signal wins when stronger
	if got := linkFactor("http://example.test", 0.95, 0.5); got != 0.95 {
		t.Errorf("link factor = %v, want 0.95", got)
	}
}

func TestSimilarityWithoutIndexIsZero(t *testing.T) {
	engine := newTestEngine()

	a := engine.Assess(context.Background(), Input{
		Text:    "a perfectly ordinary message repeated many times",
		History: neutralHistory(),
	})
	if a.Factors.Similarity != 0 {
		t.Errorf("similarity without index = %v, want 0", a.Factors.Similarity)
	}
}

type stubSimilarity struct{ score float64 }

func (s stubSimilarity) Score(context.Context, int64, string) float64 { return s.score }

func TestSimilarityIndexHook(t *testing.T) {
	engine := newTestEngine().WithSimilarityIndex(stubSimilarity{score: 0.8})

	a := engine.Assess(context.Background(), Input{
		Text:    "a message long enough for duplicate detection",
		History: neutralHistory(),
	})
	if a.Factors.Similarity != 0.8 {
		t.Errorf("similarity = %v, want 0.8", a.Factors.Similarity)
	}

	// Short messages skip the index entirely
	a = engine.Assess(context.Background(), Input{
		Text:    "short",
		History: neutralHistory(),
	})
	if a.Factors.Similarity != 0 {
		t.Errorf("short-text similarity = %v, want 0", a.Factors.Similarity)
	}
}

func TestConfidenceVariancePenalty(t *testing.T) {
	// Uniform content factors: zero variance, confidence equals the
	// classifier's own.
	got := confidence(Factors{Spam: 0.5, Toxic: 0.5, Scam: 0.5, Illegal: 0.5, Phishing: 0.5, NSFW: 0.5}, 0.8)
	if got != 0.8 {
		t.Errorf("zero-variance confidence = %v, want 0.8", got)
	}

	// One category screaming, five silent: variance 0.1389, penalty capped
	// at 0.2, confidence 0.6.
	got = confidence(Factors{Illegal: 1.0}, 0.8)
	if got != 0.6 {
		t.Errorf("high-variance confidence = %v, want 0.6", got)
	}

	// Floor at 0.5
	got = confidence(Factors{Illegal: 1.0}, 0.55)
	if got != 0.5 {
		t.Errorf("confidence floor = %v, want 0.5", got)
	}
}

func TestAssessNeverErrorsOnEmptyInput(t *testing.T) {
	engine := NewEngine(config.DefaultRiskConfig(), nil)

	a := engine.Assess(context.Background(), Input{})
	if a == nil {
		t.Fatal("Assess returned nil")
	}
	// Zero-value history means trust 0: the deficit alone produces some
	// risk, but the result must still be well-formed.
	if a.FinalScore < 0 || a.FinalScore > 100 {
		t.Errorf("score out of bounds: %f", a.FinalScore)
	}
	if a.Decision == "" || a.Action == "" || a.Level == "" {
		t.Errorf("incomplete assessment: %+v", a)
	}
}

func TestAssessRecordsAuditTrail(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine(config.DefaultRiskConfig(), store)

	a := engine.Assess(context.Background(), Input{
		Text:     "spam spam spam buy now",
		GroupID:  42,
		UserID:   7,
		Analysis: classifier.Parse(map[string]any{"spam": 0.99}),
		History:  neutralHistory(),
	})

	// Recording is async best-effort; write directly to verify the store
	// round-trips assessments.
	if err := store.Record(context.Background(), a); err != nil {
		t.Fatalf("record: %v", err)
	}
	got, err := store.ListByUser(context.Background(), 42, 7, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected at least one recorded assessment")
	}
	if got[0].Factors.Spam != 0.99 {
		t.Errorf("recorded spam factor = %v, want 0.99", got[0].Factors.Spam)
	}
}
