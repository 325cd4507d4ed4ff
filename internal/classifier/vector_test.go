package classifier

import "testing"

func TestParseDefaultsMissingToZero(t *testing.T) {
	v := Parse(map[string]any{"spam": 0.4})
	if v.Spam != 0.4 {
		t.Errorf("spam = %f, want 0.4", v.Spam)
	}
	if v.Toxic != 0 || v.Scam != 0 || v.Illegal != 0 || v.Phishing != 0 || v.NSFW != 0 {
		t.Errorf("missing categories should default to 0, got %+v", v)
	}
	if v.Confidence != DefaultConfidence {
		t.Errorf("confidence = %f, want default %f", v.Confidence, DefaultConfidence)
	}
}

func TestParseToxicityAlias(t *testing.T) {
	v := Parse(map[string]any{"toxicity": 0.9})
	if v.Toxic != 0.9 {
		t.Errorf("toxicity alias not applied: %f", v.Toxic)
	}

	v = Parse(map[string]any{"toxic": 0.7})
	if v.Toxic != 0.7 {
		t.Errorf("toxic key not applied: %f", v.Toxic)
	}
}

func TestParseMalformedValues(t *testing.T) {
	v := Parse(map[string]any{
		"spam":       "not_a_number",
		"scam":       nil,
		"illegal":    []string{"nope"},
		"phishing":   "0.5",
		"nsfw":       3,
		"confidence": "high",
	})
	if v.Spam != 0 {
		t.Errorf("malformed spam = %f, want 0", v.Spam)
	}
	if v.Scam != 0 || v.Illegal != 0 {
		t.Errorf("nil/invalid values should coerce to 0, got %+v", v)
	}
	if v.Phishing != 0.5 {
		t.Errorf("numeric string should parse: %f", v.Phishing)
	}
	// int 3 coerces then clamps to 1.0
	if v.NSFW != 1.0 {
		t.Errorf("out-of-range value should clamp to 1.0, got %f", v.NSFW)
	}
	// "high" is present but malformed: coerces to 0, not the default
	if v.Confidence != 0 {
		t.Errorf("malformed confidence = %f, want 0", v.Confidence)
	}
}

func TestParseClampsNegatives(t *testing.T) {
	v := Parse(map[string]any{"spam": -0.5})
	if v.Spam != 0 {
		t.Errorf("negative value should clamp to 0, got %f", v.Spam)
	}
}

func TestParseEmptyPayload(t *testing.T) {
	v := Parse(nil)
	if v.Spam != 0 || v.Confidence != DefaultConfidence {
		t.Errorf("nil payload should yield zero vector with default confidence, got %+v", v)
	}
}
