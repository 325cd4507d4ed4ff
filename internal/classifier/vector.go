// Package classifier defines the boundary type for external content
// classification output.
//
// The upstream AI classifiers return loosely-typed JSON: category names
// mapped to probabilities, with optional aliases and a confidence field.
// All coercion happens here, at the boundary, so the risk formula itself
// stays pure and strictly typed. Parsing never fails: missing or malformed
// fields default to 0 and values are clamped into [0, 1].
package classifier

import (
	"encoding/json"
	"strconv"
)

// Vector is the validated per-category probability vector consumed by the
// risk engine. All values are in [0, 1].
type Vector struct {
	Spam     float64 `json:"spam"`
	Toxic    float64 `json:"toxic"`
	Scam     float64 `json:"scam"`
	Illegal  float64 `json:"illegal"`
	Phishing float64 `json:"phishing"`
	NSFW     float64 `json:"nsfw"`

	// SuspiciousLinks is the classifier's link-reputation signal.
	SuspiciousLinks float64 `json:"suspicious_links"`

	// Confidence is the classifier's self-reported confidence.
	// Parse defaults it to 0.8 when absent.
	Confidence float64 `json:"confidence"`
}

// DefaultConfidence is assumed when the classifier reports none.
const DefaultConfidence = 0.8

// Parse builds a Vector from a raw classifier payload. Unknown keys are
// ignored; "toxicity" and "toxic" are accepted interchangeably. Never errors.
func Parse(raw map[string]any) Vector {
	v := Vector{
		Spam:            field(raw, "spam"),
		Toxic:           fieldAlias(raw, "toxicity", "toxic"),
		Scam:            field(raw, "scam"),
		Illegal:         field(raw, "illegal"),
		Phishing:        field(raw, "phishing"),
		NSFW:            field(raw, "nsfw"),
		SuspiciousLinks: field(raw, "suspicious_links"),
		Confidence:      DefaultConfidence,
	}
	if _, ok := raw["confidence"]; ok {
		v.Confidence = field(raw, "confidence")
	}
	return v
}

func field(raw map[string]any, key string) float64 {
	return clamp01(coerce(raw[key]))
}

func fieldAlias(raw map[string]any, keys ...string) float64 {
	for _, k := range keys {
		if _, ok := raw[k]; ok {
			return clamp01(coerce(raw[k]))
		}
	}
	return 0
}

// coerce converts the loose JSON value to a float64, defaulting to 0.
// json.Unmarshal into map[string]any yields float64 for numbers, but raw
// payloads assembled by callers may also carry ints, json.Number, or
// numeric strings.
func coerce(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
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
