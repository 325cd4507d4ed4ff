// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint for traces (optional)
	RateLimitRPM int

	// Risk scoring
	Risk RiskConfig

	// Trust scores
	Trust TrustConfig

	// Anti-raid detection
	Raid RaidConfig
}

// RiskConfig holds the risk formula weights and decision thresholds.
// Weights need not sum to 1; each independently dampens its factor's
// contribution in the noisy-OR product.
type RiskConfig struct {
	WeightSpam        float64
	WeightToxic       float64
	WeightScam        float64
	WeightIllegal     float64
	WeightPhishing    float64
	WeightNSFW        float64
	WeightFlood       float64
	WeightUserHistory float64
	WeightSimilarity  float64
	WeightLink        float64

	// Thresholds on the 0-100 final score, ordered descending.
	ThresholdCritical float64
	ThresholdHigh     float64
	ThresholdMedium   float64
}

// TrustConfig holds trust score bounds and behavioral deltas.
type TrustConfig struct {
	Min     float64
	Max     float64
	Initial float64

	BonusPositive    float64
	PenaltyViolation float64
	PenaltyMute      float64
	PenaltyBan       float64

	RestrictMediaBelow float64
	AutoBanBelow       float64

	// DecayIntervalMinutes is how often the decay worker sweeps inactive
	// records. 0 disables the worker.
	DecayIntervalMinutes int
}

// RaidConfig holds anti-raid detection thresholds.
type RaidConfig struct {
	JoinThreshold     int // joins within the velocity window that trigger mass_join
	TimeWindowSeconds int // trailing velocity window
	NewAccountDays    int // accounts younger than this count toward new_account_wave
}

// Defaults
const (
	DefaultPort      = "8080"
	DefaultEnv       = "development"
	DefaultLogLevel  = "info"
	DefaultRateLimit = 120
)

// DefaultRiskConfig returns the stock weights and thresholds.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		WeightSpam:        0.18,
		WeightToxic:       0.14,
		WeightScam:        0.16,
		WeightIllegal:     0.18,
		WeightPhishing:    0.14,
		WeightNSFW:        0.12,
		WeightFlood:       0.10,
		WeightUserHistory: 0.10,
		WeightSimilarity:  0.08,
		WeightLink:        0.10,
		ThresholdCritical: 85,
		ThresholdHigh:     70,
		ThresholdMedium:   50,
	}
}

// DefaultTrustConfig returns the stock trust bounds and deltas.
func DefaultTrustConfig() TrustConfig {
	return TrustConfig{
		Min:                  0,
		Max:                  100,
		Initial:              50,
		BonusPositive:        0.8,
		PenaltyViolation:     5,
		PenaltyMute:          8,
		PenaltyBan:           15,
		RestrictMediaBelow:   25,
		AutoBanBelow:         10,
		DecayIntervalMinutes: 0,
	}
}

// DefaultRaidConfig returns the stock raid thresholds.
func DefaultRaidConfig() RaidConfig {
	return RaidConfig{
		JoinThreshold:     10,
		TimeWindowSeconds: 30,
		NewAccountDays:    7,
	}
}

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", DefaultPort),
		Env:          getEnv("ENV", DefaultEnv),
		LogLevel:     getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:  os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		RateLimitRPM: getEnvInt("RATE_LIMIT_RPM", DefaultRateLimit),
		Risk:         loadRiskConfig(),
		Trust:        loadTrustConfig(),
		Raid:         loadRaidConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadRiskConfig() RiskConfig {
	c := DefaultRiskConfig()
	c.WeightSpam = getEnvFloat("RISK_WEIGHT_SPAM", c.WeightSpam)
	c.WeightToxic = getEnvFloat("RISK_WEIGHT_TOXIC", c.WeightToxic)
	c.WeightScam = getEnvFloat("RISK_WEIGHT_SCAM", c.WeightScam)
	c.WeightIllegal = getEnvFloat("RISK_WEIGHT_ILLEGAL", c.WeightIllegal)
	c.WeightPhishing = getEnvFloat("RISK_WEIGHT_PHISHING", c.WeightPhishing)
	c.WeightNSFW = getEnvFloat("RISK_WEIGHT_NSFW", c.WeightNSFW)
	c.WeightFlood = getEnvFloat("RISK_WEIGHT_FLOOD", c.WeightFlood)
	c.WeightUserHistory = getEnvFloat("RISK_WEIGHT_USER_HISTORY", c.WeightUserHistory)
	c.WeightSimilarity = getEnvFloat("RISK_WEIGHT_SIMILARITY", c.WeightSimilarity)
	c.WeightLink = getEnvFloat("RISK_WEIGHT_LINK_SUSPICIOUS", c.WeightLink)
	c.ThresholdCritical = getEnvFloat("RISK_THRESHOLD_CRITICAL", c.ThresholdCritical)
	c.ThresholdHigh = getEnvFloat("RISK_THRESHOLD_HIGH", c.ThresholdHigh)
	c.ThresholdMedium = getEnvFloat("RISK_THRESHOLD_MEDIUM", c.ThresholdMedium)
	return c
}

func loadTrustConfig() TrustConfig {
	c := DefaultTrustConfig()
	c.Min = getEnvFloat("TRUST_MIN", c.Min)
	c.Max = getEnvFloat("TRUST_MAX", c.Max)
	c.Initial = getEnvFloat("TRUST_INITIAL", c.Initial)
	c.BonusPositive = getEnvFloat("TRUST_BONUS_POSITIVE", c.BonusPositive)
	c.PenaltyViolation = getEnvFloat("TRUST_PENALTY_VIOLATION", c.PenaltyViolation)
	c.PenaltyMute = getEnvFloat("TRUST_PENALTY_MUTE", c.PenaltyMute)
	c.PenaltyBan = getEnvFloat("TRUST_PENALTY_BAN", c.PenaltyBan)
	c.RestrictMediaBelow = getEnvFloat("TRUST_AUTO_RESTRICT_MEDIA", c.RestrictMediaBelow)
	c.AutoBanBelow = getEnvFloat("TRUST_AUTO_BAN", c.AutoBanBelow)
	c.DecayIntervalMinutes = getEnvInt("TRUST_DECAY_INTERVAL_MINUTES", c.DecayIntervalMinutes)
	return c
}

func loadRaidConfig() RaidConfig {
	c := DefaultRaidConfig()
	c.JoinThreshold = getEnvInt("RAID_JOIN_THRESHOLD", c.JoinThreshold)
	c.TimeWindowSeconds = getEnvInt("RAID_TIME_WINDOW", c.TimeWindowSeconds)
	c.NewAccountDays = getEnvInt("RAID_NEW_ACCOUNT_DAYS", c.NewAccountDays)
	return c
}

// Validate checks that configuration values are internally consistent.
func (c *Config) Validate() error {
	if c.Trust.Min >= c.Trust.Max {
		return fmt.Errorf("TRUST_MIN (%v) must be below TRUST_MAX (%v)", c.Trust.Min, c.Trust.Max)
	}
	if c.Trust.Initial < c.Trust.Min || c.Trust.Initial > c.Trust.Max {
		return fmt.Errorf("TRUST_INITIAL (%v) must be within [%v, %v]", c.Trust.Initial, c.Trust.Min, c.Trust.Max)
	}
	if c.Risk.ThresholdCritical < c.Risk.ThresholdHigh || c.Risk.ThresholdHigh < c.Risk.ThresholdMedium {
		return fmt.Errorf("risk thresholds must be ordered critical >= high >= medium, got %v/%v/%v",
			c.Risk.ThresholdCritical, c.Risk.ThresholdHigh, c.Risk.ThresholdMedium)
	}
	if c.Raid.JoinThreshold < 1 {
		return fmt.Errorf("RAID_JOIN_THRESHOLD must be at least 1")
	}
	if c.Raid.TimeWindowSeconds < 1 {
		return fmt.Errorf("RAID_TIME_WINDOW must be at least 1 second")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
