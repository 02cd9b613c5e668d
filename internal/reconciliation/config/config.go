// Package config holds the reconciliation engine's tunables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	dErrors "tally/pkg/domain-errors"
)

// Config is the recognised configuration surface of the engine.
type Config struct {
	MatchWindowMinutes      int     `json:"matchWindowMinutes"`
	AmountTolerancePercent  float64 `json:"amountTolerancePercent"`
	AmountToleranceAbsolute float64 `json:"amountToleranceAbsolute"`
	LowRiskMax              int     `json:"lowRiskMax"`
	HighRiskMin             int     `json:"highRiskMin"`
	DuplicateLookbackHours  int     `json:"duplicateLookbackHours"`
	HighValueThreshold      float64 `json:"highValueThreshold"`
	MismatchCeilingPercent  float64 `json:"mismatchCeilingPercent"`
	SweepIntervalSeconds    int     `json:"sweepIntervalSeconds"`
	SweepConcurrency        int     `json:"sweepConcurrency"`
}

func DefaultConfig() Config {
	return Config{
		MatchWindowMinutes:      30,
		AmountTolerancePercent:  1,
		AmountToleranceAbsolute: 5,
		LowRiskMax:              29,
		HighRiskMin:             70,
		DuplicateLookbackHours:  24,
		HighValueThreshold:      1000,
		MismatchCeilingPercent:  25,
		SweepIntervalSeconds:    60,
		SweepConcurrency:        4,
	}
}

// Validate fails with CodeConfiguration; callers treat it as fatal.
func (c Config) Validate() error {
	var problems []string
	if c.MatchWindowMinutes <= 0 {
		problems = append(problems, "matchWindowMinutes must be positive")
	}
	if c.AmountTolerancePercent < 0 || c.AmountTolerancePercent > 100 {
		problems = append(problems, "amountTolerancePercent must be within [0,100]")
	}
	if c.AmountToleranceAbsolute < 0 {
		problems = append(problems, "amountToleranceAbsolute must not be negative")
	}
	if c.LowRiskMax < 0 || c.LowRiskMax > 100 {
		problems = append(problems, "lowRiskMax must be within [0,100]")
	}
	if c.HighRiskMin < 0 || c.HighRiskMin > 100 {
		problems = append(problems, "highRiskMin must be within [0,100]")
	}
	if c.LowRiskMax >= c.HighRiskMin {
		problems = append(problems, "lowRiskMax must be below highRiskMin")
	}
	if c.DuplicateLookbackHours <= 0 {
		problems = append(problems, "duplicateLookbackHours must be positive")
	}
	if c.HighValueThreshold < 0 {
		problems = append(problems, "highValueThreshold must not be negative")
	}
	if c.MismatchCeilingPercent < c.AmountTolerancePercent || c.MismatchCeilingPercent > 100 {
		problems = append(problems, "mismatchCeilingPercent must be within [amountTolerancePercent,100]")
	}
	if c.SweepIntervalSeconds <= 0 {
		problems = append(problems, "sweepIntervalSeconds must be positive")
	}
	if c.SweepConcurrency <= 0 {
		problems = append(problems, "sweepConcurrency must be positive")
	}
	if len(problems) > 0 {
		return dErrors.New(dErrors.CodeConfiguration, "invalid reconciliation config: "+strings.Join(problems, "; "))
	}
	return nil
}

func (c Config) MatchWindow() time.Duration {
	return time.Duration(c.MatchWindowMinutes) * time.Minute
}

func (c Config) DuplicateLookback() time.Duration {
	return time.Duration(c.DuplicateLookbackHours) * time.Hour
}

func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// Band is the accepted amount deviation for a bill of the given amount:
// the larger of the percentage and the absolute tolerance.
func (c Config) Band(amount decimal.Decimal) decimal.Decimal {
	pct := amount.Abs().Mul(decimal.NewFromFloat(c.AmountTolerancePercent)).Div(decimal.NewFromInt(100))
	abs := decimal.NewFromFloat(c.AmountToleranceAbsolute)
	if pct.GreaterThan(abs) {
		return pct
	}
	return abs
}

// MismatchCeiling is the largest deviation at which an out-of-band pair is
// still bound so it can be flagged instead of left dangling.
func (c Config) MismatchCeiling(amount decimal.Decimal) decimal.Decimal {
	return amount.Abs().Mul(decimal.NewFromFloat(c.MismatchCeilingPercent)).Div(decimal.NewFromInt(100))
}

func (c Config) HighValue() decimal.Decimal {
	return decimal.NewFromFloat(c.HighValueThreshold)
}

// FromEnv overlays RECON_* variables on the defaults. Malformed values are
// configuration errors, not silently ignored.
func FromEnv() (Config, error) {
	return FromLookup(os.LookupEnv)
}

func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	var err error
	intVar := func(key string, dst *int) {
		if err != nil {
			return
		}
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			n, perr := strconv.Atoi(strings.TrimSpace(v))
			if perr != nil {
				err = dErrors.New(dErrors.CodeConfiguration, fmt.Sprintf("%s must be an integer", key))
				return
			}
			*dst = n
		}
	}
	floatVar := func(key string, dst *float64) {
		if err != nil {
			return
		}
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			f, perr := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if perr != nil {
				err = dErrors.New(dErrors.CodeConfiguration, fmt.Sprintf("%s must be a number", key))
				return
			}
			*dst = f
		}
	}

	intVar("RECON_MATCH_WINDOW_MINUTES", &cfg.MatchWindowMinutes)
	floatVar("RECON_AMOUNT_TOLERANCE_PERCENT", &cfg.AmountTolerancePercent)
	floatVar("RECON_AMOUNT_TOLERANCE_ABSOLUTE", &cfg.AmountToleranceAbsolute)
	intVar("RECON_LOW_RISK_MAX", &cfg.LowRiskMax)
	intVar("RECON_HIGH_RISK_MIN", &cfg.HighRiskMin)
	intVar("RECON_DUPLICATE_LOOKBACK_HOURS", &cfg.DuplicateLookbackHours)
	floatVar("RECON_HIGH_VALUE_THRESHOLD", &cfg.HighValueThreshold)
	floatVar("RECON_MISMATCH_CEILING_PERCENT", &cfg.MismatchCeilingPercent)
	intVar("RECON_SWEEP_INTERVAL_SECONDS", &cfg.SweepIntervalSeconds)
	intVar("RECON_SWEEP_CONCURRENCY", &cfg.SweepConcurrency)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
