package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "tally/pkg/domain-errors"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30, cfg.MatchWindowMinutes)
	assert.Equal(t, 29, cfg.LowRiskMax)
	assert.Equal(t, 70, cfg.HighRiskMin)
	assert.Equal(t, 24, cfg.DuplicateLookbackHours)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"low risk max equals high risk min", func(c *Config) { c.LowRiskMax = 70 }},
		{"low risk max above high risk min", func(c *Config) { c.LowRiskMax = 80; c.HighRiskMin = 60 }},
		{"high risk min out of range", func(c *Config) { c.HighRiskMin = 101 }},
		{"zero window", func(c *Config) { c.MatchWindowMinutes = 0 }},
		{"negative absolute tolerance", func(c *Config) { c.AmountToleranceAbsolute = -1 }},
		{"ceiling below tolerance", func(c *Config) { c.MismatchCeilingPercent = 0.5 }},
		{"zero lookback", func(c *Config) { c.DuplicateLookbackHours = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
		})
	}
}

func TestBand(t *testing.T) {
	cfg := DefaultConfig()
	// 1% of 1250 is 12.5, larger than the absolute 5.
	assert.True(t, cfg.Band(decimal.NewFromInt(1250)).Equal(decimal.RequireFromString("12.5")))
	// 1% of 200 is 2, so the absolute 5 wins.
	assert.True(t, cfg.Band(decimal.NewFromInt(200)).Equal(decimal.NewFromInt(5)))
	assert.True(t, cfg.Band(decimal.Zero).Equal(decimal.NewFromInt(5)))
}

func TestFromLookup(t *testing.T) {
	env := map[string]string{
		"RECON_MATCH_WINDOW_MINUTES": "45",
		"RECON_HIGH_RISK_MIN":        "80",
		"RECON_HIGH_VALUE_THRESHOLD": "2500.5",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	cfg, err := FromLookup(lookup)
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.MatchWindowMinutes)
	assert.Equal(t, 80, cfg.HighRiskMin)
	assert.Equal(t, 2500.5, cfg.HighValueThreshold)
	assert.Equal(t, 29, cfg.LowRiskMax)

	env["RECON_LOW_RISK_MAX"] = "abc"
	_, err = FromLookup(lookup)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))

	env["RECON_LOW_RISK_MAX"] = "90"
	_, err = FromLookup(lookup)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration), "lowRiskMax >= highRiskMin must fail fast")
}
