package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.History.Driver)
	assert.Equal(t, 24, cfg.History.QueryWindowHours)
	assert.Equal(t, 7, cfg.History.LeadWindowDays)
	assert.Equal(t, 7, cfg.History.EventDateToleranceDays)

	assert.InDelta(t, 0.60, cfg.Pipeline.BaseThreshold, 0.001)
	assert.InDelta(t, 0.35, cfg.Pipeline.ThresholdFloor, 0.001)
	assert.InDelta(t, 0.10, cfg.Pipeline.ThresholdDecrement, 0.001)
	assert.Equal(t, 5, cfg.Pipeline.MinLeads)
	assert.Equal(t, 3, cfg.Pipeline.MaxEscalations)
	assert.Equal(t, 2, cfg.Pipeline.SeedAttempt)
	assert.InDelta(t, 0.20, cfg.Pipeline.SeedThreshold, 0.001)
	assert.Equal(t, 100, cfg.Pipeline.MaxQueries)
	assert.Equal(t, 500, cfg.Pipeline.MaxCandidates)
	assert.Equal(t, 10, cfg.Pipeline.MaxLeads)
	assert.InDelta(t, 0.85, cfg.Pipeline.SimilarityThreshold, 0.001)
	assert.Equal(t, []string{"monthly"}, cfg.Pipeline.Periods)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NotEmpty(t, cfg.Search.BlockedDomains)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("EVENTSCOUT_PIPELINE_MIN_LEADS", "9")
	t.Setenv("EVENTSCOUT_HISTORY_DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Pipeline.MinLeads)
	assert.Equal(t, "postgres", cfg.History.Driver)
}

func TestHistoryConfig_Durations(t *testing.T) {
	cfg := HistoryConfig{
		QueryWindowHours:       24,
		LeadWindowDays:         7,
		EventDateToleranceDays: 7,
	}
	assert.Equal(t, 24*time.Hour, cfg.QueryWindow())
	assert.Equal(t, 7*24*time.Hour, cfg.LeadWindow())
	assert.Equal(t, 7*24*time.Hour, cfg.EventDateTolerance())
}

func TestInitLogger(t *testing.T) {
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
