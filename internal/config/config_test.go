package config

import (
	"testing"
	"time"

	"github.com/emrgen/suggest/internal/badge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DriverSqlite, cfg.DBDriver)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, 3, cfg.JobMaxAttempts)
	assert.Equal(t, 2*time.Minute, cfg.JobAttemptTimeout)
	assert.Equal(t, time.Hour, cfg.Cooldown)
	assert.Equal(t, 60*time.Second, cfg.ValidatorTimeout)
	assert.Equal(t, badge.Thresholds{badge.TierBronze: 1, badge.TierSilver: 10, badge.TierGold: 50}, cfg.Thresholds)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("SUGGESTION_COOLDOWN", "15m")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("BADGE_THRESHOLDS", "bronze:2,gold:20")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, 15*time.Minute, cfg.Cooldown)
	assert.Equal(t, 8, cfg.WorkerCount)
	assert.Equal(t, badge.Thresholds{badge.TierBronze: 2, badge.TierGold: 20}, cfg.Thresholds)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"DB_DRIVER":           "mysql",
		"WORKER_COUNT":        "many",
		"SUGGESTION_COOLDOWN": "an hour",
		"BADGE_THRESHOLDS":    "gold:1,bronze:5",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
