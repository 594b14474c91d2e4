package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-maintenance/internal/analytics"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "HISTORY_BACKEND", "NOTIFY_BACKEND", "LOG_LEVEL", "JWT_EXPIRY", "COST_TABLE_PATH", "ANALYTICS_CONFIG_PATH", "HIGH_RISK_WINDOW_DAYS"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, BackendMongo, cfg.History.Backend)
	assert.Equal(t, NotifyNone, cfg.Notify.Backend)
	assert.Equal(t, log.InfoLevel, cfg.LogLevel)
	assert.Equal(t, 24*time.Hour, cfg.Auth.Expiry)
	assert.Equal(t, 7, cfg.Analytics.HighRiskWindowDays)
	assert.Equal(t, DefaultCosts(), cfg.Analytics.Costs)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HISTORY_BACKEND", "Postgres")
	t.Setenv("NOTIFY_BACKEND", "redis")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("JWT_EXPIRY", "1h")
	t.Setenv("HIGH_RISK_WINDOW_DAYS", "10")
	t.Setenv("PATTERN_ALERT_MIN_SCORE", "60.5")
	t.Setenv("PATTERN_DECAY_DAYS", "45")
	t.Setenv("COST_TABLE_PATH", "")
	t.Setenv("ANALYTICS_CONFIG_PATH", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, BackendPostgres, cfg.History.Backend)
	assert.Equal(t, NotifyRedis, cfg.Notify.Backend)
	assert.Equal(t, log.DebugLevel, cfg.LogLevel)
	assert.Equal(t, time.Hour, cfg.Auth.Expiry)
	assert.Equal(t, 10, cfg.Analytics.HighRiskWindowDays)
	assert.Equal(t, 60.5, cfg.Analytics.PatternAlertMinScore)
	assert.Equal(t, 45.0, cfg.Analytics.PatternDecayDays)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"HISTORY_BACKEND", "sqlite"},
		{"NOTIFY_BACKEND", "kafka"},
		{"LOG_LEVEL", "loud"},
		{"JWT_EXPIRY", "forever"},
		{"RATE_LIMIT", "many"},
		{"CRITICAL_OVERDUE_DAYS", "thirty"},
		{"MEDIUM_RISK_WINDOW_DAYS", "3"},
		{"PATTERN_ALERT_MIN_SCORE", "90"},
		{"PATTERN_DECAY_DAYS", "0"},
		{"VOLUME_BONUS_SCALE", "-1"},
		{"ANALYTICS_CONFIG_PATH", "/nonexistent/analytics.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoadCostTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "costs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`costs:
  Brake:
    cost: 1500
    downtime_hours: 5
  Door: {cost: 200, downtime_hours: 1}
`), 0o600))

	costs, err := LoadCostTable(path)
	require.NoError(t, err)
	assert.Equal(t, analytics.CostEstimate{Cost: 1500, DowntimeHours: 5}, costs.Lookup("Brake"))
	assert.Equal(t, analytics.CostEstimate{Cost: 200, DowntimeHours: 1}, costs.Lookup("door"))
	assert.Equal(t, analytics.CostEstimate{}, costs.Lookup("Engine"))

	t.Setenv("COST_TABLE_PATH", path)
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, costs, cfg.Analytics.Costs)
}

func TestLoadCostTable_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadCostTable(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("costs: [1, 2"), 0o600))
	_, err = LoadCostTable(bad)
	assert.Error(t, err)

	negative := filepath.Join(dir, "negative.yaml")
	require.NoError(t, os.WriteFile(negative, []byte("costs:\n  Brake: {cost: -1}\n"), 0o600))
	_, err = LoadCostTable(negative)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte(""), 0o600))
	costs, err := LoadCostTable(empty)
	require.NoError(t, err)
	assert.Empty(t, costs)
}

func TestLoadAnalyticsConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analytics.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`high_risk_window_days: 3
pattern_decay_days: 20
costs:
  Brake: {cost: 900, downtime_hours: 2}
`), 0o600))

	base := analytics.DefaultConfig()
	base.Costs = DefaultCosts()
	cfg, err := LoadAnalyticsConfig(path, base)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.HighRiskWindowDays)
	assert.Equal(t, 20.0, cfg.PatternDecayDays)
	assert.Equal(t, 30, cfg.MediumRiskWindowDays, "keys left out keep their base value")
	assert.Equal(t, analytics.CostTable{"Brake": {Cost: 900, DowntimeHours: 2}}, cfg.Costs)

	t.Run("without costs keeps base table", func(t *testing.T) {
		noCosts := filepath.Join(dir, "thresholds.yaml")
		require.NoError(t, os.WriteFile(noCosts, []byte("critical_overdue_days: 14\n"), 0o600))
		cfg, err := LoadAnalyticsConfig(noCosts, base)
		require.NoError(t, err)
		assert.Equal(t, 14, cfg.CriticalOverdueDays)
		assert.Equal(t, DefaultCosts(), cfg.Costs)
	})

	t.Run("environment wins over file", func(t *testing.T) {
		t.Setenv("ANALYTICS_CONFIG_PATH", path)
		t.Setenv("COST_TABLE_PATH", "")
		t.Setenv("HIGH_RISK_WINDOW_DAYS", "5")
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Analytics.HighRiskWindowDays)
		assert.Equal(t, 20.0, cfg.Analytics.PatternDecayDays)
	})

	t.Run("invalid thresholds", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("pattern_alert_min_score: 85\nhigh_priority_pattern_score: 80\n"), 0o600))
		_, err := LoadAnalyticsConfig(bad, base)
		assert.Error(t, err)

		zero := filepath.Join(dir, "zero.yaml")
		require.NoError(t, os.WriteFile(zero, []byte("pattern_decay_days: 0\n"), 0o600))
		_, err = LoadAnalyticsConfig(zero, base)
		assert.Error(t, err)
	})
}
