package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashbook-monitor/src/config"
	"flashbook-monitor/src/helpers"
	"flashbook-monitor/src/models"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultURL, cfg.Exchange.URL)
	assert.Equal(t, 1000, cfg.Reconnect.BaseDelayMs)
	assert.Equal(t, 10000, cfg.Reconnect.MaxDelayMs)
	assert.Equal(t, 5, cfg.Reconnect.MaxAttempts)
	assert.Equal(t, 30, cfg.Buffers.TradeCapacity)
	assert.Equal(t, 100, cfg.Buffers.HistoryCapacity)
	assert.Equal(t, []string{"ABC", "XYZ"}, cfg.Symbols())
	require.Len(t, cfg.Exchange.Roster[1].Agents, 4)
	assert.Equal(t, models.StrategyNoise, cfg.Exchange.Roster[1].Agents[3].Strategy)
}

func TestYAMLAndEnvOverrides(t *testing.T) {
	path := writeYAML(t, `
name: desk
port: 9001
exchange:
  url: ws://example:1/ws
  roster:
    - symbol: QQQ
      agents:
        - {strategy: momentum, risk: 1.5, bankroll: 500}
`)
	t.Setenv("FLASHBOOK_WS_URL", "ws://override:2/ws")
	t.Setenv("FLASHBOOK_LOG_LEVEL", "DEBUG")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "desk", cfg.Name)
	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, "ws://override:2/ws", cfg.Exchange.URL)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, []string{"QQQ"}, cfg.Symbols())
	assert.InDelta(t, 1.5, cfg.Exchange.Roster[0].Agents[0].RiskFactor, 1e-9)
}

func TestValidateRejectsBadRoster(t *testing.T) {
	cases := map[string]string{
		"unknown strategy": "exchange:\n  roster:\n    - symbol: ABC\n      agents:\n        - {strategy: arbitrage, risk: 1, bankroll: 1}\n",
		"risk range":       "exchange:\n  roster:\n    - symbol: ABC\n      agents:\n        - {strategy: noise, risk: 3, bankroll: 1}\n",
		"duplicate symbol": "exchange:\n  roster:\n    - symbol: ABC\n    - symbol: ABC\n",
		"bad url":          "exchange:\n  url: http://nope\n",
		"bad db":           "storage:\n  db_type: mysql\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.LoadConfig(writeYAML(t, body))
			require.Error(t, err)
			var cfgErr *helpers.ConfigurationError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestSaveRoundTrips(t *testing.T) {
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(path))

	again, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Exchange.Roster, again.Exchange.Roster)
	assert.Equal(t, cfg.Reconnect, again.Reconnect)
}
