package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"flashbook-monitor/src/helpers"
	"flashbook-monitor/src/models"
)

const (
	DefaultURL = "ws://127.0.0.1:8000/api/v1/ws/dashboard"

	envURL      = "FLASHBOOK_WS_URL"
	envLogLevel = "FLASHBOOK_LOG_LEVEL"
	envDBPath   = "FLASHBOOK_DB_PATH"
	envDBDSN    = "FLASHBOOK_DB_DSN"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// LoadConfig reads the YAML file at configPath, applies .env and environment
// overrides, fills defaults and validates. A missing file is not an error:
// the defaults alone describe the stock simulator.
func LoadConfig(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var modelConfig models.MConfig
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &modelConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyEnvOverrides()
	config.setDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(envURL); v != "" {
		c.Exchange.URL = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv(envDBDSN); v != "" {
		c.Storage.DBConnectionString = v
		if c.Storage.DBType == "" {
			c.Storage.DBType = "postgres"
		}
	}
}

// -----------------------------------------------------------------------------

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "flashbook-monitor"
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 8090
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}

	if c.Exchange.URL == "" {
		c.Exchange.URL = DefaultURL
	}
	if c.Exchange.HandshakeTimeoutSeconds <= 0 {
		c.Exchange.HandshakeTimeoutSeconds = 10
	}
	if len(c.Exchange.Roster) == 0 {
		c.Exchange.Roster = DefaultRoster()
	}

	if c.Reconnect.BaseDelayMs <= 0 {
		c.Reconnect.BaseDelayMs = 1000
	}
	if c.Reconnect.MaxDelayMs <= 0 {
		c.Reconnect.MaxDelayMs = 10000
	}
	if c.Reconnect.MaxAttempts <= 0 {
		c.Reconnect.MaxAttempts = 5
	}

	if c.Buffers.TradeCapacity <= 0 {
		c.Buffers.TradeCapacity = 30
	}
	if c.Buffers.HistoryCapacity <= 0 {
		c.Buffers.HistoryCapacity = 100
	}

	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		c.Storage.DBPath = "flashbook.db"
	}
	if c.Storage.RetentionDays <= 0 {
		c.Storage.RetentionDays = 7
	}
	if c.Storage.FlushIntervalSeconds <= 0 {
		c.Storage.FlushIntervalSeconds = 2
	}
	if c.Storage.BatchSize <= 0 {
		c.Storage.BatchSize = 200
	}

	if c.Network.UserAgent == "" {
		c.Network.UserAgent = "flashbook-monitor/1.0"
	}

	if c.Console.RefreshHz <= 0 {
		c.Console.RefreshHz = 2
	}
	if c.Console.TradeRows <= 0 {
		c.Console.TradeRows = 10
	}
}

// -----------------------------------------------------------------------------

// DefaultRoster mirrors the simulator's stock agent layout.
func DefaultRoster() []models.MRosterEntry {
	agent := func(strategy string) models.MAgentTemplate {
		return models.MAgentTemplate{Strategy: strategy, RiskFactor: 1.0, Bankroll: 10000}
	}
	return []models.MRosterEntry{
		{Symbol: "ABC", Agents: []models.MAgentTemplate{
			agent(models.StrategyNoise),
			agent(models.StrategyMarketMaker),
			agent(models.StrategyMomentum),
		}},
		{Symbol: "XYZ", Agents: []models.MAgentTemplate{
			agent(models.StrategyNoise),
			agent(models.StrategyMarketMaker),
			agent(models.StrategyMomentum),
			agent(models.StrategyNoise),
		}},
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return helpers.NewConfigurationError("application name cannot be empty")
	}
	if c.Host == "" {
		return helpers.NewConfigurationError("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return helpers.NewConfigurationError(fmt.Sprintf("invalid server port number: %d (must be between 1025 and 65535)", c.Port))
	}

	if !strings.HasPrefix(c.Exchange.URL, "ws://") && !strings.HasPrefix(c.Exchange.URL, "wss://") {
		return helpers.NewConfigurationError(fmt.Sprintf("exchange url must be ws:// or wss://, got %q", c.Exchange.URL))
	}
	seen := make(map[string]bool)
	for i, entry := range c.Exchange.Roster {
		if entry.Symbol == "" {
			return helpers.NewConfigurationError(fmt.Sprintf("roster entry %d must have a symbol", i))
		}
		if seen[entry.Symbol] {
			return helpers.NewConfigurationError(fmt.Sprintf("symbol '%s' listed twice in roster", entry.Symbol))
		}
		seen[entry.Symbol] = true
		for j, a := range entry.Agents {
			if !models.IsKnownStrategy(a.Strategy) {
				return helpers.NewConfigurationError(fmt.Sprintf("roster %s agent %d: unknown strategy '%s'", entry.Symbol, j, a.Strategy))
			}
			if a.RiskFactor < models.MinRiskFactor || a.RiskFactor > models.MaxRiskFactor {
				return helpers.NewConfigurationError(fmt.Sprintf("roster %s agent %d: risk %.2f out of range", entry.Symbol, j, a.RiskFactor))
			}
			if a.Bankroll < 0 {
				return helpers.NewConfigurationError(fmt.Sprintf("roster %s agent %d: bankroll cannot be negative", entry.Symbol, j))
			}
		}
	}

	if c.Reconnect.BaseDelayMs > c.Reconnect.MaxDelayMs {
		return helpers.NewConfigurationError("reconnect base delay cannot exceed the cap")
	}

	switch strings.ToLower(c.Storage.DBType) {
	case "sqlite":
	case "postgres", "postgresql":
		if c.Storage.DBConnectionString == "" {
			return helpers.NewConfigurationError("database connection string cannot be empty for postgres")
		}
	default:
		return helpers.NewConfigurationError(fmt.Sprintf("unsupported database type '%s'", c.Storage.DBType))
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
