package models

// MConfig Structure
type MConfig struct {
	Name      string           `yaml:"name"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	LogLevel  string           `yaml:"log_level"`
	Exchange  MExchangeConfig  `yaml:"exchange"`
	Reconnect MReconnectConfig `yaml:"reconnect"`
	Buffers   MBufferConfig    `yaml:"buffers"`
	Storage   MStorageConfig   `yaml:"storage"`
	Network   MNetworkConfig   `yaml:"network"`
	Console   MConsoleConfig   `yaml:"console"`
}

type MExchangeConfig struct {
	URL                     string         `yaml:"url"`
	HandshakeTimeoutSeconds int            `yaml:"handshake_timeout_seconds"`
	Roster                  []MRosterEntry `yaml:"roster"`
}

// MRosterEntry keeps the per-symbol agent templates in declaration order.
type MRosterEntry struct {
	Symbol string           `yaml:"symbol"`
	Agents []MAgentTemplate `yaml:"agents"`
}

type MAgentTemplate struct {
	Strategy   string  `yaml:"strategy"`
	RiskFactor float64 `yaml:"risk"`
	Bankroll   float64 `yaml:"bankroll"`
}

type MReconnectConfig struct {
	BaseDelayMs int `yaml:"base_delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms"`
	MaxAttempts int `yaml:"max_attempts"`
}

type MBufferConfig struct {
	TradeCapacity   int `yaml:"trade_capacity"`
	HistoryCapacity int `yaml:"history_capacity"`
}

type MStorageConfig struct {
	DBType               string `yaml:"db_type"`
	DBPath               string `yaml:"db_path"`
	DBConnectionString   string `yaml:"db_connection_string"`
	RetentionDays        int    `yaml:"retention_days"`
	FlushIntervalSeconds int    `yaml:"flush_interval_seconds"`
	BatchSize            int    `yaml:"batch_size"`
}

type MNetworkConfig struct {
	Proxies   []string `yaml:"proxies"`
	UserAgent string   `yaml:"user_agent"`
}

type MConsoleConfig struct {
	Enabled   bool    `yaml:"enabled"`
	RefreshHz float64 `yaml:"refresh_hz"`
	TradeRows int     `yaml:"trade_rows"`
}

// Symbols returns the configured symbols in roster order.
func (c *MConfig) Symbols() []string {
	symbols := make([]string, 0, len(c.Exchange.Roster))
	for _, entry := range c.Exchange.Roster {
		symbols = append(symbols, entry.Symbol)
	}
	return symbols
}

// GetLogLevel exposes the configured level to the logger.
func (c *MConfig) GetLogLevel() string {
	if c == nil {
		return ""
	}
	return c.LogLevel
}
