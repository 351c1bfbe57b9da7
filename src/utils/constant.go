package utils

import "time"

// -----------------------------------------------------------------------------

// Defaults applied when the config leaves a value unset.
const (
	DefaultTradeCapacity   = 30
	DefaultHistoryCapacity = 100

	DefaultReconnectBase        = 1000 * time.Millisecond
	DefaultReconnectCap         = 10000 * time.Millisecond
	DefaultMaxReconnectAttempts = 5

	DefaultHandshakeTimeout = 10 * time.Second
	DefaultRetentionDays    = 7
)

// -----------------------------------------------------------------------------

// Millis converts a millisecond count from config into a duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
