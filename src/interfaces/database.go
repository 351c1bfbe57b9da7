package interfaces

import (
	"context"
	"time"

	"flashbook-monitor/src/models"
)

// -----------------------------------------------------------------------------
// IJournal defines the contract for the trade/stats/command journal.
// -----------------------------------------------------------------------------

type IJournal interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveTradesBulk inserts a batch of ticker trades for a session.
	SaveTradesBulk(ctx context.Context, sessionID string, trades []models.MTradeEvent) error

	// -----------------------------------------------------------------------------

	// SaveExchangeStats records one exchange_stats snapshot.
	SaveExchangeStats(ctx context.Context, sessionID string, stats models.MExchangeStats) error

	// -----------------------------------------------------------------------------

	// SaveCommand records an outbound command that was sent.
	SaveCommand(ctx context.Context, sessionID string, name string, body []byte, sentAt time.Time) error

	// -----------------------------------------------------------------------------

	// RecentTrades returns the newest journaled trades for a symbol.
	RecentTrades(ctx context.Context, symbol string, limit int) ([]models.MTradeEvent, error)

	// -----------------------------------------------------------------------------

	// CleanupOldData removes data older than the retention policy.
	CleanupOldData(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}

// -----------------------------------------------------------------------------
// IJournalWriter queues journal rows without blocking the caller.
// -----------------------------------------------------------------------------

type IJournalWriter interface {
	ICommandRecorder

	// SetSession tags subsequent rows with the connection session id.
	SetSession(sessionID string)

	RecordTrade(trade models.MTradeEvent)
	RecordStats(stats models.MExchangeStats)
}
