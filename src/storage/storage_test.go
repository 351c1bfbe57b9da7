package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashbook-monitor/src/helpers"
	"flashbook-monitor/src/logger"
	"flashbook-monitor/src/models"
)

func memoryJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	cfg := &models.MConfig{Storage: models.MStorageConfig{DBType: "sqlite", DBPath: ":memory:", RetentionDays: 7}}
	j := NewSQLiteJournal(cfg, logger.NewNopLogger("Journal"))
	require.NoError(t, j.Initialize())
	t.Cleanup(func() { j.Close() })
	return j
}

func trades(symbol string, n int) []models.MTradeEvent {
	out := make([]models.MTradeEvent, n)
	for i := range out {
		out[i] = models.MTradeEvent{
			Symbol:    symbol,
			TradeID:   fmt.Sprintf("%s-%d", symbol, i),
			Price:     100 + float64(i),
			Quantity:  int64(i + 1),
			Timestamp: models.Timestamp(fmt.Sprintf("ts%d", i)),
		}
	}
	return out
}

func TestSQLiteJournalTrades(t *testing.T) {
	j := memoryJournal(t)
	ctx := context.Background()

	require.NoError(t, j.SaveTradesBulk(ctx, "s1", trades("ABC", 5)))
	require.NoError(t, j.SaveTradesBulk(ctx, "s1", trades("XYZ", 2)))
	require.NoError(t, j.SaveTradesBulk(ctx, "s1", nil))

	got, err := j.RecentTrades(ctx, "ABC", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "ABC-4", got[0].TradeID)
	assert.Equal(t, 104.0, got[0].Price)
	assert.Equal(t, int64(5), got[0].Quantity)
	assert.Equal(t, models.Timestamp("ts4"), got[0].Timestamp)

	none, err := j.RecentTrades(ctx, "QQQ", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteJournalStatsCommandsAndCleanup(t *testing.T) {
	j := memoryJournal(t)
	ctx := context.Background()

	require.NoError(t, j.SaveExchangeStats(ctx, "s1", models.MExchangeStats{TotalTrades: 3, TotalVolumeValue: 12.5}))
	old := time.Now().AddDate(0, 0, -30)
	require.NoError(t, j.SaveCommand(ctx, "s1", "reset", []byte(`{"command":"reset"}`), old))
	require.NoError(t, j.SaveCommand(ctx, "s1", "set_pause", []byte(`{"command":"set_pause"}`), time.Now()))

	require.NoError(t, j.CleanupOldData(ctx))

	var commands, stats int
	require.NoError(t, j.DB.QueryRow("SELECT COUNT(*) FROM commands").Scan(&commands))
	require.NoError(t, j.DB.QueryRow("SELECT COUNT(*) FROM exchange_stats").Scan(&stats))
	assert.Equal(t, 1, commands)
	assert.Equal(t, 1, stats)
}

func TestRebindForPostgres(t *testing.T) {
	j := newPostgresJournal(&models.MConfig{}, "flashbook-monitor", logger.NewNopLogger("Journal"))
	assert.Equal(t, "flashbook_monitor", j.Schema)
	assert.Equal(t, `"flashbook_monitor".trades`, j.table("trades"))
	assert.Equal(t, "a = $1 AND b = $2", j.rebind("a = ? AND b = ?"))

	s := NewSQLiteJournal(&models.MConfig{}, logger.NewNopLogger("Journal"))
	assert.Equal(t, "a = ?", s.rebind("a = ?"))
	assert.Equal(t, "trades", s.table("trades"))
}

func TestNewJournalRejectsUnknownType(t *testing.T) {
	_, err := NewJournal(&models.MConfig{Storage: models.MStorageConfig{DBType: "mongo"}}, logger.NewNopLogger("Journal"))
	var cfgErr *helpers.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))

	j, err := NewJournal(&models.MConfig{}, logger.NewNopLogger("Journal"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteJournal{}, j)
}

func TestAsyncJournalFlushesOnStop(t *testing.T) {
	j := memoryJournal(t)
	cfg := &models.MConfig{Storage: models.MStorageConfig{FlushIntervalSeconds: 60, BatchSize: 1000}}
	async := NewAsyncJournal(j, cfg, logger.NewNopLogger("Journal"))
	async.Start(context.Background())

	async.SetSession("s1")
	for _, tr := range trades("ABC", 4) {
		async.RecordTrade(tr)
	}
	async.RecordStats(models.MExchangeStats{TotalTrades: 4})
	async.SetSession("s2")
	async.RecordTrade(trades("ABC", 5)[4])
	async.RecordCommand("set_resume", []byte(`{"command":"set_resume"}`))
	async.Stop()

	got, err := j.RecentTrades(context.Background(), "ABC", 10)
	require.NoError(t, err)
	assert.Len(t, got, 5)

	var sessions int
	require.NoError(t, j.DB.QueryRow("SELECT COUNT(DISTINCT session_id) FROM trades").Scan(&sessions))
	assert.Equal(t, 2, sessions)

	var name string
	require.NoError(t, j.DB.QueryRow("SELECT name FROM commands").Scan(&name))
	assert.Equal(t, "set_resume", name)
}

func TestAsyncJournalFlushesFullBatch(t *testing.T) {
	j := memoryJournal(t)
	cfg := &models.MConfig{Storage: models.MStorageConfig{FlushIntervalSeconds: 60, BatchSize: 3}}
	async := NewAsyncJournal(j, cfg, logger.NewNopLogger("Journal"))
	async.Start(context.Background())
	defer async.Stop()

	for _, tr := range trades("XYZ", 3) {
		async.RecordTrade(tr)
	}

	require.Eventually(t, func() bool {
		got, err := j.RecentTrades(context.Background(), "XYZ", 10)
		return err == nil && len(got) == 3
	}, 2*time.Second, 10*time.Millisecond)
}
