package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"flashbook-monitor/src/helpers"
	"flashbook-monitor/src/interfaces"
	"flashbook-monitor/src/logger"
	"flashbook-monitor/src/models"
	"flashbook-monitor/src/utils"
)

// -----------------------------------------------------------------------------
// sqlJournal holds the statements shared by the sqlite and postgres journals.
// Queries are written with '?' placeholders and rebound per dialect.
// -----------------------------------------------------------------------------

type sqlJournal struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger

	prefix   string // schema qualifier, "" for sqlite
	numbered bool   // postgres $1 placeholders
}

// -----------------------------------------------------------------------------

// NewJournal builds the journal selected by storage.db_type.
func NewJournal(cfg *models.MConfig, log *logger.Logger) (interfaces.IJournal, error) {
	switch strings.ToLower(cfg.Storage.DBType) {
	case "", "sqlite":
		return NewSQLiteJournal(cfg, log), nil
	case "postgres", "postgresql":
		return NewPostgresJournal(cfg, log)
	}
	return nil, helpers.NewConfigurationError(fmt.Sprintf("unsupported db_type %q", cfg.Storage.DBType))
}

// -----------------------------------------------------------------------------

func (j *sqlJournal) table(name string) string {
	return j.prefix + name
}

// rebind turns '?' placeholders into $1..$n for postgres.
func (j *sqlJournal) rebind(query string) string {
	if !j.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// -----------------------------------------------------------------------------

func (j *sqlJournal) SaveTradesBulk(ctx context.Context, sessionID string, trades []models.MTradeEvent) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := j.DB.BeginTx(ctx, nil)
	if err != nil {
		return helpers.NewDatabaseError("begin trades batch", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, j.rebind(fmt.Sprintf(`
		INSERT INTO %s (session_id, trade_id, symbol, price, quantity, source_ts, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, j.table("trades"))))
	if err != nil {
		return helpers.NewDatabaseError("prepare trades insert", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Unix()
	for _, t := range trades {
		if _, err := stmt.ExecContext(ctx, sessionID, t.TradeID, t.Symbol, t.Price, t.Quantity, string(t.Timestamp), now); err != nil {
			return helpers.NewDatabaseError("insert trade", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return helpers.NewDatabaseError("commit trades batch", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (j *sqlJournal) SaveExchangeStats(ctx context.Context, sessionID string, stats models.MExchangeStats) error {
	query := j.rebind(fmt.Sprintf(`
		INSERT INTO %s (session_id, total_trades, total_volume_value, source_ts, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`, j.table("exchange_stats")))

	_, err := j.DB.ExecContext(ctx, query, sessionID, stats.TotalTrades, stats.TotalVolumeValue,
		string(stats.Timestamp), time.Now().UTC().Unix())
	if err != nil {
		return helpers.NewDatabaseError("insert exchange stats", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (j *sqlJournal) SaveCommand(ctx context.Context, sessionID string, name string, body []byte, sentAt time.Time) error {
	query := j.rebind(fmt.Sprintf(`
		INSERT INTO %s (session_id, name, body, recorded_at)
		VALUES (?, ?, ?, ?)
	`, j.table("commands")))

	if _, err := j.DB.ExecContext(ctx, query, sessionID, name, string(body), sentAt.UTC().Unix()); err != nil {
		return helpers.NewDatabaseError("insert command", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// RecentTrades returns the newest journaled trades of symbol, newest first.
func (j *sqlJournal) RecentTrades(ctx context.Context, symbol string, limit int) ([]models.MTradeEvent, error) {
	if limit <= 0 {
		limit = utils.DefaultTradeCapacity
	}
	query := j.rebind(fmt.Sprintf(`
		SELECT trade_id, symbol, price, quantity, source_ts
		FROM %s WHERE symbol = ? ORDER BY id DESC LIMIT ?
	`, j.table("trades")))

	rows, err := j.DB.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, helpers.NewDatabaseError("query trades", err)
	}
	defer rows.Close()

	trades := []models.MTradeEvent{}
	for rows.Next() {
		var (
			t  models.MTradeEvent
			ts string
		)
		if err := rows.Scan(&t.TradeID, &t.Symbol, &t.Price, &t.Quantity, &ts); err != nil {
			return nil, helpers.NewDatabaseError("scan trade", err)
		}
		t.Timestamp = models.Timestamp(ts)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewDatabaseError("iterate trades", err)
	}
	return trades, nil
}

// -----------------------------------------------------------------------------

func (j *sqlJournal) CleanupOldData(ctx context.Context) error {
	retentionDays := j.Config.Storage.RetentionDays
	if retentionDays <= 0 {
		retentionDays = utils.DefaultRetentionDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Unix()

	j.Logger.Info("Cleaning up journal rows older than %d days (recorded_at < %d)", retentionDays, cutoff)

	for _, name := range []string{"trades", "exchange_stats", "commands"} {
		query := j.rebind(fmt.Sprintf("DELETE FROM %s WHERE recorded_at < ?", j.table(name)))
		if _, err := j.DB.ExecContext(ctx, query, cutoff); err != nil {
			return helpers.NewDatabaseError("cleanup "+name, err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (j *sqlJournal) Close() error {
	if j.DB != nil {
		return j.DB.Close()
	}
	return nil
}
