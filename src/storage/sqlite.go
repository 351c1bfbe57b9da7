package storage

import (
	"database/sql"

	_ "modernc.org/sqlite"

	"flashbook-monitor/src/helpers"
	"flashbook-monitor/src/logger"
	"flashbook-monitor/src/models"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		trade_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		price REAL NOT NULL,
		quantity INTEGER NOT NULL,
		source_ts TEXT,
		recorded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades (symbol, id);

	CREATE TABLE IF NOT EXISTS exchange_stats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		total_trades INTEGER NOT NULL,
		total_volume_value REAL NOT NULL,
		source_ts TEXT,
		recorded_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		name TEXT NOT NULL,
		body TEXT NOT NULL,
		recorded_at INTEGER NOT NULL
	);
`

// -----------------------------------------------------------------------------

type SQLiteJournal struct {
	sqlJournal
}

// -----------------------------------------------------------------------------

func NewSQLiteJournal(cfg *models.MConfig, log *logger.Logger) *SQLiteJournal {
	if log == nil {
		log = logger.NewLogger(nil, "SQLiteJournal")
	}
	return &SQLiteJournal{sqlJournal{Config: cfg, Logger: log}}
}

// -----------------------------------------------------------------------------

func (d *SQLiteJournal) Initialize() error {
	dsn := d.Config.Storage.DBPath
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewDatabaseError("open sqlite "+dsn, err)
	}
	// single writer; also keeps :memory: on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping sqlite", err)
	}
	d.DB = db

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		return helpers.NewDatabaseError("apply sqlite schema", err)
	}
	d.Logger.Info("SQLite journal ready at %s", dsn)
	return nil
}
