package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "github.com/lib/pq"

	"flashbook-monitor/src/helpers"
	"flashbook-monitor/src/logger"
	"flashbook-monitor/src/models"
)

var schemaNameRe = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// -----------------------------------------------------------------------------

// PostgresJournal writes into a schema named after the executable.
type PostgresJournal struct {
	sqlJournal
	Schema string
}

// -----------------------------------------------------------------------------

func NewPostgresJournal(cfg *models.MConfig, log *logger.Logger) (*PostgresJournal, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return newPostgresJournal(cfg, name, log), nil
}

func newPostgresJournal(cfg *models.MConfig, schema string, log *logger.Logger) *PostgresJournal {
	if log == nil {
		log = logger.NewLogger(nil, "PostgresJournal")
	}
	schema = schemaNameRe.ReplaceAllString(schema, "_")
	return &PostgresJournal{
		sqlJournal: sqlJournal{
			Config:   cfg,
			Logger:   log,
			prefix:   fmt.Sprintf(`"%s".`, schema),
			numbered: true,
		},
		Schema: schema,
	}
}

// -----------------------------------------------------------------------------

func (d *PostgresJournal) Initialize() error {
	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return helpers.NewDatabaseError("open postgres", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping postgres", err)
	}
	d.DB = db

	if _, err := db.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewDatabaseError("create schema "+d.Schema, err)
	}
	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresJournal initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresJournal) createTables() error {
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				session_id TEXT NOT NULL,
				trade_id TEXT NOT NULL,
				symbol TEXT NOT NULL,
				price DOUBLE PRECISION NOT NULL,
				quantity BIGINT NOT NULL,
				source_ts TEXT,
				recorded_at BIGINT NOT NULL
			)`, d.table("trades")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_trades_symbol ON %s (symbol, id)`, d.table("trades")),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				session_id TEXT NOT NULL,
				total_trades BIGINT NOT NULL,
				total_volume_value DOUBLE PRECISION NOT NULL,
				source_ts TEXT,
				recorded_at BIGINT NOT NULL
			)`, d.table("exchange_stats")),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				session_id TEXT NOT NULL,
				name TEXT NOT NULL,
				body TEXT NOT NULL,
				recorded_at BIGINT NOT NULL
			)`, d.table("commands")),
	}

	for _, stmt := range statements {
		if _, err := d.DB.Exec(stmt); err != nil {
			return helpers.NewDatabaseError("create journal tables", err)
		}
	}
	return nil
}
