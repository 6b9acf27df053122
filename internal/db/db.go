// Package db is the SQLite storage layer: raw listing and auction data
// collected from the feeds, registration statistics, and the persisted
// analysis results.
package db

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	sql *sql.DB
	log zerolog.Logger
}

// Open opens (or creates) the SQLite database at path and runs migrations.
// Use ":memory:" for an ephemeral database in tests.
func Open(path string, log zerolog.Logger) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would otherwise get its own empty
		// in-memory database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB, log: log.With().Str("component", "db").Logger()}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	d.log.Info().Str("path", path).Msg("database opened")
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	version := 0
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS source_auctions (
				id              INTEGER PRIMARY KEY AUTOINCREMENT,
				make            TEXT NOT NULL,
				model           TEXT NOT NULL,
				year            INTEGER NOT NULL,
				fuel_type       TEXT NOT NULL,
				hammer_price    REAL NOT NULL,
				mileage         REAL,
				condition_grade REAL,
				category        TEXT NOT NULL DEFAULT 'Car',
				venue           TEXT NOT NULL DEFAULT '',
				auctioned_at    TEXT NOT NULL,
				created_at      TEXT NOT NULL DEFAULT (datetime('now'))
			);
			CREATE INDEX IF NOT EXISTS idx_source_key
				ON source_auctions (make, model, year, fuel_type);

			CREATE TABLE IF NOT EXISTS destination_listings (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				make        TEXT NOT NULL,
				model       TEXT NOT NULL,
				year        INTEGER NOT NULL,
				fuel_type   TEXT NOT NULL,
				price       REAL NOT NULL,
				mileage     REAL,
				days_listed REAL,
				site        TEXT NOT NULL DEFAULT '',
				listed_at   TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);
			CREATE INDEX IF NOT EXISTS idx_destination_key
				ON destination_listings (make, model, year, fuel_type);

			CREATE TABLE IF NOT EXISTS registrations (
				id                 INTEGER PRIMARY KEY AUTOINCREMENT,
				make               TEXT NOT NULL,
				model              TEXT NOT NULL,
				year               INTEGER,
				month              INTEGER NOT NULL,
				registration_count INTEGER NOT NULL,
				region             TEXT NOT NULL DEFAULT '',
				created_at         TEXT NOT NULL DEFAULT (datetime('now'))
			);
			CREATE INDEX IF NOT EXISTS idx_registrations_model
				ON registrations (make, model);

			CREATE TABLE IF NOT EXISTS opportunities (
				id                         INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id                     TEXT NOT NULL,
				make                       TEXT NOT NULL,
				model                      TEXT NOT NULL,
				year                       INTEGER NOT NULL,
				fuel_type                  TEXT NOT NULL,
				mean_selling_price         REAL NOT NULL,
				mean_landed_cost           REAL NOT NULL,
				gross_profit               REAL NOT NULL,
				profit_margin_percent      REAL NOT NULL,
				roi_percent                REAL NOT NULL,
				days_to_sell               REAL NOT NULL,
				risk_score                 REAL NOT NULL,
				demand_score               REAL NOT NULL,
				overall_score              REAL NOT NULL,
				ml_score                   REAL NOT NULL,
				final_recommendation_score REAL NOT NULL,
				recommendation_category    TEXT NOT NULL,
				priority                   TEXT NOT NULL,
				confidence_level           TEXT NOT NULL,
				analysis_json              TEXT NOT NULL,
				generated_at               TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_opportunities_score
				ON opportunities (final_recommendation_score DESC);

			INSERT OR REPLACE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return err
		}
	}
	return nil
}
