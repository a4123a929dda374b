package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

const (
	DriverPgx    = "pgx"
	DriverPq     = "postgres"
	DriverSQLite = "sqlite"
)

// Open connects and pings. SQLite gets a single connection with foreign
// keys enforced, since its pragmas are per connection.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	if driver == DriverSQLite && !strings.Contains(dsn, "_pragma=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

func isSQLite(db *sqlx.DB) bool {
	return strings.HasPrefix(db.DriverName(), "sqlite")
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS habits (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		name        TEXT NOT NULL,
		icon        TEXT NOT NULL DEFAULT '',
		color       TEXT NOT NULL DEFAULT '',
		schedule    TEXT NOT NULL,
		start_date  DATE NOT NULL,
		archived_at TIMESTAMPTZ,
		sort_order  INTEGER NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_habits_user ON habits (user_id, sort_order)`,
	`CREATE TABLE IF NOT EXISTS habit_logs (
		id         TEXT PRIMARY KEY,
		habit_id   TEXT NOT NULL REFERENCES habits (id) ON DELETE CASCADE,
		user_id    TEXT NOT NULL,
		log_date   DATE NOT NULL,
		status     TEXT NOT NULL CHECK (status IN ('completed', 'skipped')),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (habit_id, log_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_habit_logs_user_date ON habit_logs (user_id, log_date)`,
	`CREATE TABLE IF NOT EXISTS viewports (
		user_id     TEXT PRIMARY KEY,
		last_opened DATE,
		offset_x    DOUBLE PRECISION,
		offset_y    DOUBLE PRECISION,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS habits (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		name        TEXT NOT NULL,
		icon        TEXT NOT NULL DEFAULT '',
		color       TEXT NOT NULL DEFAULT '',
		schedule    TEXT NOT NULL,
		start_date  TEXT NOT NULL,
		archived_at DATETIME,
		sort_order  INTEGER NOT NULL DEFAULT 0,
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_habits_user ON habits (user_id, sort_order)`,
	`CREATE TABLE IF NOT EXISTS habit_logs (
		id         TEXT PRIMARY KEY,
		habit_id   TEXT NOT NULL REFERENCES habits (id) ON DELETE CASCADE,
		user_id    TEXT NOT NULL,
		log_date   TEXT NOT NULL,
		status     TEXT NOT NULL CHECK (status IN ('completed', 'skipped')),
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (habit_id, log_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_habit_logs_user_date ON habit_logs (user_id, log_date)`,
	`CREATE TABLE IF NOT EXISTS viewports (
		user_id     TEXT PRIMARY KEY,
		last_opened TEXT,
		offset_x    REAL,
		offset_y    REAL,
		updated_at  DATETIME NOT NULL
	)`,
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	stmts := postgresSchema
	if isSQLite(db) {
		stmts = sqliteSchema
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
