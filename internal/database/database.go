package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"travelbook/internal/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DB wraps sqlx with the dialect it was opened with. Queries are written with
// "?" placeholders and passed through Rebind.
type DB struct {
	*sqlx.DB
	driver string
	path   string
	logger *zerolog.Logger
}

// Open connects using the driver selected in config.
func Open(cfg config.DatabaseConfig, logger *zerolog.Logger) (*DB, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return NewPostgres(cfg.Postgres, logger)
	default:
		return NewDB(cfg.Path, logger)
	}
}

// NewDB opens (and bootstraps) a sqlite database file.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		// Создаем директорию для БД, если её нет
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path
	if path != ":memory:" {
		dsn = path + "?_foreign_keys=on&_busy_timeout=5000"
	}
	conn, err := sqlx.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	conn.SetMaxOpenConns(1)

	db := &DB{DB: conn, driver: DriverSQLite, path: path, logger: logger}
	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info().Str("driver", DriverSQLite).Str("path", path).Msg("Database initialized")
	return db, nil
}

func NewPostgres(cfg config.PostgresConfig, logger *zerolog.Logger) (*DB, error) {
	conn, err := sqlx.Open(DriverPostgres, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxConnections > 0 {
		conn.SetMaxOpenConns(cfg.MaxConnections)
		conn.SetMaxIdleConns(cfg.MaxConnections / 2)
	}
	conn.SetConnMaxLifetime(30 * time.Minute)

	db := &DB{DB: conn, driver: DriverPostgres, logger: logger}
	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info().Str("driver", DriverPostgres).Str("host", cfg.Host).Str("dbname", cfg.DBName).Msg("Database initialized")
	return db, nil
}

func (db *DB) init() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.createTables(ctx); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Driver reports the dialect the database was opened with.
func (db *DB) Driver() string { return db.driver }

// Path is the sqlite file path, empty for postgres.
func (db *DB) Path() string { return db.path }

func (db *DB) createTables(ctx context.Context) error {
	ts, money, serial := "TIMESTAMP", "TEXT", "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.driver == DriverPostgres {
		ts, money, serial = "TIMESTAMPTZ", "NUMERIC(12,2)", "BIGSERIAL PRIMARY KEY"
	}
	r := strings.NewReplacer("{ts}", ts, "{money}", money, "{serial}", serial)

	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            username TEXT NOT NULL UNIQUE,
            name TEXT NOT NULL DEFAULT '',
            email TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            gender TEXT NOT NULL DEFAULT '',
            phone TEXT NOT NULL DEFAULT '',
            role TEXT NOT NULL DEFAULT 'user',
            photo TEXT NOT NULL DEFAULT '',
            created_at {ts} NOT NULL,
            updated_at {ts} NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS places (
            id TEXT PRIMARY KEY,
            origin TEXT NOT NULL,
            destination TEXT NOT NULL,
            price {money} NOT NULL,
            details TEXT NOT NULL DEFAULT '',
            category TEXT NOT NULL,
            bus_type TEXT NOT NULL,
            days TEXT NOT NULL,
            photo TEXT NOT NULL DEFAULT '',
            created_by TEXT NOT NULL DEFAULT '',
            created_at {ts} NOT NULL,
            updated_at {ts} NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id TEXT PRIMARY KEY,
            username TEXT NOT NULL,
            place_id TEXT NOT NULL,
            origin TEXT NOT NULL,
            destination TEXT NOT NULL,
            adults INTEGER NOT NULL,
            children INTEGER NOT NULL DEFAULT 0,
            depart_date TEXT NOT NULL DEFAULT '',
            arrival_date TEXT NOT NULL DEFAULT '',
            amount {money} NOT NULL,
            status TEXT NOT NULL DEFAULT 'confirmed',
            created_at {ts} NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS payments (
            id TEXT PRIMARY KEY,
            booking_id TEXT NOT NULL UNIQUE REFERENCES bookings(id) ON DELETE CASCADE,
            username TEXT NOT NULL,
            card_holder TEXT NOT NULL,
            card_last4 TEXT NOT NULL,
            card_brand TEXT NOT NULL DEFAULT '',
            exp_month INTEGER NOT NULL,
            exp_year INTEGER NOT NULL,
            amount {money} NOT NULL,
            created_at {ts} NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS feedback (
            id TEXT PRIMARY KEY,
            username TEXT NOT NULL,
            message TEXT NOT NULL,
            created_at {ts} NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
            id {serial},
            task_type TEXT NOT NULL,
            booking_id TEXT NOT NULL,
            payload TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at {ts} NOT NULL,
            processed_at {ts},
            next_retry_at {ts}
        )`,

		`CREATE INDEX IF NOT EXISTS idx_places_category ON places(category)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_username ON bookings(username)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_created_at ON bookings(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_username ON payments(username)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_username ON feedback(username)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status, next_retry_at)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, r.Replace(query)); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}
