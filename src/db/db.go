package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// DB represents the database connection and operations
type DB struct {
	conn *sql.DB
}

const sessionSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id     TEXT PRIMARY KEY,
	user_id        TEXT,
	type           TEXT NOT NULL,
	status         TEXT NOT NULL,
	start_time     TIMESTAMPTZ NOT NULL,
	end_time       TIMESTAMPTZ,
	user_name      TEXT NOT NULL DEFAULT '',
	user_phone     TEXT NOT NULL DEFAULT '',
	user_email     TEXT NOT NULL DEFAULT '',
	is_anonymous   BOOLEAN NOT NULL DEFAULT TRUE,
	counselor_id   TEXT,
	counselor_name TEXT,
	crisis_level   TEXT NOT NULL DEFAULT 'medium',
	outcome        TEXT NOT NULL DEFAULT 'incomplete',
	notes          TEXT NOT NULL DEFAULT '',
	emergency      BOOLEAN NOT NULL DEFAULT FALSE,
	mock           BOOLEAN NOT NULL DEFAULT FALSE,
	web_call_url   TEXT NOT NULL DEFAULT '',
	provider_ref   TEXT NOT NULL DEFAULT '',
	user_agent     TEXT NOT NULL DEFAULT '',
	ip_address     TEXT NOT NULL DEFAULT '',
	device_type    TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions (status);
CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON sessions (start_time DESC);
`

// NewDB creates a new database connection and ensures the session schema
// exists.
func NewDB(databaseURL string) (*DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Set connection pool settings
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("Connected to PostgreSQL database")

	return &DB{conn: conn}, nil
}

// GetConnection returns the underlying sql.DB connection
func (db *DB) GetConnection() *sql.DB {
	return db.conn
}

// Ping verifies the connection is still alive.
func (db *DB) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func initSchema(conn *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := conn.ExecContext(ctx, sessionSchema); err != nil {
		return fmt.Errorf("failed to execute schema script: %w", err)
	}

	slog.Info("Session schema created/verified")
	return nil
}
