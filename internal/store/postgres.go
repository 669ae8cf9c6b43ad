package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/SivetachiBot/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore archives chat events and deduplicates inbound messages in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open(DriverPostgres, dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// ArchiveChatEvent stores e, ignoring an event id that was already archived.
func (s *PostgresStore) ArchiveChatEvent(e models.ChatEvent) error {
	_, err := s.db.Exec(
		`INSERT INTO chat_events (id, direction, phone, text, timestamp) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`,
		e.ID, string(e.Direction), e.Phone, e.Text, e.Timestamp.UTC(),
	)
	if err != nil {
		slog.Error("PostgresStore ArchiveChatEvent failed", "error", err, "id", e.ID)
		return fmt.Errorf("failed to archive chat event %s: %w", e.ID, err)
	}
	return nil
}

// ListChatEvents returns the latest limit events, oldest first.
func (s *PostgresStore) ListChatEvents(limit int) ([]models.ChatEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, direction, phone, text, timestamp FROM chat_events ORDER BY seq DESC LIMIT $1`,
		clampLimit(limit),
	)
	if err != nil {
		slog.Error("PostgresStore ListChatEvents query failed", "error", err)
		return nil, fmt.Errorf("failed to query chat events: %w", err)
	}
	defer rows.Close()

	events, err := scanChatEvents(rows)
	if err != nil {
		return nil, err
	}
	reverse(events)
	return events, nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
