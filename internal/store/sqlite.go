package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BTreeMap/SivetachiBot/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore archives chat events and deduplicates inbound messages in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully", "dir", dir)

	return &SQLiteStore{db: db}, nil
}

// ArchiveChatEvent stores e, ignoring an event id that was already archived.
func (s *SQLiteStore) ArchiveChatEvent(e models.ChatEvent) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO chat_events (id, direction, phone, text, timestamp) VALUES (?, ?, ?, ?, ?)`,
		e.ID, string(e.Direction), e.Phone, e.Text, e.Timestamp.UTC(),
	)
	if err != nil {
		slog.Error("SQLiteStore ArchiveChatEvent failed", "error", err, "id", e.ID)
		return fmt.Errorf("failed to archive chat event %s: %w", e.ID, err)
	}
	return nil
}

// ListChatEvents returns the latest limit events, oldest first.
func (s *SQLiteStore) ListChatEvents(limit int) ([]models.ChatEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, direction, phone, text, timestamp FROM chat_events ORDER BY seq DESC LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		slog.Error("SQLiteStore ListChatEvents query failed", "error", err)
		return nil, fmt.Errorf("failed to query chat events: %w", err)
	}
	defer rows.Close()

	events, err := scanChatEvents(rows)
	if err != nil {
		return nil, err
	}
	reverse(events)
	slog.Debug("SQLiteStore ListChatEvents succeeded", "count", len(events))
	return events, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
