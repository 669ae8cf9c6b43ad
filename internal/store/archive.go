package store

import (
	"fmt"
	"log/slog"

	"github.com/BTreeMap/SivetachiBot/internal/models"
)

// DefaultArchivePageSize is used when ListChatEvents gets a non-positive limit.
const DefaultArchivePageSize = 200

// ChatArchive keeps every chat event durably, beyond the in-memory history.
type ChatArchive interface {
	// ArchiveChatEvent stores e. Storing the same event id twice is a no-op.
	ArchiveChatEvent(e models.ChatEvent) error
	// ListChatEvents returns the latest limit events, oldest first.
	ListChatEvents(limit int) ([]models.ChatEvent, error)
}

// Persistence is a database backend providing both the archive and deduplication.
type Persistence interface {
	ChatArchive
	DedupRepo
	Close() error
}

// Compile-time checks that both backends implement Persistence.
var (
	_ Persistence = (*SQLiteStore)(nil)
	_ Persistence = (*PostgresStore)(nil)
)

// Open connects to the database named by dsn, choosing the driver with DetectDSNType.
func Open(dsn string) (Persistence, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN not set")
	}
	switch DetectDSNType(dsn) {
	case DriverPostgres:
		slog.Debug("Store.Open: using PostgreSQL backend")
		return NewPostgresStore(WithPostgresDSN(dsn))
	default:
		slog.Debug("Store.Open: using SQLite backend")
		return NewSQLiteStore(WithSQLiteDSN(dsn))
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultArchivePageSize
	}
	return limit
}

// reverse turns newest-first query results into chronological order.
func reverse(events []models.ChatEvent) {
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
}
