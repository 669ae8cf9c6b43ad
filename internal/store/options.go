package store

import "strings"

// Database drivers understood by DetectDSNType.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Opts holds configuration options for the persistent stores.
type Opts struct {
	DSN string
}

// Option defines a configuration option for the persistent stores.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path or DSN.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

var libpqKeys = []string{"host=", "user=", "dbname=", "password=", "port=", "sslmode="}

// DetectDSNType returns DriverPostgres for PostgreSQL URLs and libpq key/value
// strings, and DriverSQLite for anything else.
func DetectDSNType(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DriverPostgres
	}
	for _, field := range strings.Fields(lower) {
		for _, key := range libpqKeys {
			if strings.HasPrefix(field, key) {
				return DriverPostgres
			}
		}
	}
	return DriverSQLite
}
