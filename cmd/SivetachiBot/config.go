package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/SivetachiBot/internal/store"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Messaging providers selectable with MESSAGING_PROVIDER.
const (
	ProviderCloud     = "cloud"
	ProviderTwilio    = "twilio"
	ProviderWhatsmeow = "whatsmeow"
)

// requiredCloudEnv lists the variables the Cloud API transport needs to send and verify.
var requiredCloudEnv = []string{"WA_TOKEN", "VERIFY_TOKEN", "PHONE_NUMBER_ID"}

// Config holds all runtime configuration, read from the environment and an optional .env file.
type Config struct {
	// Transport and webhook
	WAToken         string `env:"WA_TOKEN"`
	VerifyToken     string `env:"VERIFY_TOKEN"`
	PhoneNumberID   string `env:"PHONE_NUMBER_ID"`
	GraphAPIVersion string `env:"GRAPH_API_VERSION" envDefault:"v18.0"`
	Port            string `env:"PORT" envDefault:"3000"`
	APIAddr         string `env:"API_ADDR"`
	Provider        string `env:"MESSAGING_PROVIDER" envDefault:"cloud"`

	// Twilio
	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	TwilioFrom       string `env:"TWILIO_FROM_NUMBER"`

	// Storage
	WhatsAppDBDSN string `env:"WHATSAPP_DB_DSN"`
	DatabaseURL   string `env:"DATABASE_URL"`
	StateDir      string `env:"STATE_DIR" envDefault:"/var/lib/sivetachibot"`

	// AI fallback
	AIEnabled    bool     `env:"AI_ENABLED" envDefault:"false"`
	AIProvider   string   `env:"AI_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey string   `env:"OPENAI_API_KEY"`
	AIModels     []string `env:"AI_MODELS" envSeparator:","`
	AIDebug      bool     `env:"AI_DEBUG" envDefault:"false"`

	// Business
	PaymentInstructions  string `env:"PAYMENT_INSTRUCTIONS"`
	BusinessTimezone     string `env:"BUSINESS_TIMEZONE" envDefault:"America/Caracas"`
	BusinessHoursEnabled bool   `env:"BUSINESS_HOURS_ENABLED" envDefault:"true"`
	CatalogPath          string `env:"CATALOG_PATH"`

	// Runtime
	DashboardDir        string        `env:"DASHBOARD_DIR" envDefault:"public"`
	ConversationIdleTTL time.Duration `env:"CONVERSATION_IDLE_TTL" envDefault:"0s"`
	HistoryLimit        int           `env:"HISTORY_LIMIT" envDefault:"200"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"debug"`

	// whatsmeow login, flag only
	QRPath      string
	NumericCode bool
}

// loadEnvironmentConfig loads .env files and parses the environment into a Config.
// A missing .env file is not an error.
func loadEnvironmentConfig(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		slog.Debug("No .env file loaded, relying on process environment", "error", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	return cfg, nil
}

// parseCommandLineFlags overrides cfg with command line flags. Defaults come from cfg,
// so an unset flag keeps the environment value.
func parseCommandLineFlags(fs *flag.FlagSet, cfg *Config, args []string) error {
	fs.StringVar(&cfg.Provider, "provider", cfg.Provider, "messaging provider: cloud, twilio or whatsmeow (overrides $MESSAGING_PROVIDER)")
	fs.StringVar(&cfg.APIAddr, "api-addr", cfg.APIAddr, "API server address (overrides $API_ADDR and $PORT)")
	fs.StringVar(&cfg.DatabaseURL, "db-dsn", cfg.DatabaseURL, "chat archive database DSN (overrides $DATABASE_URL)")
	fs.StringVar(&cfg.WhatsAppDBDSN, "whatsapp-db-dsn", cfg.WhatsAppDBDSN, "whatsmeow session database DSN (overrides $WHATSAPP_DB_DSN)")
	fs.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "state directory for the lock file and debug records (overrides $STATE_DIR)")
	fs.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "catalog YAML file (overrides $CATALOG_PATH)")
	fs.StringVar(&cfg.DashboardDir, "dashboard-dir", cfg.DashboardDir, "directory with the dashboard assets (overrides $DASHBOARD_DIR)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error (overrides $LOG_LEVEL)")
	fs.StringVar(&cfg.QRPath, "qr-output", cfg.QRPath, "path to write the whatsmeow login QR code")
	fs.BoolVar(&cfg.NumericCode, "numeric-code", cfg.NumericCode, "use a numeric whatsmeow login code instead of a QR code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	return nil
}

// validate rejects configurations the bot cannot start with.
func (c Config) validate() error {
	switch c.Provider {
	case ProviderCloud, ProviderTwilio, ProviderWhatsmeow:
	default:
		return fmt.Errorf("unknown messaging provider %q", c.Provider)
	}
	if c.HistoryLimit < 0 {
		return errors.New("HISTORY_LIMIT must not be negative")
	}
	if c.ConversationIdleTTL < 0 {
		return errors.New("CONVERSATION_IDLE_TTL must not be negative")
	}
	return nil
}

// missingRequired returns the names of unset Cloud API variables.
func (c Config) missingRequired() []string {
	values := map[string]string{
		"WA_TOKEN":        c.WAToken,
		"VERIFY_TOKEN":    c.VerifyToken,
		"PHONE_NUMBER_ID": c.PhoneNumberID,
	}
	var missing []string
	for _, name := range requiredCloudEnv {
		if strings.TrimSpace(values[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// listenAddr returns API_ADDR when set, otherwise ":" + PORT.
func (c Config) listenAddr() string {
	if c.APIAddr != "" {
		return c.APIAddr
	}
	return ":" + strings.TrimPrefix(c.Port, ":")
}

// needsLock reports whether the process owns files that a second instance would corrupt.
func (c Config) needsLock() bool {
	if c.Provider == ProviderWhatsmeow {
		return true
	}
	return c.DatabaseURL != "" && store.DetectDSNType(c.DatabaseURL) == store.DriverSQLite
}

// parseLogLevel maps LOG_LEVEL to a slog level, falling back to debug.
func parseLogLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelDebug
	}
	return level
}
