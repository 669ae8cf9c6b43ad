package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	_ "time/tzdata"

	"github.com/BTreeMap/SivetachiBot/internal/api"
	"github.com/BTreeMap/SivetachiBot/internal/catalog"
	"github.com/BTreeMap/SivetachiBot/internal/cloudapi"
	"github.com/BTreeMap/SivetachiBot/internal/flow"
	"github.com/BTreeMap/SivetachiBot/internal/genai"
	"github.com/BTreeMap/SivetachiBot/internal/lockfile"
	"github.com/BTreeMap/SivetachiBot/internal/messaging"
	"github.com/BTreeMap/SivetachiBot/internal/scheduler"
	"github.com/BTreeMap/SivetachiBot/internal/store"
	"github.com/BTreeMap/SivetachiBot/internal/twiliowhatsapp"
	"github.com/BTreeMap/SivetachiBot/internal/whatsapp"
)

func main() {
	// Initialize structured logger
	initializeLogger(slog.LevelDebug)

	// Load environment configuration
	cfg, err := loadEnvironmentConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Parse command line flags
	if err := parseCommandLineFlags(flag.CommandLine, &cfg, os.Args[1:]); err != nil {
		slog.Error("Failed to parse flags", "error", err)
		os.Exit(2)
	}
	initializeLogger(parseLogLevel(cfg.LogLevel))

	if err := cfg.validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if missing := cfg.missingRequired(); len(missing) > 0 {
		slog.Warn("Missing environment variables, webhook verification or sending may fail", "missing", missing)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping SivetachiBot", "provider", cfg.Provider, "api_addr", cfg.listenAddr())
	slog.Debug("Final configuration",
		"state_dir", cfg.StateDir,
		"database_url_set", cfg.DatabaseURL != "",
		"whatsapp_db_dsn_set", cfg.WhatsAppDBDSN != "",
		"ai_enabled", cfg.AIEnabled,
		"business_hours_enabled", cfg.BusinessHoursEnabled,
		"timezone", cfg.BusinessTimezone,
		"idle_ttl", cfg.ConversationIdleTTL)

	if err := run(ctx, cfg); err != nil {
		slog.Error("SivetachiBot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("SivetachiBot exited successfully")
}

func initializeLogger(level slog.Level) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// run wires every module from cfg and serves until ctx is cancelled.
func run(ctx context.Context, cfg Config) error {
	if cfg.needsLock() {
		if err := ensureDirectoriesExist(cfg); err != nil {
			return err
		}
		lock, err := lockfile.Acquire(cfg.StateDir)
		if err != nil {
			return fmt.Errorf("another instance holds the state directory: %w", err)
		}
		defer func() {
			if err := lock.Release(); err != nil {
				slog.Warn("Failed to release lock file", "path", lock.Path(), "error", err)
			}
		}()
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}

	svc, err := buildMessagingService(ctx, cfg)
	if err != nil {
		return err
	}

	states := flow.NewStateStore()
	engine := flow.NewEngine(cat, states, buildEngineOptions(cfg)...)
	history := store.NewInMemoryStore(cfg.HistoryLimit)

	var dedup store.DedupRepo = store.NewInMemoryDedup()
	handlerOpts := []messaging.HandlerOption{}
	if cfg.DatabaseURL != "" {
		persistence, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open chat archive: %w", err)
		}
		defer persistence.Close()
		dedup = persistence
		handlerOpts = append(handlerOpts, messaging.WithArchive(persistence))
	}
	handlerOpts = append(handlerOpts, messaging.WithDedup(dedup))

	if cfg.BusinessHoursEnabled {
		gate, err := flow.NewHoursGate(cat.Business.Schedule, flow.LoadLocation(cfg.BusinessTimezone))
		if err != nil {
			return fmt.Errorf("failed to build business hours gate: %w", err)
		}
		handlerOpts = append(handlerOpts, messaging.WithHoursGate(gate))
	}
	respHandler := messaging.NewResponseHandler(svc, engine, history, handlerOpts...)

	sched := scheduler.NewScheduler()
	if err := sched.ScheduleEviction(states, cfg.ConversationIdleTTL); err != nil {
		return err
	}
	if err := sched.ScheduleDedupPurge(dedup); err != nil {
		return err
	}

	server := api.NewServer(respHandler,
		api.WithAddr(cfg.listenAddr()),
		api.WithVerifyToken(cfg.VerifyToken),
		api.WithDashboardDir(cfg.DashboardDir),
		api.WithScheduler(sched),
		api.WithTwilioWebhook(cfg.Provider == ProviderTwilio),
	)
	return server.Run(ctx)
}

// ensureDirectoriesExist creates the state directory used for the lock file and debug records.
func ensureDirectoriesExist(cfg Config) error {
	if cfg.StateDir == "" {
		return errors.New("state directory must not be empty")
	}
	if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", cfg.StateDir, err)
	}
	return nil
}

// buildMessagingService creates the transport selected by cfg.Provider.
func buildMessagingService(ctx context.Context, cfg Config) (messaging.Service, error) {
	switch cfg.Provider {
	case ProviderTwilio:
		client, err := twiliowhatsapp.NewClient(buildTwilioOptions(cfg)...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Twilio client: %w", err)
		}
		return messaging.NewTwilioService(client), nil
	case ProviderWhatsmeow:
		client, err := whatsapp.NewClient(ctx, buildWhatsAppOptions(cfg)...)
		if err != nil {
			return nil, fmt.Errorf("failed to create WhatsApp client: %w", err)
		}
		return messaging.NewWhatsAppService(client), nil
	default:
		client, err := cloudapi.NewClient(buildCloudOptions(cfg)...)
		if errors.Is(err, cloudapi.ErrNotConfigured) {
			slog.Warn("Cloud API credentials missing, outbound replies will fail")
			return messaging.NewCloudService(cloudapi.Unconfigured{}), nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create Cloud API client: %w", err)
		}
		return messaging.NewCloudService(client), nil
	}
}

func buildCloudOptions(cfg Config) []cloudapi.Option {
	return []cloudapi.Option{
		cloudapi.WithToken(cfg.WAToken),
		cloudapi.WithPhoneNumberID(cfg.PhoneNumberID),
		cloudapi.WithAPIVersion(cfg.GraphAPIVersion),
	}
}

func buildTwilioOptions(cfg Config) []twiliowhatsapp.Option {
	return []twiliowhatsapp.Option{
		twiliowhatsapp.WithAccountSID(cfg.TwilioAccountSID),
		twiliowhatsapp.WithAuthToken(cfg.TwilioAuthToken),
		twiliowhatsapp.WithFromWhats(cfg.TwilioFrom),
	}
}

func buildWhatsAppOptions(cfg Config) []whatsapp.Option {
	var opts []whatsapp.Option
	dsn := cfg.WhatsAppDBDSN
	if dsn == "" {
		dsn = filepath.Join(cfg.StateDir, "whatsmeow.db") + "?_foreign_keys=on"
	}
	opts = append(opts, whatsapp.WithDBDSN(dsn))
	if cfg.QRPath != "" {
		opts = append(opts, whatsapp.WithQRCodeOutput(cfg.QRPath))
	}
	if cfg.NumericCode {
		opts = append(opts, whatsapp.WithNumericCode())
	}
	return opts
}

// buildEngineOptions returns the dialog engine options, including the AI assistant
// when AI_ENABLED is set and a usable provider is configured.
func buildEngineOptions(cfg Config) []flow.EngineOption {
	var opts []flow.EngineOption
	if cfg.PaymentInstructions != "" {
		opts = append(opts, flow.WithPaymentInstructions(cfg.PaymentInstructions))
	}
	if !cfg.AIEnabled {
		return opts
	}
	if cfg.AIProvider != "openai" {
		slog.Warn("Unsupported AI provider, AI fallback disabled", "provider", cfg.AIProvider)
		return opts
	}
	client, err := genai.NewClient(buildGenAIOptions(cfg)...)
	if err != nil {
		slog.Warn("GenAI client unavailable, AI fallback disabled", "error", err)
		return opts
	}
	slog.Info("AI fallback enabled", "models", client.Models())
	return append(opts, flow.WithAssistant(client))
}

func buildGenAIOptions(cfg Config) []genai.Option {
	opts := []genai.Option{genai.WithAPIKey(cfg.OpenAIAPIKey)}
	if len(cfg.AIModels) > 0 {
		opts = append(opts, genai.WithModels(cfg.AIModels...))
	}
	if cfg.AIDebug {
		opts = append(opts, genai.WithDebugMode(true), genai.WithStateDir(cfg.StateDir))
	}
	return opts
}
