// Package api provides the HTTP server of SivetachiBot.
//
// It exposes the messaging webhooks (WhatsApp Cloud API and Twilio), the operator
// dashboard with its history, status and panic endpoints, and a health check.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/SivetachiBot/internal/messaging"
	"github.com/BTreeMap/SivetachiBot/internal/scheduler"
	"github.com/BTreeMap/SivetachiBot/internal/store"
	"golang.org/x/sync/errgroup"
)

// Server defaults.
const (
	DefaultAddr            = ":3000"
	DefaultDashboardDir    = "public"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr          string
	VerifyToken   string
	DashboardDir  string
	Archive       store.ChatArchive
	Scheduler     *scheduler.Scheduler
	TwilioWebhook bool
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address, e.g. ":3000".
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithVerifyToken sets the token expected by the webhook verification handshake.
func WithVerifyToken(token string) Option {
	return func(o *Opts) { o.VerifyToken = token }
}

// WithDashboardDir sets the directory holding the dashboard static files.
func WithDashboardDir(dir string) Option {
	return func(o *Opts) { o.DashboardDir = dir }
}

// WithArchive exposes the durable chat archive on /api/archive.
func WithArchive(a store.ChatArchive) Option {
	return func(o *Opts) { o.Archive = a }
}

// WithScheduler runs the maintenance scheduler alongside the server.
func WithScheduler(s *scheduler.Scheduler) Option {
	return func(o *Opts) { o.Scheduler = s }
}

// WithTwilioWebhook enables the Twilio form webhook on /twilio/webhook.
func WithTwilioWebhook(enabled bool) Option {
	return func(o *Opts) { o.TwilioWebhook = enabled }
}

// Server wires the HTTP routes to the response handler.
type Server struct {
	respHandler *messaging.ResponseHandler
	opts        Opts
	mux         *http.ServeMux
	httpServer  *http.Server
}

// NewServer creates a Server for respHandler.
func NewServer(respHandler *messaging.ResponseHandler, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr, DashboardDir: DefaultDashboardDir}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Archive == nil {
		cfg.Archive = respHandler.Archive()
	}
	slog.Debug("Server.NewServer: creating server", "addr", cfg.Addr, "verify_token_set", cfg.VerifyToken != "",
		"archive", cfg.Archive != nil, "twilio_webhook", cfg.TwilioWebhook)

	s := &Server{respHandler: respHandler, opts: cfg, mux: http.NewServeMux()}
	s.routes()
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.mux,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/webhook", s.webhookHandler)
	s.mux.HandleFunc("/api/webhook", s.webhookHandler)
	s.mux.HandleFunc("/api/history", s.historyHandler)
	s.mux.HandleFunc("/api/status", s.statusHandler)
	s.mux.HandleFunc("/api/panic", s.panicHandler)
	s.mux.HandleFunc("/api/archive", s.archiveHandler)
	s.mux.HandleFunc("/health", s.healthHandler)
	if s.opts.TwilioWebhook {
		s.mux.HandleFunc("/twilio/webhook", s.twilioWebhookHandler)
	}
	s.mux.HandleFunc("/dashboard", s.dashboardHandler)
	s.mux.Handle("/public/", http.StripPrefix("/public/", http.FileServer(http.Dir(s.opts.DashboardDir))))
	s.mux.HandleFunc("/", s.rootHandler)
}

// Handler returns the HTTP handler with every route registered.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves HTTP and runs the messaging service, the inbound loop and the scheduler
// until ctx is cancelled or one of them fails.
func (s *Server) Run(ctx context.Context) error {
	svc := s.respHandler.Service()
	group, groupCtx := errgroup.WithContext(ctx)

	if err := svc.Start(groupCtx); err != nil {
		return fmt.Errorf("failed to start messaging service: %w", err)
	}
	group.Go(func() error {
		s.respHandler.Start(groupCtx)
		return nil
	})
	if s.opts.Scheduler != nil {
		group.Go(func() error {
			return s.opts.Scheduler.Run(groupCtx)
		})
	}
	group.Go(func() error {
		slog.Info("Server.Run: listening", "addr", s.opts.Addr)
		err := s.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)
		if stopErr := svc.Stop(); stopErr != nil {
			slog.Warn("Server.Run: messaging service stop failed", "error", stopErr)
		}
		slog.Info("Server.Run: shut down")
		return err
	})
	return group.Wait()
}
