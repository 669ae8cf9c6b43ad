package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BTreeMap/SivetachiBot/internal/cloudapi"
	"github.com/BTreeMap/SivetachiBot/internal/models"
	"github.com/BTreeMap/SivetachiBot/internal/twiliowhatsapp"
)

// MaxWebhookBodyBytes bounds the size of webhook and control request bodies.
const MaxWebhookBodyBytes = 1 << 20

// webhookHandler serves both the verification handshake (GET) and message delivery (POST).
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.verifyWebhook(w, r)
	case http.MethodPost:
		s.receiveWebhook(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) verifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	if mode == "" || s.opts.VerifyToken == "" || token != s.opts.VerifyToken {
		slog.Warn("Server.verifyWebhook: verification rejected", "mode", mode, "token_set", token != "")
		writeText(w, http.StatusForbidden, "Forbidden")
		return
	}
	slog.Info("Server.verifyWebhook: webhook verified", "mode", mode)
	writeText(w, http.StatusOK, q.Get("hub.challenge"))
}

// receiveWebhook processes one Cloud API delivery. Payloads without a supported
// message are acknowledged; processing failures and panics answer 500.
func (s *Server) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Server.receiveWebhook: recovered from panic", "panic", rec)
			writeText(w, http.StatusInternalServerError, "Error")
		}
	}()

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxWebhookBodyBytes))
	if err != nil {
		slog.Error("Server.receiveWebhook: failed to read body", "error", err)
		writeText(w, http.StatusInternalServerError, "Error")
		return
	}
	var payload cloudapi.WebhookPayload
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			slog.Error("Server.receiveWebhook: invalid JSON payload", "error", err)
			writeText(w, http.StatusInternalServerError, "Error")
			return
		}
	}

	raw, ok := cloudapi.FirstMessage(payload)
	if !ok {
		slog.Debug("Server.receiveWebhook: no message in payload")
		writeText(w, http.StatusOK, "OK")
		return
	}
	msg, ok := cloudapi.ToInbound(raw)
	if !ok {
		slog.Debug("Server.receiveWebhook: unsupported message ignored", "type", raw.Type)
		writeText(w, http.StatusOK, "OK")
		return
	}

	if err := s.respHandler.ProcessResponse(r.Context(), msg); err != nil {
		slog.Error("Server.receiveWebhook: processing failed", "error", err, "from", msg.From)
		writeText(w, http.StatusInternalServerError, "Error")
		return
	}
	writeText(w, http.StatusOK, "OK")
}

// twilioWebhookHandler processes a Twilio incoming-message form post. The reply is
// sent through the REST API, so the TwiML answer is empty.
func (s *Server) twilioWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Server.twilioWebhookHandler: recovered from panic", "panic", rec)
			writeText(w, http.StatusInternalServerError, "Error")
		}
	}()

	r.Body = http.MaxBytesReader(w, r.Body, MaxWebhookBodyBytes)
	if err := r.ParseForm(); err != nil {
		slog.Warn("Server.twilioWebhookHandler: failed to parse form", "error", err)
		writeText(w, http.StatusBadRequest, "Bad request")
		return
	}
	if msg, ok := twiliowhatsapp.ParseInbound(r.PostForm); ok {
		if err := s.respHandler.ProcessResponse(r.Context(), msg); err != nil {
			slog.Error("Server.twilioWebhookHandler: processing failed", "error", err, "from", msg.From)
			writeText(w, http.StatusInternalServerError, "Error")
			return
		}
	} else {
		slog.Debug("Server.twilioWebhookHandler: form without sender or body ignored")
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "<Response></Response>")
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	history := s.respHandler.History()
	slog.Debug("Server.historyHandler: returning history", "count", len(history))
	writeJSONResponse(w, http.StatusOK, historyResponse{History: history, IsBotEnabled: s.respHandler.Enabled()})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSONResponse(w, http.StatusOK, statusResponse{IsBotEnabled: s.respHandler.Enabled()})
}

// panicHandler toggles automatic replies. The body must be {"enabled": true|false}.
func (s *Server) panicHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	enabled, ok := decodeEnabled(io.LimitReader(r.Body, MaxWebhookBodyBytes))
	if !ok {
		slog.Warn("Server.panicHandler: rejected toggle payload")
		writeJSONResponse(w, http.StatusBadRequest, panicResponse{OK: false, Error: "enabled must be boolean"})
		return
	}
	s.respHandler.SetEnabled(enabled)
	writeJSONResponse(w, http.StatusOK, panicResponse{OK: true, IsBotEnabled: &enabled})
}

// decodeEnabled reads the "enabled" field, accepting only a JSON boolean.
func decodeEnabled(body io.Reader) (enabled bool, ok bool) {
	var payload map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return false, false
	}
	switch string(bytes.TrimSpace(payload["enabled"])) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

func (s *Server) archiveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if s.opts.Archive == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Chat archive not configured"))
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("limit must be a positive integer"))
			return
		}
		limit = n
	}
	events, err := s.opts.Archive.ListChatEvents(limit)
	if err != nil {
		slog.Error("Server.archiveHandler: failed to list chat events", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to read chat archive"))
		return
	}
	if events == nil {
		events = []models.ChatEvent{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(events))
}

// healthHandler provides a health check endpoint for monitoring and load balancing
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"bot_enabled":   s.respHandler.Enabled(),
		"conversations": s.respHandler.Conversations(),
	})
}

func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(s.opts.DashboardDir, "dashboard", "index.html"))
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}
