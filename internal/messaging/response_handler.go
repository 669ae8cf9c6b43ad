// Package messaging connects the messaging transports to the dialog engine.
//
// It defines the Service abstraction over the Cloud API, Twilio and whatsmeow transports,
// the list-then-text reply delivery contract, and the ResponseHandler that runs every
// inbound message through deduplication, the audit history, the dialog engine and the
// business-hours gate.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/BTreeMap/SivetachiBot/internal/flow"
	"github.com/BTreeMap/SivetachiBot/internal/models"
	"github.com/BTreeMap/SivetachiBot/internal/store"
	"github.com/rs/xid"
)

// ResponseHandler is the application context shared by the webhook and push transports.
type ResponseHandler struct {
	msgService Service
	engine     *flow.Engine
	gate       *flow.HoursGate
	history    store.HistoryStore
	dedup      store.DedupRepo
	archive    store.ChatArchive
	now        func() time.Time
	enabled    atomic.Bool
}

// HandlerOption configures optional collaborators of a ResponseHandler.
type HandlerOption func(*ResponseHandler)

// WithHoursGate annotates replies sent outside business hours.
func WithHoursGate(g *flow.HoursGate) HandlerOption {
	return func(rh *ResponseHandler) { rh.gate = g }
}

// WithDedup overrides the default in-memory inbound deduplication.
func WithDedup(d store.DedupRepo) HandlerOption {
	return func(rh *ResponseHandler) { rh.dedup = d }
}

// WithArchive stores every chat event durably in addition to the in-memory history.
func WithArchive(a store.ChatArchive) HandlerOption {
	return func(rh *ResponseHandler) { rh.archive = a }
}

// WithHandlerClock overrides the clock used for event timestamps and the hours gate.
func WithHandlerClock(now func() time.Time) HandlerOption {
	return func(rh *ResponseHandler) { rh.now = now }
}

// NewResponseHandler creates a handler. The bot starts enabled.
func NewResponseHandler(msgService Service, engine *flow.Engine, history store.HistoryStore, opts ...HandlerOption) *ResponseHandler {
	rh := &ResponseHandler{
		msgService: msgService,
		engine:     engine,
		history:    history,
		dedup:      store.NewInMemoryDedup(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(rh)
	}
	rh.enabled.Store(true)
	return rh
}

// Enabled reports whether the bot answers inbound messages.
func (rh *ResponseHandler) Enabled() bool {
	return rh.enabled.Load()
}

// SetEnabled toggles automatic replies. Inbound messages are still recorded while disabled.
func (rh *ResponseHandler) SetEnabled(enabled bool) {
	rh.enabled.Store(enabled)
	slog.Info("ResponseHandler.SetEnabled: bot toggled", "enabled", enabled)
}

// History returns the recent chat events, oldest first.
func (rh *ResponseHandler) History() []models.ChatEvent {
	return rh.history.List()
}

// Archive returns the durable archive, or nil when none is configured.
func (rh *ResponseHandler) Archive() store.ChatArchive {
	return rh.archive
}

// Conversations returns the number of conversations with live state.
func (rh *ResponseHandler) Conversations() int {
	return rh.engine.States().Len()
}

// Service returns the transport used for replies.
func (rh *ResponseHandler) Service() Service {
	return rh.msgService
}

// ProcessResponse handles one inbound message end to end. Malformed and duplicate
// messages are acknowledged without a reply. A returned error means the reply could
// not be produced or delivered; the state changes of the turn are kept regardless.
func (rh *ResponseHandler) ProcessResponse(ctx context.Context, msg models.InboundMessage) error {
	if err := msg.Validate(); err != nil {
		slog.Debug("ResponseHandler.ProcessResponse: ignoring malformed message", "error", err)
		return nil
	}

	if msg.ID != "" && rh.dedup != nil {
		fresh, err := rh.dedup.RecordInbound(msg.ID, msg.From)
		if err != nil {
			slog.Warn("ResponseHandler.ProcessResponse: dedup check failed, processing anyway", "error", err, "id", msg.ID)
		} else if !fresh {
			slog.Info("ResponseHandler.ProcessResponse: duplicate message skipped", "id", msg.ID, "from", msg.From)
			return nil
		}
	}

	rh.record(models.DirectionIn, msg.From, msg.AuditText())

	if !rh.Enabled() {
		slog.Debug("ResponseHandler.ProcessResponse: bot disabled, not replying", "from", msg.From)
		return nil
	}

	reply, err := rh.engine.Process(ctx, msg)
	if err != nil {
		return fmt.Errorf("dialog engine failed for %s: %w", msg.From, err)
	}
	if rh.gate != nil {
		reply = rh.gate.Annotate(reply, rh.now())
	}
	if reply.IsEmpty() {
		return nil
	}

	usedFallback, err := SendReply(ctx, rh.msgService, msg.From, reply)
	if err != nil {
		slog.Error("ResponseHandler.ProcessResponse: reply delivery failed", "error", err, "from", msg.From)
		return fmt.Errorf("failed to send reply to %s: %w", msg.From, err)
	}
	rh.record(models.DirectionOut, msg.From, reply.Text)

	if msg.ID != "" && rh.dedup != nil {
		if err := rh.dedup.MarkProcessed(msg.ID); err != nil {
			slog.Warn("ResponseHandler.ProcessResponse: mark processed failed", "error", err, "id", msg.ID)
		}
	}
	slog.Info("ResponseHandler.ProcessResponse: replied", "to", msg.From, "list_fallback", usedFallback)
	return nil
}

func (rh *ResponseHandler) record(direction models.Direction, phone, text string) {
	evt := models.ChatEvent{
		ID:        xid.New().String(),
		Direction: direction,
		Phone:     phone,
		Text:      text,
		Timestamp: rh.now(),
	}
	rh.history.Append(evt)
	if rh.archive != nil {
		if err := rh.archive.ArchiveChatEvent(evt); err != nil {
			slog.Warn("ResponseHandler.record: archive failed", "error", err, "id", evt.ID)
		}
	}
}

// Start drains the service's inbound channel until ctx is done or the channel closes.
func (rh *ResponseHandler) Start(ctx context.Context) {
	responses := rh.msgService.Responses()
	for {
		select {
		case <-ctx.Done():
			slog.Debug("ResponseHandler.Start: context cancelled")
			return
		case msg, ok := <-responses:
			if !ok {
				slog.Debug("ResponseHandler.Start: responses channel closed")
				return
			}
			if err := rh.ProcessResponse(ctx, msg); err != nil {
				slog.Error("ResponseHandler.Start: processing failed", "error", err, "from", msg.From)
			}
		}
	}
}

// Reset clears the history and every conversation and re-enables the bot.
func (rh *ResponseHandler) Reset() {
	rh.history.Reset()
	rh.engine.States().Reset()
	rh.enabled.Store(true)
}
