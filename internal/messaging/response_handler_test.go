package messaging

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/SivetachiBot/internal/catalog"
	"github.com/BTreeMap/SivetachiBot/internal/cloudapi"
	"github.com/BTreeMap/SivetachiBot/internal/flow"
	"github.com/BTreeMap/SivetachiBot/internal/models"
	"github.com/BTreeMap/SivetachiBot/internal/store"
	"github.com/BTreeMap/SivetachiBot/internal/whatsapp"
)

const testPhone = "584141234567"

var caracas = time.FixedZone("VET", -4*60*60)

// openTime is a Monday at 13:00 in Caracas, inside business hours.
var openTime = time.Date(2024, 1, 1, 13, 0, 0, 0, caracas)

type recordingArchive struct {
	events []models.ChatEvent
}

func (a *recordingArchive) ArchiveChatEvent(e models.ChatEvent) error {
	a.events = append(a.events, e)
	return nil
}

func (a *recordingArchive) ListChatEvents(limit int) ([]models.ChatEvent, error) {
	return a.events, nil
}

func newTestHandler(t *testing.T, now time.Time, opts ...HandlerOption) (*ResponseHandler, *cloudapi.MockClient) {
	t.Helper()
	cat := catalog.MustDefault()
	engine := flow.NewEngine(cat, flow.NewStateStore(), flow.WithSelector(flow.NewSelector(rand.New(rand.NewPCG(7, 7)))))
	gate, err := flow.NewHoursGate(cat.Business.Schedule, caracas)
	if err != nil {
		t.Fatalf("NewHoursGate: %v", err)
	}
	mock := cloudapi.NewMockClient()
	base := []HandlerOption{WithHoursGate(gate), WithHandlerClock(func() time.Time { return now })}
	rh := NewResponseHandler(NewCloudService(mock), engine, store.NewInMemoryStore(0), append(base, opts...)...)
	return rh, mock
}

func inbound(id, text string) models.InboundMessage {
	return models.InboundMessage{ID: id, From: testPhone, Kind: models.MessageKindText, Text: text}
}

func TestProcessResponse_GreetsWithList(t *testing.T) {
	rh, mock := newTestHandler(t, openTime)
	if err := rh.ProcessResponse(context.Background(), inbound("wamid.1", "hola")); err != nil {
		t.Fatalf("ProcessResponse: %v", err)
	}
	if len(mock.SentLists) != 1 {
		t.Fatalf("expected the main menu list, got %d lists", len(mock.SentLists))
	}
	history := rh.History()
	if len(history) != 2 {
		t.Fatalf("expected inbound and outbound events, got %d", len(history))
	}
	if history[0].Direction != models.DirectionIn || history[0].Text != "hola" {
		t.Errorf("unexpected inbound event: %+v", history[0])
	}
	if history[1].Direction != models.DirectionOut || history[1].Phone != testPhone {
		t.Errorf("unexpected outbound event: %+v", history[1])
	}
	if history[0].ID == "" || history[0].ID == history[1].ID {
		t.Error("events need distinct ids")
	}
}

func TestProcessResponse_Disabled(t *testing.T) {
	rh, mock := newTestHandler(t, openTime)
	rh.SetEnabled(false)
	if err := rh.ProcessResponse(context.Background(), inbound("wamid.1", "hola")); err != nil {
		t.Fatalf("ProcessResponse: %v", err)
	}
	if len(mock.SentLists)+len(mock.SentTexts) != 0 {
		t.Error("disabled bot must not reply")
	}
	history := rh.History()
	if len(history) != 1 || history[0].Direction != models.DirectionIn {
		t.Fatalf("inbound must be recorded while disabled, got %+v", history)
	}
	if rh.engine.States().Len() != 0 {
		t.Error("disabled bot must not touch conversation state")
	}
}

func TestProcessResponse_Duplicate(t *testing.T) {
	rh, mock := newTestHandler(t, openTime)
	ctx := context.Background()
	rh.ProcessResponse(ctx, inbound("wamid.1", "hola"))
	rh.ProcessResponse(ctx, inbound("wamid.1", "hola"))
	if len(mock.SentLists) != 1 {
		t.Errorf("duplicate delivery must not produce a second reply, got %d", len(mock.SentLists))
	}
	if len(rh.History()) != 2 {
		t.Errorf("duplicate delivery must not be recorded, got %d events", len(rh.History()))
	}
}

func TestProcessResponse_Malformed(t *testing.T) {
	rh, mock := newTestHandler(t, openTime)
	err := rh.ProcessResponse(context.Background(), models.InboundMessage{From: testPhone, Text: "   "})
	if err != nil {
		t.Fatalf("malformed message must be acknowledged, got %v", err)
	}
	if len(rh.History()) != 0 || len(mock.SentTexts) != 0 {
		t.Error("malformed message must be ignored")
	}
}

func TestProcessResponse_ClosedNote(t *testing.T) {
	closed := time.Date(2024, 1, 1, 3, 0, 0, 0, caracas)
	rh, mock := newTestHandler(t, closed)
	ctx := context.Background()
	rh.ProcessResponse(ctx, inbound("wamid.1", "hola"))
	rh.ProcessResponse(ctx, inbound("wamid.2", "horario"))

	if len(mock.SentLists) != 1 || !strings.HasPrefix(mock.SentLists[0].List.Body, flow.ClosedNote) {
		t.Errorf("list body must carry the closed note: %+v", mock.SentLists)
	}
	if len(mock.SentTexts) != 1 || !strings.HasPrefix(mock.SentTexts[0].Body, flow.ClosedNote) {
		t.Fatalf("text must carry the closed note: %+v", mock.SentTexts)
	}
	if strings.Count(mock.SentTexts[0].Body, flow.ClosedNote) != 1 {
		t.Error("closed note must appear once")
	}
}

func TestProcessResponse_SendFailure(t *testing.T) {
	rh, mock := newTestHandler(t, openTime)
	mock.ListErr = errors.New("list rejected")
	mock.TextErr = errors.New("text rejected")

	err := rh.ProcessResponse(context.Background(), inbound("wamid.1", "hola"))
	if err == nil {
		t.Fatal("expected an error when both sends fail")
	}
	s, ok := rh.engine.States().Snapshot(testPhone)
	if !ok || !s.Greeted {
		t.Error("state changes must survive a failed send")
	}
	if len(rh.History()) != 1 {
		t.Errorf("only the inbound event should be recorded, got %d", len(rh.History()))
	}
}

func TestProcessResponse_Archive(t *testing.T) {
	archive := &recordingArchive{}
	rh, _ := newTestHandler(t, openTime, WithArchive(archive))
	rh.ProcessResponse(context.Background(), inbound("wamid.1", "hola"))
	if len(archive.events) != 2 {
		t.Fatalf("expected 2 archived events, got %d", len(archive.events))
	}
	if rh.Archive() == nil {
		t.Error("Archive() should return the configured archive")
	}
}

func TestProcessResponse_HistoryBound(t *testing.T) {
	rh, _ := newTestHandler(t, openTime)
	rh.SetEnabled(false)
	for i := 0; i < 250; i++ {
		msg := models.InboundMessage{From: testPhone, Text: "msg"}
		rh.ProcessResponse(context.Background(), msg)
	}
	if len(rh.History()) != store.DefaultHistoryLimit {
		t.Errorf("expected %d events, got %d", store.DefaultHistoryLimit, len(rh.History()))
	}
}

func TestResponseHandler_StartDrainsResponses(t *testing.T) {
	rh, _ := newTestHandler(t, openTime)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewWhatsAppService(whatsapp.NewMockClient())
	rh.msgService = svc
	done := make(chan struct{})
	go func() {
		rh.Start(ctx)
		close(done)
	}()

	svc.emit(models.InboundMessage{From: testPhone, Text: "hola"})
	svc.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after the channel closed")
	}
	if len(rh.History()) == 0 {
		t.Error("expected the emitted message to be processed")
	}
}

func TestResponseHandler_Reset(t *testing.T) {
	rh, _ := newTestHandler(t, openTime)
	rh.ProcessResponse(context.Background(), inbound("wamid.1", "hola"))
	rh.SetEnabled(false)
	rh.Reset()
	if !rh.Enabled() || len(rh.History()) != 0 || rh.engine.States().Len() != 0 {
		t.Error("Reset must restore a fresh handler")
	}
}
