package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/BTreeMap/SivetachiBot/internal/cloudapi"
	"github.com/BTreeMap/SivetachiBot/internal/models"
	"github.com/BTreeMap/SivetachiBot/internal/twiliowhatsapp"
)

func listReply() models.Reply {
	return models.Reply{
		Text: "Menu principal:\n1) Hamburguesas",
		List: &models.ListMessage{
			Body:   "Menu principal",
			Button: "Ver opciones",
			Sections: []models.ListSection{{
				Title: "Categorias",
				Rows:  []models.ListRow{{ID: "1", Title: "Hamburguesas"}},
			}},
		},
	}
}

func TestSendReply(t *testing.T) {
	tests := []struct {
		name         string
		reply        models.Reply
		listErr      error
		textErr      error
		wantFallback bool
		wantErr      bool
		wantLists    int
		wantTexts    int
	}{
		{name: "plain text", reply: models.Reply{Text: "hola"}, wantTexts: 1},
		{name: "list sent", reply: listReply(), wantLists: 1},
		{name: "list fails then text", reply: listReply(), listErr: errors.New("400"), wantFallback: true, wantTexts: 1},
		{name: "both fail", reply: listReply(), listErr: errors.New("400"), textErr: errors.New("500"), wantFallback: true, wantErr: true},
		{name: "text fails", reply: models.Reply{Text: "hola"}, textErr: errors.New("500"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := cloudapi.NewMockClient()
			mock.ListErr = tt.listErr
			mock.TextErr = tt.textErr
			svc := NewCloudService(mock)

			usedFallback, err := SendReply(context.Background(), svc, "584141234567", tt.reply)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SendReply error = %v, wantErr %v", err, tt.wantErr)
			}
			if usedFallback != tt.wantFallback {
				t.Errorf("usedFallback = %v, want %v", usedFallback, tt.wantFallback)
			}
			if len(mock.SentLists) != tt.wantLists {
				t.Errorf("lists sent = %d, want %d", len(mock.SentLists), tt.wantLists)
			}
			if len(mock.SentTexts) != tt.wantTexts {
				t.Errorf("texts sent = %d, want %d", len(mock.SentTexts), tt.wantTexts)
			}
		})
	}
}

func TestSendReplyWithoutListSupport(t *testing.T) {
	mock := twiliowhatsapp.NewMockClient()
	svc := NewTwilioService(mock)

	usedFallback, err := SendReply(context.Background(), svc, "+58 414-1234567", listReply())
	if err != nil {
		t.Fatalf("SendReply error: %v", err)
	}
	if !usedFallback {
		t.Error("expected text fallback for a transport without list support")
	}
	if len(mock.SentMessages) != 1 || mock.SentMessages[0].Body != listReply().Text {
		t.Fatalf("expected the plain text once, got %+v", mock.SentMessages)
	}
	if mock.SentMessages[0].To != "584141234567" {
		t.Errorf("expected canonical recipient, got %s", mock.SentMessages[0].To)
	}
}

func TestSendList_Unsupported(t *testing.T) {
	err := sendList(context.Background(), NewTwilioService(twiliowhatsapp.NewMockClient()), "584141234567", *listReply().List)
	if !errors.Is(err, ErrRichUnsupported) {
		t.Errorf("expected ErrRichUnsupported, got %v", err)
	}
}
