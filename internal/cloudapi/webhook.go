package cloudapi

import (
	"strconv"
	"strings"

	"github.com/BTreeMap/SivetachiBot/internal/models"
)

// WebhookPayload is the notification body the Cloud API posts to the webhook.
// Only the fields the bot reads are declared.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one business account entry of a notification.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change carries the changed field and its value.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue holds the inbound messages of a change.
type ChangeValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         Metadata         `json:"metadata"`
	Contacts         []Contact        `json:"contacts"`
	Messages         []WebhookMessage `json:"messages"`
}

// Metadata identifies the receiving business number.
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// Contact is the customer profile attached to a notification.
type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// WebhookMessage is one inbound customer message.
type WebhookMessage struct {
	ID          string       `json:"id"`
	From        string       `json:"from"`
	Timestamp   string       `json:"timestamp"`
	Type        string       `json:"type"`
	Text        *TextBody    `json:"text,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
}

// TextBody is the body of a text message.
type TextBody struct {
	Body string `json:"body"`
}

// Interactive is the customer's answer to an interactive message.
type Interactive struct {
	Type      string     `json:"type"`
	ListReply *ListReply `json:"list_reply,omitempty"`
}

// ListReply is the row picked from an interactive list.
type ListReply struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// FirstMessage returns entry[0].changes[0].value.messages[0], if present.
func FirstMessage(p WebhookPayload) (WebhookMessage, bool) {
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 || len(p.Entry[0].Changes[0].Value.Messages) == 0 {
		return WebhookMessage{}, false
	}
	return p.Entry[0].Changes[0].Value.Messages[0], true
}

// ToInbound converts a webhook message into an InboundMessage. Only text messages
// and list replies are supported; anything else reports false.
func ToInbound(m WebhookMessage) (models.InboundMessage, bool) {
	in := models.InboundMessage{ID: m.ID, From: m.From, Time: parseUnix(m.Timestamp)}
	switch m.Type {
	case "text":
		if m.Text == nil || strings.TrimSpace(m.Text.Body) == "" {
			return models.InboundMessage{}, false
		}
		in.Kind = models.MessageKindText
		in.Text = m.Text.Body
	case "interactive":
		if m.Interactive == nil || m.Interactive.Type != "list_reply" || m.Interactive.ListReply == nil || m.Interactive.ListReply.ID == "" {
			return models.InboundMessage{}, false
		}
		in.Kind = models.MessageKindListReply
		in.Text = m.Interactive.ListReply.Title
		in.SelectionID = m.Interactive.ListReply.ID
	default:
		return models.InboundMessage{}, false
	}
	if in.From == "" {
		return models.InboundMessage{}, false
	}
	return in, true
}

func parseUnix(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
