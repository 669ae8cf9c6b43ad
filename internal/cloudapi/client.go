// Package cloudapi wraps the WhatsApp Cloud API (Graph API) for sending messages
// and decoding webhook notifications.
package cloudapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BTreeMap/SivetachiBot/internal/models"
)

// Default Graph API settings.
const (
	DefaultBaseURL    = "https://graph.facebook.com"
	DefaultAPIVersion = "v18.0"
	DefaultTimeout    = 15 * time.Second
)

// ErrNotConfigured is returned when the access token or phone number id is missing.
var ErrNotConfigured = errors.New("cloud API token and phone number id must be provided")

// Sender sends WhatsApp messages through the Cloud API.
type Sender interface {
	SendText(ctx context.Context, to, body string) error
	SendList(ctx context.Context, to string, list models.ListMessage) error
}

// Opts holds configuration options for the Cloud API client.
type Opts struct {
	Token         string
	PhoneNumberID string
	APIVersion    string
	BaseURL       string
	HTTPClient    *http.Client
}

// Option defines a configuration option for the Cloud API client.
type Option func(*Opts)

// WithToken sets the bearer access token.
func WithToken(token string) Option {
	return func(o *Opts) { o.Token = token }
}

// WithPhoneNumberID sets the numeric id of the sending business line.
func WithPhoneNumberID(id string) Option {
	return func(o *Opts) { o.PhoneNumberID = id }
}

// WithAPIVersion sets the Graph API version, e.g. "v18.0".
func WithAPIVersion(version string) Option {
	return func(o *Opts) { o.APIVersion = version }
}

// WithBaseURL overrides the Graph API host, used by tests.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Client sends messages to the Graph API messages endpoint.
type Client struct {
	http     *http.Client
	endpoint string
	token    string
}

// NewClient creates a Cloud API client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{APIVersion: DefaultAPIVersion, BaseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("CloudAPI client config loaded",
		"token_set", cfg.Token != "",
		"phone_number_id_set", cfg.PhoneNumberID != "",
		"version", cfg.APIVersion)
	if cfg.Token == "" || cfg.PhoneNumberID == "" {
		return nil, ErrNotConfigured
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		http:     cfg.HTTPClient,
		endpoint: fmt.Sprintf("%s/%s/%s/messages", strings.TrimRight(cfg.BaseURL, "/"), cfg.APIVersion, cfg.PhoneNumberID),
		token:    cfg.Token,
	}, nil
}

type textPayload struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             TextBody `json:"text"`
}

type interactivePayload struct {
	MessagingProduct string          `json:"messaging_product"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Interactive      listInteractive `json:"interactive"`
}

type listInteractive struct {
	Type   string      `json:"type"`
	Header *listHeader `json:"header,omitempty"`
	Body   listText    `json:"body"`
	Footer *listText   `json:"footer,omitempty"`
	Action listAction  `json:"action"`
}

type listHeader struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type listText struct {
	Text string `json:"text"`
}

type listAction struct {
	Button   string               `json:"button"`
	Sections []models.ListSection `json:"sections"`
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	return c.post(ctx, to, textPayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             TextBody{Body: body},
	})
}

// SendList sends an interactive list message.
func (c *Client) SendList(ctx context.Context, to string, list models.ListMessage) error {
	in := listInteractive{
		Type: "list",
		Body: listText{Text: list.Body},
		Action: listAction{
			Button:   models.TruncateRunes(list.Button, models.MaxListButtonLength),
			Sections: list.Sections,
		},
	}
	if list.Header != "" {
		in.Header = &listHeader{Type: "text", Text: list.Header}
	}
	if list.Footer != "" {
		in.Footer = &listText{Text: list.Footer}
	}
	return c.post(ctx, to, interactivePayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive:      in,
	})
}

func (c *Client) post(ctx context.Context, to string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode message to %s: %w", to, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("CloudAPI send failed", "to", to, "error", err)
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Error("CloudAPI send rejected", "to", to, "status", resp.StatusCode, "body", string(detail))
		return &APIError{StatusCode: resp.StatusCode, Body: string(detail)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	slog.Debug("CloudAPI message sent", "to", to)
	return nil
}

// Unconfigured is a Sender used when credentials are missing. The webhook keeps
// answering, but every send fails with ErrNotConfigured.
type Unconfigured struct{}

func (Unconfigured) SendText(ctx context.Context, to, body string) error {
	slog.Warn("CloudAPI send skipped, client not configured", "to", to)
	return ErrNotConfigured
}

func (Unconfigured) SendList(ctx context.Context, to string, list models.ListMessage) error {
	slog.Warn("CloudAPI list send skipped, client not configured", "to", to)
	return ErrNotConfigured
}

// APIError is a non-2xx answer from the Graph API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cloud API returned status %d: %s", e.StatusCode, e.Body)
}

// MockClient records messages instead of sending them.
type MockClient struct {
	SentTexts []SentText
	SentLists []SentList

	// TextErr and ListErr, when set, are returned by the matching send.
	TextErr error
	ListErr error
}

// SentText is a recorded text message.
type SentText struct {
	To   string
	Body string
}

// SentList is a recorded list message.
type SentList struct {
	To   string
	List models.ListMessage
}

// NewMockClient creates an empty MockClient.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// SendText records a text message.
func (m *MockClient) SendText(ctx context.Context, to, body string) error {
	if m.TextErr != nil {
		return m.TextErr
	}
	m.SentTexts = append(m.SentTexts, SentText{To: to, Body: body})
	return nil
}

// SendList records a list message.
func (m *MockClient) SendList(ctx context.Context, to string, list models.ListMessage) error {
	if m.ListErr != nil {
		return m.ListErr
	}
	m.SentLists = append(m.SentLists, SentList{To: to, List: list})
	return nil
}
