// Package genai provides the optional AI fallback reply using the OpenAI API.

package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/xid"
)

// Error variables for better error handling and testability
var (
	ErrNoChoicesReturned = errors.New("no choices returned")
	ErrModelNotFound     = errors.New("model not found")
	ErrNoCandidates      = errors.New("no model candidates configured")
	ErrMissingAPIKey     = errors.New("OPENAI_API_KEY not set")
)

// Defaults used when no option overrides them.
const (
	DefaultModel        = "gpt-4.1-mini"
	DefaultSystemPrompt = "Eres un asistente de restaurante. Responde breve y amable. Si no sabes, ofrece el menu o un asesor."
	DefaultTemperature  = 0.7
	DefaultMaxTokens    = 300
)

// chatService defines minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// completionsAdapter exposes the SDK completion service through chatService.
type completionsAdapter struct {
	svc *openai.ChatCompletionService
}

func (a completionsAdapter) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := a.svc.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Client generates short customer replies with an ordered list of model candidates.
type Client struct {
	chat         chatService
	models       []string
	systemPrompt string
	temperature  float64
	maxTokens    int
	debugMode    bool
	stateDir     string
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey       string
	Models       []string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	DebugMode    bool
	StateDir     string
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModels sets the model candidates, tried in order.
func WithModels(models ...string) Option {
	return func(o *Opts) {
		candidates := make([]string, 0, len(models))
		for _, m := range models {
			if m = strings.TrimSpace(m); m != "" {
				candidates = append(candidates, m)
			}
		}
		o.Models = candidates
	}
}

// WithSystemPrompt overrides the assistant instructions.
func WithSystemPrompt(prompt string) Option {
	return func(o *Opts) { o.SystemPrompt = prompt }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) Option {
	return func(o *Opts) { o.Temperature = temp }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(tokens int) Option {
	return func(o *Opts) { o.MaxTokens = tokens }
}

// WithDebugMode records every completion call as JSON under stateDir/debug.
func WithDebugMode(enabled bool) Option {
	return func(o *Opts) { o.DebugMode = enabled }
}

// WithStateDir sets the directory used for debug records.
func WithStateDir(dir string) Option {
	return func(o *Opts) { o.StateDir = dir }
}

// NewClient initializes a new GenAI client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		Models:       []string{DefaultModel},
		SystemPrompt: DefaultSystemPrompt,
		Temperature:  DefaultTemperature,
		MaxTokens:    DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if len(cfg.Models) == 0 {
		return nil, ErrNoCandidates
	}

	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	slog.Debug("GenAI.NewClient: client created", "models", cfg.Models, "debug", cfg.DebugMode)
	return &Client{
		chat:         completionsAdapter{svc: &cli.Chat.Completions},
		models:       cfg.Models,
		systemPrompt: cfg.SystemPrompt,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		debugMode:    cfg.DebugMode,
		stateDir:     cfg.StateDir,
	}, nil
}

// Models returns the configured model candidates.
func (c *Client) Models() []string {
	return c.models
}

// GenerateReply answers a customer message. Model candidates are tried in order;
// only a "model not found" failure moves on to the next candidate, any other
// error is returned immediately.
func (c *Client) GenerateReply(ctx context.Context, text string) (string, error) {
	if len(c.models) == 0 {
		return "", ErrNoCandidates
	}
	var lastErr error
	for _, model := range c.models {
		reply, err := c.complete(ctx, model, c.systemPrompt, text)
		if err == nil {
			return reply, nil
		}
		if !IsModelNotFound(err) {
			return "", err
		}
		slog.Warn("GenAI.GenerateReply: model unavailable, trying next candidate", "model", model, "error", err)
		lastErr = err
	}
	return "", fmt.Errorf("%w: tried %s: %v", ErrModelNotFound, strings.Join(c.models, ", "), lastErr)
}

func (c *Client) complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	}
	if c.temperature > 0 {
		params.Temperature = openai.Float(c.temperature)
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.maxTokens))
	}

	resp, err := c.chat.Create(ctx, params)
	c.writeDebug("GenerateReply", model, params, resp, err)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// IsModelNotFound reports whether err means the requested model does not exist.
func IsModelNotFound(err error) bool {
	if errors.Is(err, ErrModelNotFound) {
		return true
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404 || apiErr.Code == "model_not_found"
	}
	return false
}

type debugRecord struct {
	Timestamp time.Time                      `json:"timestamp"`
	Method    string                         `json:"method"`
	Model     string                         `json:"model"`
	Params    openai.ChatCompletionNewParams `json:"params"`
	Response  *openai.ChatCompletion         `json:"response"`
	Error     string                         `json:"error,omitempty"`
}

func (c *Client) writeDebug(method, model string, params openai.ChatCompletionNewParams, resp openai.ChatCompletion, callErr error) {
	if !c.debugMode || c.stateDir == "" {
		return
	}
	dir := filepath.Join(c.stateDir, "debug")
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Warn("GenAI.writeDebug: failed to create debug directory", "dir", dir, "error", err)
		return
	}
	rec := debugRecord{Timestamp: time.Now().UTC(), Method: method, Model: model, Params: params}
	if callErr != nil {
		rec.Error = callErr.Error()
	} else {
		rec.Response = &resp
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		slog.Warn("GenAI.writeDebug: failed to marshal debug record", "error", err)
		return
	}
	name := fmt.Sprintf("genai_%s_%s.json", rec.Timestamp.Format("20060102T150405"), xid.New().String())
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		slog.Warn("GenAI.writeDebug: failed to write debug record", "error", err)
	}
}
