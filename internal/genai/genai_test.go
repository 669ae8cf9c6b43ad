package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp openai.ChatCompletion
	err  error

	// errByModel overrides err for specific models.
	errByModel map[string]error
	models     []string
	params     []openai.ChatCompletionNewParams
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	m.models = append(m.models, string(params.Model))
	m.params = append(m.params, params)
	if err, ok := m.errByModel[string(params.Model)]; ok {
		return openai.ChatCompletion{}, err
	}
	return m.resp, m.err
}

func completion(content string) openai.ChatCompletion {
	return openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func notFoundAPIError() error {
	return &openai.Error{
		StatusCode: http.StatusNotFound,
		Request:    httptest.NewRequest(http.MethodPost, "https://api.openai.com/v1/chat/completions", nil),
		Response:   &http.Response{StatusCode: http.StatusNotFound},
	}
}

func TestGenerateReply_Success(t *testing.T) {
	mock := &mockChatService{resp: completion("  Hola, te recomiendo la pizza margarita.  ")}
	client := &Client{chat: mock, models: []string{"test-model"}, systemPrompt: DefaultSystemPrompt}

	out, err := client.GenerateReply(context.Background(), "que me recomiendas")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Hola, te recomiendo la pizza margarita." {
		t.Errorf("unexpected reply %q", out)
	}
	if len(mock.params) != 1 || len(mock.params[0].Messages) != 2 {
		t.Fatalf("expected one call with system and user messages, got %+v", mock.params)
	}
}

func TestGenerateReply_ServiceError(t *testing.T) {
	mock := &mockChatService{err: errors.New("service failure")}
	client := &Client{chat: mock, models: []string{"a", "b"}}

	_, err := client.GenerateReply(context.Background(), "hola")
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
	if len(mock.models) != 1 {
		t.Errorf("a non not-found error must abort the candidate chain, calls=%v", mock.models)
	}
}

func TestGenerateReply_NoChoices(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: openai.ChatCompletion{}}, models: []string{"m"}}
	_, err := client.GenerateReply(context.Background(), "hola")
	if !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("expected no choices returned error, got %v", err)
	}
}

func TestGenerateReply_FallsBackOnModelNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"api 404", notFoundAPIError()},
		{"wrapped sentinel", fmt.Errorf("lookup: %w", ErrModelNotFound)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockChatService{
				resp:       completion("respuesta"),
				errByModel: map[string]error{"missing-model": tt.err},
			}
			client := &Client{chat: mock, models: []string{"missing-model", "good-model"}}

			out, err := client.GenerateReply(context.Background(), "hola")
			if err != nil {
				t.Fatalf("expected fallback to succeed, got %v", err)
			}
			if out != "respuesta" {
				t.Errorf("unexpected reply %q", out)
			}
			if strings.Join(mock.models, ",") != "missing-model,good-model" {
				t.Errorf("unexpected call order %v", mock.models)
			}
		})
	}
}

func TestGenerateReply_AllCandidatesMissing(t *testing.T) {
	mock := &mockChatService{errByModel: map[string]error{
		"a": fmt.Errorf("a: %w", ErrModelNotFound),
		"b": fmt.Errorf("b: %w", ErrModelNotFound),
	}}
	client := &Client{chat: mock, models: []string{"a", "b"}}

	_, err := client.GenerateReply(context.Background(), "hola")
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got %v", err)
	}
}

func TestGenerateReply_NoCandidates(t *testing.T) {
	client := &Client{chat: &mockChatService{}}
	if _, err := client.GenerateReply(context.Background(), "hola"); !errors.Is(err, ErrNoCandidates) {
		t.Errorf("expected ErrNoCandidates, got %v", err)
	}
}

func TestIsModelNotFound(t *testing.T) {
	if !IsModelNotFound(notFoundAPIError()) {
		t.Error("expected 404 API error to be model not found")
	}
	serverErr := &openai.Error{StatusCode: http.StatusInternalServerError}
	if IsModelNotFound(serverErr) {
		t.Error("500 must not be treated as model not found")
	}
	if IsModelNotFound(errors.New("other")) {
		t.Error("plain errors must not be treated as model not found")
	}
}

func TestNewClient_NoKey(t *testing.T) {
	_, err := NewClient()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"), WithModels("gpt-4.1-mini", " ", "gpt-4o-mini"))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if got := strings.Join(cli.Models(), ","); got != "gpt-4.1-mini,gpt-4o-mini" {
		t.Errorf("unexpected model candidates %q", got)
	}
}

func TestNewClient_EmptyModels(t *testing.T) {
	_, err := NewClient(WithAPIKey("test-key"), WithModels())
	if !errors.Is(err, ErrNoCandidates) {
		t.Errorf("expected ErrNoCandidates, got %v", err)
	}
}
