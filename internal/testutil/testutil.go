// Package testutil provides shared fixtures for SivetachiBot HTTP tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BTreeMap/SivetachiBot/internal/api"
	"github.com/BTreeMap/SivetachiBot/internal/catalog"
	"github.com/BTreeMap/SivetachiBot/internal/cloudapi"
	"github.com/BTreeMap/SivetachiBot/internal/flow"
	"github.com/BTreeMap/SivetachiBot/internal/messaging"
	"github.com/BTreeMap/SivetachiBot/internal/store"
)

// TestVerifyToken is the webhook verify token configured on test servers.
const TestVerifyToken = "test-verify-token"

// TB is the subset of testing.TB used by the assertion helpers.
type TB interface {
	Helper()
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// Fixture bundles a test server with the mocks behind it.
type Fixture struct {
	Server  *api.Server
	Handler *messaging.ResponseHandler
	Engine  *flow.Engine
	Cloud   *cloudapi.MockClient
	History *store.InMemoryStore
}

// NewTestServer creates an API server backed by the embedded catalog, a deterministic
// reply selector and a mock Cloud API client. No hours gate is installed.
func NewTestServer(t *testing.T, opts ...api.Option) *Fixture {
	t.Helper()
	engine := flow.NewEngine(catalog.MustDefault(), flow.NewStateStore(),
		flow.WithSelector(flow.NewSelector(rand.New(rand.NewPCG(1, 1)))))
	cloud := cloudapi.NewMockClient()
	history := store.NewInMemoryStore(store.DefaultHistoryLimit)
	handler := messaging.NewResponseHandler(messaging.NewCloudService(cloud), engine, history)

	base := []api.Option{api.WithVerifyToken(TestVerifyToken), api.WithDashboardDir(t.TempDir())}
	return &Fixture{
		Server:  api.NewServer(handler, append(base, opts...)...),
		Handler: handler,
		Engine:  engine,
		Cloud:   cloud,
		History: history,
	}
}

// Do serves req on the fixture's server and returns the recorded response.
func (f *Fixture) Do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.Server.Handler().ServeHTTP(rr, req)
	return rr
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t TB, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes the JSON body and validates its "status" field.
func AssertJSONResponse(t TB, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
		return nil
	}
	if status, ok := response["status"].(string); !ok {
		t.Errorf("response missing or invalid 'status' field")
	} else if status != expectedStatus {
		t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
	}
	return response
}

// CreateHTTPRequest creates an HTTP request with an optional JSON body.
func CreateHTTPRequest(t TB, method, url string, body interface{}) *http.Request {
	t.Helper()
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		reqBody = bytes.NewBuffer(MustMarshalJSON(t, body))
	}
	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
		return nil
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// TextWebhook builds a Cloud API webhook payload carrying one text message.
func TextWebhook(id, from, text string) map[string]interface{} {
	return webhook(map[string]interface{}{
		"id":        id,
		"from":      from,
		"timestamp": "1704124800",
		"type":      "text",
		"text":      map[string]string{"body": text},
	})
}

// ListReplyWebhook builds a Cloud API webhook payload carrying one list selection.
func ListReplyWebhook(id, from, rowID, title string) map[string]interface{} {
	return webhook(map[string]interface{}{
		"id":        id,
		"from":      from,
		"timestamp": "1704124800",
		"type":      "interactive",
		"interactive": map[string]interface{}{
			"type":       "list_reply",
			"list_reply": map[string]string{"id": rowID, "title": title},
		},
	})
}

func webhook(message map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"object": "whatsapp_business_account",
		"entry": []interface{}{map[string]interface{}{
			"id": "0",
			"changes": []interface{}{map[string]interface{}{
				"field": "messages",
				"value": map[string]interface{}{
					"messaging_product": "whatsapp",
					"messages":          []interface{}{message},
				},
			}},
		}},
	}
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t TB, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails test on error.
func MustUnmarshalJSON(t TB, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}

// Phone returns a distinct test phone number for n.
func Phone(n int) string {
	return fmt.Sprintf("58414%07d", n)
}
