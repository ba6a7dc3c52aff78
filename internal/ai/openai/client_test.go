package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/ai"
)

func newStubClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(Options{
		APIKey:     "test",
		Model:      "test-model",
		BaseURL:    server.URL,
		MaxRetries: -1,
		HTTPClient: server.Client(),
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
}

func TestClientGenerateContent(t *testing.T) {
	var body map[string]any
	c := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected authorization %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		writeCompletion(w, "  {\"score\": 7}  ")
	})

	out, err := c.GenerateContent(context.Background(), "grade this")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != `{"score": 7}` {
		t.Fatalf("unexpected output %q", out)
	}
	if body["model"] != "test-model" {
		t.Fatalf("unexpected model in request: %v", body["model"])
	}
	messages, _ := body["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("expected one message, got %v", body["messages"])
	}
	if c.Name() != ProviderName || c.Model() != "test-model" {
		t.Fatalf("unexpected identity %s/%s", c.Name(), c.Model())
	}
}

func TestClientEmptyResponse(t *testing.T) {
	c := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, " ")
	})

	if _, err := c.GenerateContent(context.Background(), "prompt"); !errors.Is(err, ai.ErrEmptyResponse) {
		t.Fatalf("expected empty response error, got %v", err)
	}
}

func TestClientServerError(t *testing.T) {
	var calls atomic.Int32
	c := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	})

	if _, err := c.GenerateContent(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("retries were disabled, got %d calls", calls.Load())
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatal("expected error without api key")
	}
}
