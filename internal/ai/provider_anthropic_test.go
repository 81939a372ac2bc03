package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func anthropicStub(t *testing.T, text string, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("path = %s, want /messages", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("missing anthropic-version header")
		}
		if captured != nil {
			if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
				t.Errorf("decoding request: %v", err)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"type": "text", "text": text}},
			"model":   "claude-sonnet-4-6",
			"usage":   map[string]any{"input_tokens": 30, "output_tokens": 12},
		})
	}))
}

func TestAnthropicProvider_RequiresAPIKey(t *testing.T) {
	if _, err := NewAnthropicProvider(""); err == nil {
		t.Fatal("NewAnthropicProvider should reject an empty key")
	}
}

func TestAnthropicProvider_Complete(t *testing.T) {
	var got map[string]any
	server := anthropicStub(t, "An eigenvector keeps its direction under the map.", &got)
	defer server.Close()

	provider, err := NewAnthropicProvider("test-key", WithAnthropicBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewAnthropicProvider: %v", err)
	}
	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: "You are a math tutor."},
			{Role: "user", Content: "What is an eigenvector?"},
		},
		Task: TaskSocratic,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	// System messages move into the dedicated field, never the message list.
	if got["system"] != "You are a math tutor." {
		t.Errorf("system = %v", got["system"])
	}
	msgs, ok := got["messages"].([]any)
	if !ok || len(msgs) != 1 {
		t.Fatalf("messages = %v, want only the user turn", got["messages"])
	}
	if got["model"] != "claude-sonnet-4-6" {
		t.Errorf("model = %v, want the default", got["model"])
	}

	if resp.Content != "An eigenvector keeps its direction under the map." {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.InputTokens != 30 || resp.OutputTokens != 12 {
		t.Errorf("tokens = %d/%d, want 30/12", resp.InputTokens, resp.OutputTokens)
	}
}

func TestAnthropicProvider_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"api error",
			func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
		},
		{
			"no content blocks",
			func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"content": []any{}})
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			provider, err := NewAnthropicProvider("test-key", WithAnthropicBaseURL(server.URL))
			if err != nil {
				t.Fatalf("NewAnthropicProvider: %v", err)
			}
			_, err = provider.Complete(context.Background(), CompletionRequest{
				Messages: []Message{{Role: "user", Content: "hi"}},
			})
			if err == nil {
				t.Fatal("Complete() should surface the failure")
			}
		})
	}
}

func TestAnthropicProvider_HealthCheck(t *testing.T) {
	server := anthropicStub(t, "pong", nil)
	defer server.Close()

	provider, err := NewAnthropicProvider("test-key", WithAnthropicBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewAnthropicProvider: %v", err)
	}
	if err := provider.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestAnthropicProvider_Models(t *testing.T) {
	provider, err := NewAnthropicProvider("test-key")
	if err != nil {
		t.Fatalf("NewAnthropicProvider: %v", err)
	}
	models := provider.Models()
	if len(models) == 0 {
		t.Fatal("Models() returned empty list")
	}
	for _, m := range models {
		if m.MaxTokens == 0 {
			t.Errorf("model %q missing max tokens", m.ID)
		}
	}
}
