package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaProvider_Complete(t *testing.T) {
	var got openaiRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s, want the OpenAI-compatible endpoint", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "local model prose"}},
			},
			"model": got.Model,
			"usage": map[string]any{"prompt_tokens": 8, "completion_tokens": 4},
		})
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL)
	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "Explain vectors briefly."}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	// Self-hosted Ollama takes no credentials.
	if auth != "" {
		t.Errorf("Authorization = %q, want none", auth)
	}
	if got.Model != "llama3:8b" {
		t.Errorf("default model = %q, want llama3:8b", got.Model)
	}
	if resp.Content != "local model prose" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.InputTokens != 8 || resp.OutputTokens != 4 {
		t.Errorf("tokens = %d/%d, want 8/4", resp.InputTokens, resp.OutputTokens)
	}
}

func TestOllamaProvider_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	server.Close() // connection refused

	provider := NewOllamaProvider(server.URL)
	if _, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	}); err == nil {
		t.Fatal("Complete() should fail when the daemon is unreachable")
	}
}

func TestOllamaProvider_HealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
	}{
		{"running", http.StatusOK, false},
		{"misbehaving", http.StatusNotFound, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/tags" {
					t.Errorf("path = %s, want /api/tags", r.URL.Path)
				}
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			provider := NewOllamaProvider(server.URL)
			if err := provider.HealthCheck(context.Background()); (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOllamaProvider_Models(t *testing.T) {
	provider := NewOllamaProvider("http://localhost:11434")
	models := provider.Models()
	if len(models) == 0 {
		t.Fatal("Models() returned empty list")
	}
}
