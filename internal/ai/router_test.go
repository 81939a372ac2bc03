package ai_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mahavihara/tutor/internal/ai"
)

func lessonRequest() ai.CompletionRequest {
	return ai.CompletionRequest{
		Messages: []ai.Message{{Role: "user", Content: "Introduce determinants."}},
		Task:     ai.TaskLesson,
	}
}

func TestRouter_WalksFallbackChain(t *testing.T) {
	tests := []struct {
		name        string
		providers   []ai.Provider
		wantContent string
		wantErr     bool
	}{
		{
			name:        "single healthy provider",
			providers:   []ai.Provider{ai.NewMockProvider("lesson prose")},
			wantContent: "lesson prose",
		},
		{
			name: "first fails, second answers",
			providers: []ai.Provider{
				&ai.MockProvider{Err: errors.New("rate limited")},
				ai.NewMockProvider("fallback prose"),
			},
			wantContent: "fallback prose",
		},
		{
			name: "registration order wins",
			providers: []ai.Provider{
				ai.NewMockProvider("primary"),
				ai.NewMockProvider("secondary"),
			},
			wantContent: "primary",
		},
		{
			name: "every provider fails",
			providers: []ai.Provider{
				&ai.MockProvider{Err: errors.New("quota")},
				&ai.MockProvider{Err: errors.New("down")},
			},
			wantErr: true,
		},
		{
			name:    "no providers registered",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := ai.NewRouter()
			for i, p := range tt.providers {
				router.Register(string(rune('a'+i)), p)
			}

			resp, err := router.Complete(context.Background(), lessonRequest())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Complete() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && resp.Content != tt.wantContent {
				t.Errorf("Content = %q, want %q", resp.Content, tt.wantContent)
			}
		})
	}
}

func TestRouter_HasProvider(t *testing.T) {
	router := ai.NewRouter()
	if router.HasProvider() {
		t.Error("HasProvider() = true before any registration")
	}
	router.Register("mock", ai.NewMockProvider("ok"))
	if !router.HasProvider() {
		t.Error("HasProvider() = false after Register")
	}
}

func TestRouter_PassesRequestThrough(t *testing.T) {
	router := ai.NewRouter()
	mock := ai.NewMockProvider("ok")
	router.Register("mock", mock)

	req := lessonRequest()
	if _, err := router.Complete(context.Background(), req); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if mock.LastRequest == nil || mock.LastRequest.Task != ai.TaskLesson {
		t.Errorf("provider saw %+v, want the original task", mock.LastRequest)
	}
}
