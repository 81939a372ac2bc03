package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mahavihara/tutor/internal/catalog"
	"github.com/mahavihara/tutor/internal/tutor"
)

func testServer(t *testing.T) *server {
	t.Helper()

	concepts := []catalog.Concept{
		{ID: "vectors", Name: "Vectors", Ordinal: 1, BaseDifficulty: 0.2, Lesson: "Arrows with magnitude and direction."},
		{ID: "matrix_ops", Name: "Matrix Operations", Ordinal: 2, Prerequisites: []string{"vectors"}, BaseDifficulty: 0.35},
	}
	var questions []catalog.Question
	for _, c := range concepts {
		for _, tier := range catalog.Tiers {
			for i := 1; i <= 3; i++ {
				questions = append(questions, catalog.Question{
					ID:         fmt.Sprintf("%s-%s-%d", c.ID, tier, i),
					ConceptID:  c.ID,
					Tier:       tier,
					Text:       fmt.Sprintf("%s %s question %d", c.Name, tier, i),
					Options:    []string{"first", "second", "third"},
					Answer:     "B",
					Difficulty: 0.2 + 0.1*float64(i),
				})
			}
		}
	}

	cat, err := catalog.New(concepts, questions, nil, nil)
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}
	return &server{orc: tutor.New(tutor.Config{Catalog: cat})}
}

func TestHealthEndpoints(t *testing.T) {
	mux := newMux(testServer(t))

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthz returns 200",
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "readyz returns 200",
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	mux := newMux(testServer(t))

	// Create a session.
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(`{}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var snap tutor.SessionSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if snap.SessionID == "" {
		t.Fatal("snapshot missing session id")
	}
	if snap.CurrentConcept != "vectors" {
		t.Errorf("CurrentConcept = %q, want vectors", snap.CurrentConcept)
	}

	// Chat turn.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		"/v1/sessions/"+snap.SessionID+"/chat",
		strings.NewReader(`{"message":"quiz me"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var turn tutor.TurnResult
	if err := json.Unmarshal(rec.Body.Bytes(), &turn); err != nil {
		t.Fatalf("decoding turn: %v", err)
	}
	if turn.Phase != tutor.PhaseQuiz || turn.Question == nil {
		t.Errorf("turn = phase %q question %v, want quiz phase with question", turn.Phase, turn.Question)
	}

	// Graph snapshot.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/"+snap.SessionID+"/graph", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("graph status = %d", rec.Code)
	}

	// Delete, then the session is gone.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+snap.SessionID, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/"+snap.SessionID+"/graph", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("graph after delete status = %d, want 404", rec.Code)
	}
}

func TestChat_UnknownSession(t *testing.T) {
	mux := newMux(testServer(t))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		"/v1/sessions/nope/chat", strings.NewReader(`{"message":"hi"}`)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestChat_MissingMessage(t *testing.T) {
	mux := newMux(testServer(t))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		"/v1/sessions/any/chat", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestEvidence(t *testing.T) {
	mux := newMux(testServer(t))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(`{"session_id":"s1"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		"/v1/sessions/s1/evidence", strings.NewReader(`{"concept_id":"vectors"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("evidence status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Mastery float64 `json:"mastery"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Mastery <= 0.3 {
		t.Errorf("mastery = %v, want above the 0.3 default after a nudge", resp.Mastery)
	}
}
