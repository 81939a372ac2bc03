package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/mahavihara/tutor/internal/graph"
)

// graphFeedInterval is how often the live graph feed re-renders.
const graphFeedInterval = 2 * time.Second

// handleGraphFeed streams knowledge-graph snapshots over a websocket. The
// client receives the current state immediately, then an update whenever the
// rendered graph changes.
func (s *server) handleGraphFeed(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if _, err := s.orc.GraphState(r.Context(), sessionID); err != nil {
		s.writeOrchestratorError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "session_id", sessionID, "error", err)
		return
	}
	defer conn.CloseNow()

	// CloseRead discards inbound frames and cancels the context when the
	// client goes away.
	ctx := conn.CloseRead(r.Context())

	var last *graph.State
	ticker := time.NewTicker(graphFeedInterval)
	defer ticker.Stop()

	for {
		state, err := s.orc.GraphState(ctx, sessionID)
		if err != nil {
			conn.Close(websocket.StatusGoingAway, "session gone")
			return
		}
		if last == nil || !statesEqual(*last, state) {
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, state)
			cancel()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					slog.Debug("graph feed write failed", "session_id", sessionID, "error", err)
				}
				return
			}
			last = &state
		}

		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
		}
	}
}

func statesEqual(a, b graph.State) bool {
	if len(a.Nodes) != len(b.Nodes) || len(a.Edges) != len(b.Edges) {
		return false
	}
	for i := range a.Nodes {
		if a.Nodes[i] != b.Nodes[i] {
			return false
		}
	}
	for i := range a.Edges {
		if a.Edges[i] != b.Edges[i] {
			return false
		}
	}
	return true
}
