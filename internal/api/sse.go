package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/events"
)

const sseHeartbeatInterval = 15 * time.Second

// setSSEHeaders prepares a response for event streaming.
func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
}

// handleEvents streams step, output, error and run lifecycle events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.streamEvents(w, r, []string{
		events.TypeStepUpdated,
		events.TypeOutputAdded,
		events.TypeErrorRaised,
		events.TypeRunStarted,
		events.TypeRunFinished,
	})
}

// handleLogStream streams debug log entries.
func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	s.streamEvents(w, r, []string{events.TypeLogEntry})
}

func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, types []string) {
	if s.bus == nil {
		respondError(w, http.StatusServiceUnavailable, "event bus not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	setSSEHeaders(w)

	ch := s.bus.Subscribe(types...)
	defer s.bus.Unsubscribe(ch)

	s.logger.Debug("sse client connected", "remote_addr", r.RemoteAddr)
	sendSSE(w, flusher, "connected", map[string]string{"status": "connected"})

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("sse client disconnected", "remote_addr", r.RemoteAddr)
			return
		case <-heartbeat.C:
			// Comment frames keep intermediaries from timing out the
			// connection.
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case event, open := <-ch:
			if !open {
				return
			}
			sendSSE(w, flusher, event.EventType(), event)
		}
	}
}

// sendSSE writes one frame: event: type\ndata: json\n\n.
func sendSSE(w http.ResponseWriter, flusher http.Flusher, eventType string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
}
