package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mj1618/wdadash/internal/backend"
)

func (s *Server) handleSyslog(w http.ResponseWriter, r *http.Request) {
	s.relay(w, r, "syslog", s.backend.Syslog)
}

func (s *Server) handlePerf(w http.ResponseWriter, r *http.Request) {
	s.relay(w, r, "perf", s.backend.Perf)
}

// relay opens a backend event stream for the device and forwards every
// event to the client until either side goes away.
func (s *Server) relay(w http.ResponseWriter, r *http.Request, kind string, open func(context.Context, string) (*backend.Stream, error)) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx := r.Context()
	udid := chi.URLParam(r, "udid")
	stream, err := open(ctx, udid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	metricStreams.WithLabelValues(kind).Inc()
	defer metricStreams.WithLabelValues(kind).Dec()

	clientID := uuid.NewString()
	logger := s.logger.With(zap.String("udid", udid), zap.String("stream", kind), zap.String("client", clientID))
	logger.Debug("stream opened")

	connected, _ := json.Marshal(map[string]string{"client": clientID, "udid": udid})
	if writeEvent(w, backend.Event{Name: "connected", Data: string(connected)}) != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("stream client went away")
			return
		case <-ticker.C:
			if _, err := io.WriteString(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-stream.Events():
			if !ok {
				if err := stream.Err(); err != nil {
					logger.Warn("upstream stream ended", zap.Error(err))
					msg, _ := json.Marshal(map[string]string{"error": err.Error()})
					_ = writeEvent(w, backend.Event{Name: "error", Data: string(msg)})
					flusher.Flush()
				}
				return
			}
			if err := writeEvent(w, ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeEvent writes one SSE frame. Multi-line data becomes one data line
// per line; the default "message" name is left implicit.
func writeEvent(w io.Writer, ev backend.Event) error {
	var b strings.Builder
	if ev.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", ev.ID)
	}
	if ev.Name != "" && ev.Name != "message" {
		fmt.Fprintf(&b, "event: %s\n", ev.Name)
	}
	for _, line := range strings.Split(ev.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}
