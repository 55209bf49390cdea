// Package sink gives upstream agents a best-effort channel for reporting
// status. A failed or slow report must never affect the caller's own work,
// so the interface has no error return and delivery happens off the
// caller's goroutine.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/finadvisor/statuslog/internal/domain"
)

// Sink accepts status events on a best-effort basis.
type Sink interface {
	Report(ctx context.Context, event domain.StatusEvent)
	Close() error
}

// Nop discards every event. Useful in tests and when observability is
// disabled.
type Nop struct{}

// Report discards the event.
func (Nop) Report(context.Context, domain.StatusEvent) {}

// Close is a no-op.
func (Nop) Close() error { return nil }

const (
	defaultQueueSize   = 256
	defaultHTTPTimeout = 5 * time.Second
)

// HTTPSink posts events to a status logging service from a background
// worker. Events are dropped, not blocked on, when the queue is full or the
// service is unreachable.
type HTTPSink struct {
	endpoint  string
	client    *http.Client
	queue     chan domain.StatusEvent
	done      chan struct{}
	closeOnce sync.Once
}

// NewHTTP creates a sink posting to baseURL's /log_status endpoint.
func NewHTTP(baseURL string) *HTTPSink {
	s := &HTTPSink{
		endpoint: strings.TrimRight(baseURL, "/") + "/log_status",
		client:   &http.Client{Timeout: defaultHTTPTimeout},
		queue:    make(chan domain.StatusEvent, defaultQueueSize),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

// Report enqueues the event for delivery. It returns immediately; a full
// queue drops the event.
func (s *HTTPSink) Report(_ context.Context, event domain.StatusEvent) {
	select {
	case s.queue <- event:
	default:
		slog.Debug("Status sink queue full, dropping event", "agent_name", event.AgentName)
	}
}

// Close stops the worker after the queued events drain.
func (s *HTTPSink) Close() error {
	s.closeOnce.Do(func() { close(s.queue) })
	<-s.done
	return nil
}

func (s *HTTPSink) run() {
	defer close(s.done)
	for event := range s.queue {
		s.deliver(event)
	}
}

func (s *HTTPSink) deliver(event domain.StatusEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Debug("Status sink encode failed", "error", err)
		return
	}

	resp, err := s.client.Post(s.endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		slog.Debug("Status sink delivery failed", "error", err, "agent_name", event.AgentName)
		return
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		slog.Debug("Status sink delivery rejected", "status", resp.StatusCode, "agent_name", event.AgentName)
	}
}
