package sink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/finadvisor/statuslog/internal/domain"
)

func TestHTTPSinkDeliversEvents(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		received []domain.StatusEvent
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/log_status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var event domain.StatusEvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			t.Errorf("decode event: %v", err)
		}
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{"status": "success", "id": 1}); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	defer srv.Close()

	s := NewHTTP(srv.URL)
	s.Report(context.Background(), domain.StatusEvent{AgentName: "data_analyst", StatusType: domain.StatusInfo, Message: "fetching"})
	s.Report(context.Background(), domain.StatusEvent{AgentName: "data_analyst", StatusType: domain.StatusSuccess, Message: "done"})

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("expected 2 delivered events, got %d", len(received))
	}
	if received[0].Message != "fetching" || received[1].Message != "done" {
		t.Errorf("events delivered out of order: %+v", received)
	}
}

func TestHTTPSinkSwallowsServerFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":"error","message":"database down"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewHTTP(srv.URL)
	// Report has no error return; the failed delivery must be invisible here.
	s.Report(context.Background(), domain.StatusEvent{AgentName: "coordinator", Message: "step"})
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestHTTPSinkSwallowsUnreachableService(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	s := NewHTTP(srv.URL)
	s.Report(context.Background(), domain.StatusEvent{AgentName: "coordinator", Message: "step"})
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestHTTPSinkDropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	s := NewHTTP(srv.URL)
	// Flood well past the queue size while the worker is stuck; Report must
	// keep returning immediately instead of blocking the caller.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < defaultQueueSize*2; i++ {
			s.Report(context.Background(), domain.StatusEvent{AgentName: "coordinator", Message: "flood"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Report blocked on a full queue")
	}
}

func TestNopSink(t *testing.T) {
	t.Parallel()

	var s Sink = Nop{}
	s.Report(context.Background(), domain.StatusEvent{AgentName: "coordinator", Message: "ignored"})
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}
