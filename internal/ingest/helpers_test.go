package ingest

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/venuewatch-core/internal/telemetry"
)

// recordingHandler records frames in handling order, together with the
// state of the context each frame was handled under. When gate is set,
// Handle blocks until the gate is closed.
type recordingHandler struct {
	gate    chan struct{}
	entered atomic.Int32

	mu      sync.Mutex
	frames  []string
	sources []string
	ctxErrs []error
}

func (r *recordingHandler) Handle(ctx context.Context, frame []byte, source string) telemetry.Outcome {
	r.entered.Add(1)
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, string(frame))
	r.sources = append(r.sources, source)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	return telemetry.OutcomeApplied
}

func (r *recordingHandler) contextErrors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]error, len(r.ctxErrs))
	copy(out, r.ctxErrs)
	return out
}

func (r *recordingHandler) handled() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.frames))
	copy(out, r.frames)
	return out
}

// startServer serves h over httptest and returns its ws:// URL.
func startServer(t *testing.T, hub *Hub, frames FrameHandler, opts Options) string {
	t.Helper()
	srv := httptest.NewServer(NewHandler(hub, frames, opts))
	t.Cleanup(func() {
		hub.closeAll()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
}

// waitFor polls cond until it holds or two seconds pass.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// onlySession returns the single live session of hub.
func onlySession(t *testing.T, hub *Hub) *Session {
	t.Helper()
	waitFor(t, "one session", func() bool { return hub.Count() == 1 })
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for s := range hub.sessions {
		return s
	}
	t.Fatal("no session registered")
	return nil
}

// quietOptions never greets during a test.
func quietOptions() Options {
	return Options{GreetingDelay: time.Hour}
}
