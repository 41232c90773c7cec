package ingest

import (
	"context"
	"sync"

	"github.com/nerrad567/venuewatch-core/internal/telemetry"
)

// Logger defines the logging interface used by the ingest package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// FrameHandler processes one telemetry frame. telemetry.Processor
// implements it.
type FrameHandler interface {
	Handle(ctx context.Context, frame []byte, source string) telemetry.Outcome
}

// Hub owns the set of live sessions.
//
// Run ties the hub to the listener lifecycle: when its context ends every
// session is closed and Run waits for their workers to drain. Frames are
// handled under a context detached from Run's cancellation, so neither a
// peer closing its connection nor hub shutdown cancels a store write for a
// frame that was already received; ApplyTimeout alone bounds the drain.
type Hub struct {
	logger Logger

	mu       sync.RWMutex
	sessions map[*Session]struct{}
	closed   bool
	ctx      context.Context

	workers sync.WaitGroup
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		logger:   noopLogger{},
		sessions: make(map[*Session]struct{}),
		ctx:      context.Background(),
	}
}

// SetLogger sets the logger for the hub.
func (h *Hub) SetLogger(logger Logger) {
	h.logger = logger
}

// Run blocks until ctx is cancelled, then closes every session and waits
// for their workers to finish.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	h.ctx = context.WithoutCancel(ctx)
	h.mu.Unlock()

	<-ctx.Done()
	h.closeAll()
	h.workers.Wait()
	h.logger.Info("ingest hub stopped")
}

// Register adds a session and returns the context its frames are handled
// under. It returns ErrHubClosed once the hub has shut down.
func (h *Hub) Register(s *Session) (context.Context, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	h.sessions[s] = struct{}{}
	h.workers.Add(1)
	ctx := h.ctx
	count := len(h.sessions)
	h.mu.Unlock()

	h.logger.Info("device connected", "session_id", s.ID(), "remote_addr", s.RemoteAddr(), "sessions", count)
	return ctx, nil
}

// Unregister removes a session. It is safe to call more than once.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	_, existed := h.sessions[s]
	delete(h.sessions, s)
	count := len(h.sessions)
	h.mu.Unlock()

	if existed {
		h.logger.Info("device disconnected", "session_id", s.ID(), "sessions", count)
	}
}

// Count returns the number of live sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// closeAll marks the hub closed and closes every session.
// Sessions are closed outside the lock because Close calls Unregister.
func (h *Hub) closeAll() {
	h.mu.Lock()
	h.closed = true
	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// done marks one session worker finished.
func (h *Hub) done() {
	h.workers.Done()
}
