package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/venuewatch-core/internal/device"
)

// State is the lifecycle state of a session.
type State int32

// Session states. Transitions only move forward.
const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one device connection.
//
// The read loop only queues frames; a single worker handles them in
// arrival order. The greeting timer and every write to conn are guarded
// by mu together with the state, so nothing is written once the session
// is closed.
type Session struct {
	id     string
	conn   *websocket.Conn
	hub    *Hub
	frames FrameHandler
	opts   Options
	logger Logger

	mu       sync.Mutex
	state    State
	greeting *time.Timer
	greeted  bool

	mailbox   chan []byte
	dropped   atomic.Int64
	closeOnce sync.Once
}

func newSession(conn *websocket.Conn, hub *Hub, frames FrameHandler, opts Options, logger Logger) *Session {
	return &Session{
		id:      uuid.NewString(),
		conn:    conn,
		hub:     hub,
		frames:  frames,
		opts:    opts,
		logger:  logger,
		state:   StateConnecting,
		mailbox: make(chan []byte, opts.MaxPendingFrames),
	}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// RemoteAddr returns the peer address.
func (s *Session) RemoteAddr() string {
	if s.conn == nil {
		return ""
	}
	return s.conn.RemoteAddr().String()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dropped returns how many frames were discarded because the mailbox was full.
func (s *Session) Dropped() int64 {
	return s.dropped.Load()
}

// open moves the session to StateOpen and arms the greeting timer.
func (s *Session) open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnecting {
		return
	}
	s.state = StateOpen
	s.greeting = time.AfterFunc(s.opts.GreetingDelay, s.sendGreeting)
}

func (s *Session) sendGreeting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen || s.greeted {
		return
	}

	//nolint:errcheck // Best-effort deadline; write error caught below
	s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, s.opts.Greeting); err != nil {
		s.logger.Debug("greeting write failed", "session_id", s.id, "error", err)
		return
	}
	s.greeted = true
	s.logger.Debug("greeting sent", "session_id", s.id)
}

// greetingSent reports whether the greeting was written.
func (s *Session) greetingSent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.greeted
}

// readLoop reads frames until the connection fails, then closes the
// mailbox so the worker drains what is left and exits.
func (s *Session) readLoop() {
	defer func() {
		close(s.mailbox)
		s.Close()
	}()

	s.conn.SetReadLimit(s.opts.MaxMessageSize)

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("device connection lost", "session_id", s.id, "error", err)
			}
			return
		}
		s.enqueue(frame)
	}
}

// enqueue never blocks. A full mailbox drops the frame.
func (s *Session) enqueue(frame []byte) {
	select {
	case s.mailbox <- frame:
	default:
		n := s.dropped.Add(1)
		s.logger.Warn("session mailbox full, dropping frame",
			"session_id", s.id,
			"pending", s.opts.MaxPendingFrames,
			"dropped", n,
		)
	}
}

// work handles queued frames in order until the mailbox is closed.
func (s *Session) work(ctx context.Context) {
	defer s.hub.done()

	for frame := range s.mailbox {
		frameCtx, cancel := context.WithTimeout(ctx, s.opts.ApplyTimeout)
		outcome := s.frames.Handle(frameCtx, frame, device.HistorySourceWebSocket)
		cancel()
		s.logger.Debug("frame handled", "session_id", s.id, "outcome", outcome.String())
	}
}

// Close stops the greeting timer, closes the connection and unregisters
// the session. Frames already queued are still handled.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		if s.greeting != nil {
			s.greeting.Stop()
		}
		s.mu.Unlock()

		if s.conn != nil {
			s.conn.Close()
		}
		s.hub.Unregister(s)
	})
}
