package ingest

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// Handler upgrades device connections and starts their sessions.
type Handler struct {
	hub      *Hub
	frames   FrameHandler
	opts     Options
	upgrader websocket.Upgrader
	logger   Logger
}

// NewHandler creates a websocket handler that registers sessions with hub
// and passes their frames to frames.
func NewHandler(hub *Hub, frames FrameHandler, opts Options) *Handler {
	return &Handler{
		hub:    hub,
		frames: frames,
		opts:   opts.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				// Devices are not browsers and send no meaningful Origin.
				return true
			},
		},
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the handler and the sessions it starts.
func (h *Handler) SetLogger(logger Logger) {
	h.logger = logger
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		h.logger.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	s := newSession(conn, h.hub, h.frames, h.opts, h.logger)
	ctx, err := h.hub.Register(s)
	if err != nil {
		h.logger.Warn("rejecting device connection", "remote_addr", r.RemoteAddr, "error", err)
		conn.Close()
		return
	}

	s.open()
	go s.work(ctx)
	go s.readLoop()
}
