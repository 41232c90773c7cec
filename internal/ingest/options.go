package ingest

import (
	"time"

	"github.com/nerrad567/venuewatch-core/internal/infrastructure/config"
)

// Default session settings.
const (
	DefaultGreeting         = `{"serverMsg":"Hello ESP32"}`
	DefaultGreetingDelay    = time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultApplyTimeout     = 5 * time.Second
	DefaultMaxMessageSize   = 1 << 20
	DefaultMaxPendingFrames = 1024
)

// Options configures ingestion sessions.
type Options struct {
	// Greeting is written once, GreetingDelay after the connection opens.
	Greeting      []byte
	GreetingDelay time.Duration

	// WriteTimeout bounds the greeting write.
	WriteTimeout time.Duration

	// ApplyTimeout bounds the handling of one frame.
	ApplyTimeout time.Duration

	// MaxMessageSize is the read limit per frame in bytes. A larger frame is
	// a transport failure: the connection is closed and the session ends.
	MaxMessageSize int64

	// MaxPendingFrames is the mailbox capacity. Frames arriving while it
	// is full are dropped.
	MaxPendingFrames int
}

// OptionsFromConfig converts the ingest configuration section.
func OptionsFromConfig(cfg config.IngestConfig) Options {
	return Options{
		Greeting:         []byte(cfg.Greeting),
		GreetingDelay:    cfg.GreetingDelayDuration(),
		WriteTimeout:     cfg.WriteTimeoutDuration(),
		ApplyTimeout:     cfg.ApplyTimeoutDuration(),
		MaxMessageSize:   int64(cfg.MaxMessageSize),
		MaxPendingFrames: cfg.MaxPendingFrames,
	}.withDefaults()
}

// withDefaults fills unset fields. A zero GreetingDelay is valid and
// greets immediately.
func (o Options) withDefaults() Options {
	if len(o.Greeting) == 0 {
		o.Greeting = []byte(DefaultGreeting)
	}
	if o.GreetingDelay < 0 {
		o.GreetingDelay = DefaultGreetingDelay
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.ApplyTimeout <= 0 {
		o.ApplyTimeout = DefaultApplyTimeout
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = DefaultMaxMessageSize
	}
	if o.MaxPendingFrames <= 0 {
		o.MaxPendingFrames = DefaultMaxPendingFrames
	}
	return o
}
