package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/venuewatch-core/internal/infrastructure/config"
)

// Logger is the logging interface used by the client.
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

// Client is Core's link to the broker: it receives device telemetry,
// publishes accepted device state and keeps StatusTopic current.
//
// All methods are safe for concurrent use.
type Client struct {
	paho     pahomqtt.Client
	broker   string
	clientID string
	qos      byte

	online atomic.Bool

	mu           sync.RWMutex
	logger       Logger
	onConnect    func()
	onDisconnect func(err error)
	telemetry    *telemetryRoute
}

// Connect dials the broker and waits up to ten seconds for the session.
//
// The offline LWT is registered first. On every connect, including
// reconnects, the telemetry subscription is restored and an online status
// is published. Returns ErrConnectionFailed if the broker is unreachable.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		broker:   brokerURL(cfg.Broker),
		clientID: cfg.Broker.ClientID,
		qos:      byte(cfg.QoS),
	}

	opts := clientOptions(cfg)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleConnectionLost(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.log().Warn("MQTT reconnecting", "broker", c.broker)
	})

	c.paho = pahomqtt.NewClient(opts)
	if err := wait(c.paho.Connect(), connectTimeout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The connect handler runs asynchronously and may not have fired yet.
	c.online.Store(true)
	return c, nil
}

func (c *Client) handleConnect() {
	c.online.Store(true)

	c.mu.RLock()
	route := c.telemetry
	callback := c.onConnect
	c.mu.RUnlock()

	if route != nil {
		// Not waited on: this runs on paho's connection goroutine.
		c.paho.Subscribe(TelemetryFilter, route.qos, c.deliver(route))
	}
	c.paho.Publish(StatusTopic, c.qos, true, statusPayload(c.clientID, statusOnline, "", time.Now()))

	if callback != nil {
		callback()
	}
}

func (c *Client) handleConnectionLost(err error) {
	c.online.Store(false)

	c.mu.RLock()
	callback := c.onDisconnect
	c.mu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// Close publishes a graceful offline status and disconnects.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}

	if c.IsConnected() {
		payload := statusPayload(c.clientID, statusOffline, reasonShutdown, time.Now())
		if err := wait(c.paho.Publish(StatusTopic, c.qos, true, payload), operationTimeout); err != nil {
			c.log().Warn("publishing offline status failed", "error", err)
		}
	}

	c.paho.Disconnect(disconnectQuiesce)
	c.online.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether the broker link is up.
func (c *Client) IsConnected() bool {
	return c.paho != nil && c.online.Load() && c.paho.IsConnected()
}

// SetOnConnect sets a callback run after every connect and reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.mu.Lock()
	c.onConnect = callback
	c.mu.Unlock()
}

// SetOnDisconnect sets a callback run when the connection is lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.mu.Lock()
	c.onDisconnect = callback
	c.mu.Unlock()
}

// SetLogger sets the logger for connection events and handler failures.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.logger == nil {
		return noopLogger{}
	}
	return c.logger
}
