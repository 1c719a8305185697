package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/campus-portal/internal/infrastructure/config"
)

// Client publishes portal announcements to the broker. It is safe for
// concurrent use.
type Client struct {
	paho   pahomqtt.Client
	cfg    config.MQTTConfig
	topics Topics

	up atomic.Bool

	hookMu sync.RWMutex
	hooks  hooks
}

type hooks struct {
	connect    func()
	disconnect func(error)
}

// Connect dials the broker and waits for the first session. The broker
// holds a retained offline will; an online status replaces it on every
// (re)connect. paho reconnects on its own afterwards.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{cfg: cfg, topics: NewTopics(cfg.TopicPrefix)}

	opts := buildClientOptions(cfg)
	configureLWT(opts, c.topics, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.onUp() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.onDown(err) })

	c.paho = pahomqtt.NewClient(opts)
	tok := c.paho.Connect()
	if !tok.WaitTimeout(defaultConnectTimeout) {
		c.paho.Disconnect(0)
		return nil, fmt.Errorf("%w: no CONNACK within %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// onUp runs on a paho goroutine and may not have fired yet.
	c.up.Store(true)
	return c, nil
}

// Topics returns the topic builder in use.
func (c *Client) Topics() Topics {
	return c.topics
}

func (c *Client) onUp() {
	c.up.Store(true)
	c.paho.Publish(c.topics.SystemStatus(), byte(c.cfg.QoS), true,
		buildStatusPayload("online", c.cfg.Broker.ClientID, ""))

	c.hookMu.RLock()
	fn := c.hooks.connect
	c.hookMu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) onDown(err error) {
	c.up.Store(false)

	c.hookMu.RLock()
	fn := c.hooks.disconnect
	c.hookMu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

// SetOnConnect registers fn to run after every (re)connect.
func (c *Client) SetOnConnect(fn func()) {
	c.hookMu.Lock()
	c.hooks.connect = fn
	c.hookMu.Unlock()
}

// SetOnDisconnect registers fn to run when the broker link drops.
func (c *Client) SetOnDisconnect(fn func(error)) {
	c.hookMu.Lock()
	c.hooks.disconnect = fn
	c.hookMu.Unlock()
}

// IsConnected reports whether announcements can currently be published.
func (c *Client) IsConnected() bool {
	return c != nil && c.paho != nil && c.up.Load() && c.paho.IsConnected()
}

// HealthCheck returns ErrNotConnected while the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Close replaces the retained status with a graceful offline message and
// disconnects. It is a no-op on a client that never connected.
func (c *Client) Close() error {
	if c == nil || c.paho == nil {
		return nil
	}
	if c.IsConnected() {
		c.paho.Publish(c.topics.SystemStatus(), byte(c.cfg.QoS), true,
			buildStatusPayload("offline", c.cfg.Broker.ClientID, "graceful_shutdown")).
			WaitTimeout(defaultPublishTimeout)
	}
	c.up.Store(false)
	c.paho.Disconnect(defaultDisconnectQuiesce)
	return nil
}
