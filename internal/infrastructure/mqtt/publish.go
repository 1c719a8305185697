package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Publishing errors. Wrapped errors keep the sentinel for errors.Is.
var (
	ErrNotConnected     = errors.New("mqtt: not connected to broker")
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	ErrPublishFailed    = errors.New("mqtt: publish failed")
	ErrInvalidQoS       = errors.New("mqtt: QoS must be 0, 1 or 2")
	ErrInvalidTopic     = errors.New("mqtt: empty topic")
)

// maxPayloadSize caps a single message at 1MB.
const maxPayloadSize = 1 << 20

// Announcement is the JSON envelope on announcement topics.
type Announcement struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

// Announce publishes v under the announcement topic for kind using the
// configured QoS. Announcements are never retained.
func (c *Client) Announce(kind string, v any) error {
	body, err := json.Marshal(Announcement{Kind: kind, Data: v})
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %w", ErrPublishFailed, kind, err)
	}
	return c.Publish(c.topics.Announce(kind), body, byte(c.cfg.QoS), false)
}

// Publish sends payload to topic and waits for the broker to accept it.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case len(payload) > maxPayloadSize:
		return fmt.Errorf("%w: %d byte payload over the %d byte limit", ErrPublishFailed, len(payload), maxPayloadSize)
	case !c.IsConnected():
		return ErrNotConnected
	}

	tok := c.paho.Publish(topic, qos, retained, payload)
	if !tok.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: no ack within %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}
