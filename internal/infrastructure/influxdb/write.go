package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementAuthEvents is the measurement auth telemetry is written to.
const MeasurementAuthEvents = "auth_events"

// AuthEvent describes a single authentication outcome.
//
// Outcome values used by the API: success, invalid_credentials, role_mismatch,
// email_exists, validation_error, token_missing, token_expired, token_invalid,
// user_not_found, forbidden, rate_limited.
type AuthEvent struct {
	Action  string // register, login, authenticate, authorize
	Outcome string
	Role    string // empty when unknown
	Route   string // optional, authorize only
	Time    time.Time
}

func authEventPoint(e AuthEvent) *write.Point {
	tags := map[string]string{
		"action":  e.Action,
		"outcome": e.Outcome,
	}
	if e.Role != "" {
		tags["role"] = e.Role
	}
	if e.Route != "" {
		tags["route"] = e.Route
	}
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return write.NewPoint(MeasurementAuthEvents, tags, map[string]any{"count": 1}, ts)
}

// WriteAuthEvent queues an auth_events point. It is a no-op when disconnected.
func (c *Client) WriteAuthEvent(e AuthEvent) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(authEventPoint(e))
}
