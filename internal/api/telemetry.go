package api

import (
	"sync"

	"github.com/nerrad567/campus-portal/internal/infrastructure/influxdb"
)

// authMetrics counts auth outcomes in-process for /metrics.
type authMetrics struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newAuthMetrics() *authMetrics {
	return &authMetrics{counts: make(map[string]int64)}
}

func (m *authMetrics) inc(action, outcome string) {
	m.mu.Lock()
	m.counts[action+"."+outcome]++
	m.mu.Unlock()
}

// snapshot returns a copy of the counters keyed "action.outcome".
func (m *authMetrics) snapshot() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out
}

// recordAuth counts e locally and forwards it to InfluxDB when configured.
func (s *Server) recordAuth(e influxdb.AuthEvent) {
	s.metrics.inc(e.Action, e.Outcome)
	if s.telemetry != nil {
		s.telemetry.WriteAuthEvent(e)
	}
}
