package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	defaultWindow = time.Minute
	sweepInterval = 5 * time.Minute
)

// Limiter counts requests per key within a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) Decision
	Close() error
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Count     int
	Limit     int
	WindowEnd time.Time
}

// Remaining returns how many requests are left in the current window.
func (d Decision) Remaining() int {
	if r := d.Limit - d.Count; r > 0 {
		return r
	}
	return 0
}

// Memory is an in-process Limiter. Expired windows are swept periodically.
type Memory struct {
	mu      sync.Mutex
	entries map[string]window
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

type window struct {
	count int
	end   time.Time
}

// NewMemory creates an in-process limiter and starts its sweeper.
func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]window),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Allow records a request for key and reports whether it is within limit.
// A non-positive limit disables limiting.
func (m *Memory) Allow(_ context.Context, key string, limit int, win time.Duration) Decision {
	if limit <= 0 {
		return Decision{Allowed: true}
	}
	if win <= 0 {
		win = defaultWindow
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.entries[key]
	if !ok || !now.Before(w.end) {
		w = window{count: 1, end: now.Add(win)}
		m.entries[key] = w
		return Decision{Allowed: true, Count: 1, Limit: limit, WindowEnd: w.end}
	}
	if w.count >= limit {
		return Decision{Allowed: false, Count: w.count, Limit: limit, WindowEnd: w.end}
	}
	w.count++
	m.entries[key] = w
	return Decision{Allowed: true, Count: w.count, Limit: limit, WindowEnd: w.end}
}

func (m *Memory) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Memory) sweep() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, w := range m.entries {
		if !now.Before(w.end) {
			delete(m.entries, key)
		}
	}
}

// Close stops the sweeper. It is safe to call more than once.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stopCh) })
	return nil
}
