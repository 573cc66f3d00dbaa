package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "digital-twin/backend/pkg/errors"
	"digital-twin/backend/pkg/logger"
)

// Counter is a fixed-window counter store. Increment atomically adds one to
// key and returns the post-increment count. The count resets window after
// the first increment of the current window. Each distinct window length
// keeps its own keyspace.
type Counter interface {
	Increment(ctx context.Context, window time.Duration, key string) (int64, error)
}

// MemoryCounter is a process-local Counter. Expired counters are treated as
// absent on access and reaped by Sweep.
type MemoryCounter struct {
	tables sync.Map // time.Duration -> *sync.Map of key -> *windowCounter
	now    func() time.Time
	logger *zap.Logger
}

type windowCounter struct {
	mu        sync.Mutex
	count     int64
	expiresAt time.Time
	dead      bool // reaped; callers must fetch a fresh counter
}

// MemoryOption configures a MemoryCounter
type MemoryOption func(*MemoryCounter)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryCounter) {
		m.now = now
	}
}

// NewMemoryCounter creates an empty in-process counter store
func NewMemoryCounter(opts ...MemoryOption) *MemoryCounter {
	m := &MemoryCounter{
		now:    time.Now,
		logger: logger.Named("ratelimit.memory"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryCounter) Increment(ctx context.Context, window time.Duration, key string) (int64, error) {
	if window <= 0 {
		return 0, apperrors.NewInvalidArgument("window", "must be positive")
	}
	table := m.table(window)

	for {
		c := loadCounter(table, key)

		c.mu.Lock()
		if c.dead {
			c.mu.Unlock()
			continue
		}
		now := m.now()
		if c.count == 0 || !now.Before(c.expiresAt) {
			c.count = 0
			c.expiresAt = now.Add(window)
		}
		c.count++
		n := c.count
		c.mu.Unlock()

		return n, nil
	}
}

// Sweep removes counters whose window has elapsed and returns how many
// were removed.
func (m *MemoryCounter) Sweep() int {
	now := m.now()
	removed := 0

	m.tables.Range(func(_, v any) bool {
		table := v.(*sync.Map)
		table.Range(func(key, v any) bool {
			c := v.(*windowCounter)
			c.mu.Lock()
			if c.count > 0 && !now.Before(c.expiresAt) {
				c.dead = true
				table.CompareAndDelete(key, c)
				removed++
			}
			c.mu.Unlock()
			return true
		})
		return true
	})
	return removed
}

// Run sweeps every interval until ctx is done
func (m *MemoryCounter) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("Swept expired counters", zap.Int("removed", n))
			}
		}
	}
}

// Len returns the number of live counter records across all windows
func (m *MemoryCounter) Len() int {
	n := 0
	m.tables.Range(func(_, v any) bool {
		v.(*sync.Map).Range(func(_, _ any) bool {
			n++
			return true
		})
		return true
	})
	return n
}

func (m *MemoryCounter) table(window time.Duration) *sync.Map {
	if t, ok := m.tables.Load(window); ok {
		return t.(*sync.Map)
	}
	t, _ := m.tables.LoadOrStore(window, &sync.Map{})
	return t.(*sync.Map)
}

func loadCounter(table *sync.Map, key string) *windowCounter {
	if c, ok := table.Load(key); ok {
		return c.(*windowCounter)
	}
	c, _ := table.LoadOrStore(key, &windowCounter{})
	return c.(*windowCounter)
}
