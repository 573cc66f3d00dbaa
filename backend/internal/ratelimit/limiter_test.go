package ratelimit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	apperrors "digital-twin/backend/pkg/errors"
)

type failingCounter struct{}

func (failingCounter) Increment(context.Context, time.Duration, string) (int64, error) {
	return 0, errors.New("connection refused")
}

func decisionCount(t *testing.T, reg *prometheus.Registry, operation, decision string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != "ratelimit_decisions_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["operation"] == operation && labels["decision"] == decision {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestLimiter_RejectsAfterLimitAndResets(t *testing.T) {
	clock := newFakeClock()
	reg := prometheus.NewRegistry()
	limiter := NewLimiter(NewMemoryCounter(WithClock(clock.Now)), NewMetrics(reg))
	ctx := context.Background()

	policy := Policy{Limit: 5, WindowSeconds: 60, Strategy: PerSubject}
	caller := Caller{Subject: "alice"}

	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Allow(ctx, "write", policy, caller), "call %d", i+1)
	}

	err := limiter.Allow(ctx, "write", policy, caller)
	require.Error(t, err)
	rlErr, ok := apperrors.AsRateLimitExceeded(err)
	require.True(t, ok)
	assert.Equal(t, 60, rlErr.RetryAfterSeconds)
	assert.Equal(t, 5, rlErr.Limit)
	assert.Equal(t, "write", rlErr.Operation)
	assert.True(t, apperrors.IsRetryable(err))

	// other subjects and other operations have their own counters
	assert.NoError(t, limiter.Allow(ctx, "write", policy, Caller{Subject: "bob"}))
	assert.NoError(t, limiter.Allow(ctx, "read", policy, caller))

	clock.Advance(60 * time.Second)
	assert.NoError(t, limiter.Allow(ctx, "write", policy, caller))

	assert.Equal(t, float64(7), decisionCount(t, reg, "write", DecisionAllowed))
	assert.Equal(t, float64(1), decisionCount(t, reg, "write", DecisionRejected))
}

func TestLimiter_UnkeyedCallerIsAdmitted(t *testing.T) {
	reg := prometheus.NewRegistry()
	limiter := NewLimiter(NewMemoryCounter(), NewMetrics(reg))
	policy := Policy{Limit: 1, WindowSeconds: 60, Strategy: PerSourceAddress}

	for i := 0; i < 3; i++ {
		assert.NoError(t, limiter.Allow(context.Background(), "read", policy, Caller{}))
	}
	assert.Equal(t, float64(3), decisionCount(t, reg, "read", DecisionUnkeyed))
}

func TestLimiter_FailsOpen(t *testing.T) {
	reg := prometheus.NewRegistry()
	limiter := NewLimiter(failingCounter{}, NewMetrics(reg))
	policy := Policy{Limit: 1, WindowSeconds: 60, Strategy: Global}

	for i := 0; i < 3; i++ {
		assert.NoError(t, limiter.Allow(context.Background(), "read", policy, Caller{}))
	}
	assert.Equal(t, float64(3), decisionCount(t, reg, "read", DecisionError))
}

func TestLimiter_InvalidPolicy(t *testing.T) {
	limiter := NewLimiter(NewMemoryCounter(), nil)

	err := limiter.Allow(context.Background(), "read", Policy{Limit: 0, WindowSeconds: 60, Strategy: Global}, Caller{})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
}

func TestLimiter_GuardSkipsRejectedCalls(t *testing.T) {
	limiter := NewLimiter(NewMemoryCounter(), nil)
	policy := Policy{Limit: 2, WindowSeconds: 60, Strategy: Global}

	var calls int
	fn := func(context.Context) error {
		calls++
		return nil
	}

	for i := 0; i < 4; i++ {
		_ = limiter.Guard(context.Background(), "traverse", policy, Caller{}, fn)
	}
	assert.Equal(t, 2, calls)
}

func TestLimiter_ConcurrentCallersNeverExceedLimit(t *testing.T) {
	limiter := NewLimiter(NewMemoryCounter(), nil)
	policy := Policy{Limit: 25, WindowSeconds: 60, Strategy: Global}

	var admitted, rejected atomic.Int64
	var g errgroup.Group
	for i := 0; i < 200; i++ {
		g.Go(func() error {
			err := limiter.Allow(context.Background(), "write", policy, Caller{})
			if err == nil {
				admitted.Add(1)
				return nil
			}
			if _, ok := apperrors.AsRateLimitExceeded(err); ok {
				rejected.Add(1)
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(25), admitted.Load())
	assert.Equal(t, int64(175), rejected.Load())
}

func TestLimiter_WithRedisCounter(t *testing.T) {
	mr, counter := newMiniredisCounter(t)
	limiter := NewLimiter(counter, nil)
	ctx := context.Background()
	policy := Policy{Limit: 2, WindowSeconds: 10, Strategy: PerSourceAddress}
	caller := Caller{ForwardedFor: "10.0.0.1, 10.0.0.2"}

	require.NoError(t, limiter.Allow(ctx, "write", policy, caller))
	require.NoError(t, limiter.Allow(ctx, "write", policy, caller))

	_, ok := apperrors.AsRateLimitExceeded(limiter.Allow(ctx, "write", policy, caller))
	assert.True(t, ok)
	assert.True(t, mr.Exists("test:w10:write:ip:10.0.0.1"))

	mr.FastForward(10 * time.Second)
	assert.NoError(t, limiter.Allow(ctx, "write", policy, caller))
}
