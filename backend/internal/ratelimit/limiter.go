package ratelimit

import (
	"context"

	"go.uber.org/zap"

	apperrors "digital-twin/backend/pkg/errors"
	"digital-twin/backend/pkg/logger"
)

// Limiter gates operations with fixed-window counters
type Limiter struct {
	counter Counter
	metrics *Metrics
	logger  *zap.Logger
}

// NewLimiter creates a limiter over counter; metrics may be nil
func NewLimiter(counter Counter, metrics *Metrics) *Limiter {
	return &Limiter{
		counter: counter,
		metrics: metrics,
		logger:  logger.Named("ratelimit"),
	}
}

// Allow counts one call of operation by caller. It returns nil when the call
// is admitted and *errors.ErrRateLimitExceeded when the post-increment count
// exceeds the policy limit. A caller that yields no key is admitted without
// counting. Counter failures admit the call.
func (l *Limiter) Allow(ctx context.Context, operation string, policy Policy, caller Caller) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	key := caller.Key(policy.Strategy)
	if key == "" {
		l.metrics.observe(operation, DecisionUnkeyed)
		return nil
	}

	count, err := l.counter.Increment(ctx, policy.Window(), counterKey(operation, policy.Strategy, key))
	if err != nil {
		l.logger.Error("Rate limit counter failed, allowing request",
			zap.String("operation", operation),
			zap.String("key", key),
			zap.Error(err),
		)
		l.metrics.observe(operation, DecisionError)
		return nil
	}

	if count > int64(policy.Limit) {
		l.logger.Warn("Rate limit exceeded",
			zap.String("operation", operation),
			zap.String("strategy", string(policy.Strategy)),
			zap.String("key", key),
			zap.Int64("count", count),
			zap.Int("limit", policy.Limit),
		)
		l.metrics.observe(operation, DecisionRejected)
		return apperrors.NewRateLimitExceeded(operation, key, policy.Limit, policy.WindowSeconds)
	}

	l.metrics.observe(operation, DecisionAllowed)
	return nil
}

// Guard runs fn only when Allow admits the call
func (l *Limiter) Guard(ctx context.Context, operation string, policy Policy, caller Caller, fn func(context.Context) error) error {
	if err := l.Allow(ctx, operation, policy, caller); err != nil {
		return err
	}
	return fn(ctx)
}

func counterKey(operation string, strategy KeyStrategy, key string) string {
	return operation + ":" + string(strategy) + ":" + key
}
