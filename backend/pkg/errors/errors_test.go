package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsErrorType_WalksWrapChain(t *testing.T) {
	err := fmt.Errorf("create link: %w", NewReference(KindObject, "abc"))

	assert.True(t, IsErrorType(err, ErrorTypeReference))
	assert.False(t, IsErrorType(err, ErrorTypeGraph))
	assert.True(t, IsReference(err))
}

func TestGraphQueryFailed_UnwrapsDriverError(t *testing.T) {
	driverErr := stderrors.New("connection reset")
	err := NewGraphQueryFailed("get object", driverErr)

	assert.ErrorIs(t, err, driverErr)
	assert.True(t, IsErrorType(err, ErrorTypeGraph))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestRateLimitExceeded(t *testing.T) {
	err := fmt.Errorf("guard: %w", NewRateLimitExceeded("write", "subject:alice", 5, 60))

	rl, ok := AsRateLimitExceeded(err)
	assert.True(t, ok)
	assert.Equal(t, 60, rl.RetryAfterSeconds)
	assert.Equal(t, 5, rl.Limit)
	assert.True(t, IsRetryable(err))
	assert.False(t, IsRetryable(NewReference(KindLink, "x")))
}

func TestNilIsNoType(t *testing.T) {
	assert.False(t, IsErrorType(nil, ErrorTypeReference))
	_, ok := AsRateLimitExceeded(nil)
	assert.False(t, ok)
}
