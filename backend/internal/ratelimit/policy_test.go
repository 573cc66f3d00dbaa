package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "digital-twin/backend/pkg/errors"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want Policy
	}{
		{in: "5/300/ip", want: Policy{Limit: 5, WindowSeconds: 300, Strategy: PerSourceAddress}},
		{in: "3/3600/address", want: Policy{Limit: 3, WindowSeconds: 3600, Strategy: PerSourceAddress}},
		{in: "10/60/subject", want: Policy{Limit: 10, WindowSeconds: 60, Strategy: PerSubject}},
		{in: "10/60/USER", want: Policy{Limit: 10, WindowSeconds: 60, Strategy: PerSubject}},
		{in: " 1/1/global ", want: Policy{Limit: 1, WindowSeconds: 1, Strategy: Global}},
		{in: "7/30", want: Policy{Limit: 7, WindowSeconds: 30, Strategy: PerSubject}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, 300*time.Second, Policy{WindowSeconds: 300}.Window())
}

func TestParsePolicy_Invalid(t *testing.T) {
	for _, in := range []string{"", "5", "x/60", "5/y", "0/60", "5/0", "-1/60", "5/60/team", "1/2/3/4"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParsePolicy(in)
			assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation), "got %v", err)
		})
	}
}

func TestCallerKey(t *testing.T) {
	tests := []struct {
		name     string
		caller   Caller
		strategy KeyStrategy
		want     string
	}{
		{
			name:     "subject wins",
			caller:   Caller{Subject: "alice", ForwardedFor: "1.1.1.1", RemoteAddr: "9.9.9.9"},
			strategy: PerSubject,
			want:     "alice",
		},
		{
			name:     "anonymous subject falls back to address",
			caller:   Caller{RealIP: "2.2.2.2", RemoteAddr: "9.9.9.9"},
			strategy: PerSubject,
			want:     "2.2.2.2",
		},
		{
			name:     "first forwarded hop",
			caller:   Caller{Subject: "alice", ForwardedFor: " 1.1.1.1 , 3.3.3.3", RealIP: "2.2.2.2"},
			strategy: PerSourceAddress,
			want:     "1.1.1.1",
		},
		{
			name:     "empty forwarded hop skipped",
			caller:   Caller{ForwardedFor: " , 3.3.3.3", RealIP: "2.2.2.2"},
			strategy: PerSourceAddress,
			want:     "2.2.2.2",
		},
		{
			name:     "transport address last",
			caller:   Caller{RemoteAddr: "9.9.9.9"},
			strategy: PerSourceAddress,
			want:     "9.9.9.9",
		},
		{
			name:     "global",
			caller:   Caller{Subject: "alice"},
			strategy: Global,
			want:     "global",
		},
		{
			name:     "nothing to key on",
			caller:   Caller{},
			strategy: PerSubject,
			want:     "",
		},
		{
			name:     "unknown strategy",
			caller:   Caller{Subject: "alice"},
			strategy: KeyStrategy("team"),
			want:     "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.caller.Key(tt.strategy))
		})
	}
}
