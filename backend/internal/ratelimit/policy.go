package ratelimit

import (
	"strconv"
	"strings"
	"time"

	apperrors "digital-twin/backend/pkg/errors"
)

// KeyStrategy selects how a caller is mapped to a counter key
type KeyStrategy string

const (
	// PerSubject keys by authenticated identity, falling back to the source address
	PerSubject KeyStrategy = "subject"
	// PerSourceAddress keys by the client address
	PerSourceAddress KeyStrategy = "ip"
	// Global shares one counter between all callers
	Global KeyStrategy = "global"
)

const globalKey = "global"

// ParseKeyStrategy accepts the canonical names plus a few aliases
func ParseKeyStrategy(s string) (KeyStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "subject", "user", "per_subject":
		return PerSubject, nil
	case "ip", "address", "source", "per_source_address":
		return PerSourceAddress, nil
	case "global":
		return Global, nil
	}
	return "", apperrors.NewInvalidArgument("strategy", "unknown key strategy "+strconv.Quote(s))
}

// Policy is the static limit attached to one guarded operation
type Policy struct {
	Limit         int
	WindowSeconds int
	Strategy      KeyStrategy
}

// DefaultPolicy allows 10 calls per minute per subject
var DefaultPolicy = Policy{Limit: 10, WindowSeconds: 60, Strategy: PerSubject}

// Validate checks that the policy can be enforced
func (p Policy) Validate() error {
	if p.Limit <= 0 {
		return apperrors.NewInvalidArgument("limit", "must be positive")
	}
	if p.WindowSeconds <= 0 {
		return apperrors.NewInvalidArgument("windowSeconds", "must be positive")
	}
	if _, err := ParseKeyStrategy(string(p.Strategy)); err != nil {
		return err
	}
	return nil
}

// Window returns the window length as a duration
func (p Policy) Window() time.Duration {
	return time.Duration(p.WindowSeconds) * time.Second
}

// ParsePolicy reads "limit/windowSeconds/strategy", e.g. "5/300/ip". The
// strategy part may be omitted and defaults to subject.
func ParsePolicy(s string) (Policy, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) < 2 || len(parts) > 3 {
		return Policy{}, apperrors.NewInvalidArgument("policy", "expected limit/windowSeconds[/strategy], got "+strconv.Quote(s))
	}

	limit, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Policy{}, apperrors.NewInvalidArgument("limit", "not an integer: "+parts[0])
	}
	window, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Policy{}, apperrors.NewInvalidArgument("windowSeconds", "not an integer: "+parts[1])
	}

	strategy := PerSubject
	if len(parts) == 3 {
		if strategy, err = ParseKeyStrategy(parts[2]); err != nil {
			return Policy{}, err
		}
	}

	p := Policy{Limit: limit, WindowSeconds: window, Strategy: strategy}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Caller carries the identity and address facts a key is derived from.
// Subject is empty for anonymous calls.
type Caller struct {
	Subject      string
	ForwardedFor string
	RealIP       string
	RemoteAddr   string
}

// Key derives the counter key for strategy. An empty result means the caller
// cannot be keyed.
func (c Caller) Key(strategy KeyStrategy) string {
	switch strategy {
	case PerSubject:
		if s := strings.TrimSpace(c.Subject); s != "" {
			return s
		}
		return c.SourceAddress()
	case PerSourceAddress:
		return c.SourceAddress()
	case Global:
		return globalKey
	}
	return ""
}

// SourceAddress picks the first X-Forwarded-For hop, then X-Real-IP, then
// the transport address.
func (c Caller) SourceAddress() string {
	if c.ForwardedFor != "" {
		first, _, _ := strings.Cut(c.ForwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(c.RealIP); ip != "" {
		return ip
	}
	return strings.TrimSpace(c.RemoteAddr)
}
