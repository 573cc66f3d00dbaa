package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeReference represents a missing object or link where one is required
	ErrorTypeReference ErrorType = "reference"
	// ErrorTypeSerialization represents a property payload that cannot round-trip
	ErrorTypeSerialization ErrorType = "serialization"
	// ErrorTypeRateLimit represents a caller exceeding its quota
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeValidation represents malformed caller input
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// ErrorType reports the category, used by IsErrorType.
func (e *BaseError) ErrorType() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Reference Errors

// Reference kinds
const (
	KindObject = "object"
	KindLink   = "link"
)

// ErrReference is returned when an operation names an object or link that does not exist
type ErrReference struct {
	*BaseError
	Kind string
	ID   string
}

func NewReference(kind, id string) *ErrReference {
	return &ErrReference{
		BaseError: NewBaseError(ErrorTypeReference, fmt.Sprintf("%s not found: %s", kind, id), nil),
		Kind:      kind,
		ID:        id,
	}
}

// Serialization Errors

// ErrSerialization is returned when a property payload cannot be encoded or decoded.
// It signals a data-integrity defect and is never retried.
type ErrSerialization struct {
	*BaseError
}

func NewSerialization(message string, err error) *ErrSerialization {
	return &ErrSerialization{
		BaseError: NewBaseError(ErrorTypeSerialization, message, err),
	}
}

// Rate Limit Errors

// ErrRateLimitExceeded is returned when a caller exceeds the quota of an operation
type ErrRateLimitExceeded struct {
	*BaseError
	Operation         string
	Key               string
	Limit             int
	RetryAfterSeconds int
}

func NewRateLimitExceeded(operation, key string, limit, retryAfterSeconds int) *ErrRateLimitExceeded {
	return &ErrRateLimitExceeded{
		BaseError: NewBaseError(ErrorTypeRateLimit,
			fmt.Sprintf("rate limit exceeded for %s, retry after %ds", operation, retryAfterSeconds), nil),
		Operation:         operation,
		Key:               key,
		Limit:             limit,
		RetryAfterSeconds: retryAfterSeconds,
	}
}

// Graph Errors

// ErrGraphConnectionFailed is returned when Neo4j connection fails
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// ErrGraphQueryFailed is returned when a graph query fails
type ErrGraphQueryFailed struct {
	*BaseError
	Query string
}

func NewGraphQueryFailed(query string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("query failed: %s", query), err),
		Query:     query,
	}
}

// Validation Errors

// ErrInvalidArgument is returned when caller input is malformed
type ErrInvalidArgument struct {
	*BaseError
	Field  string
	Reason string
}

func NewInvalidArgument(field, reason string) *ErrInvalidArgument {
	return &ErrInvalidArgument{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

type typedError interface {
	ErrorType() ErrorType
}

// IsErrorType checks if an error, or anything it wraps, is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if te, ok := err.(typedError); ok && te.ErrorType() == errType {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsReference reports whether err is a missing object/link error
func IsReference(err error) bool {
	var refErr *ErrReference
	return stderrors.As(err, &refErr)
}

// AsRateLimitExceeded extracts a rate limit rejection from err
func AsRateLimitExceeded(err error) (*ErrRateLimitExceeded, bool) {
	var rlErr *ErrRateLimitExceeded
	if stderrors.As(err, &rlErr) {
		return rlErr, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable by the caller.
// Only quota rejections are; the core itself never retries.
func IsRetryable(err error) bool {
	return IsErrorType(err, ErrorTypeRateLimit)
}
