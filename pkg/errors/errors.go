package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrClosed is returned when waiting on a source that has been closed
var ErrClosed = errors.New("offers: source closed")

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeTransport represents network failures and non-2xx responses
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeMalformed represents response bodies missing data or count
	ErrorTypeMalformed ErrorType = "malformed"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeUnrecoverable represents a missing or corrupt fallback dataset
	ErrorTypeUnrecoverable ErrorType = "unrecoverable"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// OfferError represents an error raised while loading offers or stats
type OfferError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *OfferError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *OfferError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if a later attempt could succeed
func (e *OfferError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeTransport:
		return true
	case ErrorTypeRateLimit:
		return false
	case ErrorTypeMalformed:
		return false
	default:
		return false
	}
}

// TypeOf returns the ErrorType of err, or "" if err is not an OfferError
func TypeOf(err error) ErrorType {
	var oe *OfferError
	if errors.As(err, &oe) {
		return oe.Type
	}
	return ""
}

// IsRateLimit reports whether err is a rate limit error
func IsRateLimit(err error) bool {
	return TypeOf(err) == ErrorTypeRateLimit
}

// IsMalformed reports whether err is a malformed response error
func IsMalformed(err error) bool {
	return TypeOf(err) == ErrorTypeMalformed
}

// IsTransport reports whether err is a transport error
func IsTransport(err error) bool {
	return TypeOf(err) == ErrorTypeTransport
}

// New creates a new OfferError
func New(errType ErrorType, source, message string, err error) *OfferError {
	return &OfferError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewTransport creates a new transport error
func NewTransport(source, message string, err error) *OfferError {
	return New(ErrorTypeTransport, source, message, err)
}

// NewMalformed creates a new malformed response error
func NewMalformed(source, message string, err error) *OfferError {
	return New(ErrorTypeMalformed, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, retryAfter string) *OfferError {
	message := "rate limited"
	if retryAfter != "" {
		message = fmt.Sprintf("rate limited; retry after %s", retryAfter)
	}
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewUnrecoverable creates a new unrecoverable state error
func NewUnrecoverable(source, message string, err error) *OfferError {
	return New(ErrorTypeUnrecoverable, source, message, err)
}

// NewCache creates a new cache error
func NewCache(source, message string, err error) *OfferError {
	return New(ErrorTypeCache, source, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(source, message string, err error) *OfferError {
	return New(ErrorTypePublisher, source, message, err)
}

// NewValidation creates a new validation error
func NewValidation(source, message string) *OfferError {
	return New(ErrorTypeValidation, source, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *OfferError {
	return New(ErrorTypeConfiguration, "", message, err)
}
