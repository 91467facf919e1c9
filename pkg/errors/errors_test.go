package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOfferErrorMessage(t *testing.T) {
	err := NewTransport("client", "failed to fetch offers", errors.New("connection refused"))
	assert.Equal(t, "[transport] client: failed to fetch offers - connection refused", err.Error())

	err = NewValidation("client", "days must be between 1 and 365")
	assert.Equal(t, "[validation] client: days must be between 1 and 365", err.Error())
}

func TestOfferErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewMalformed("client", "invalid body", cause)
	assert.True(t, errors.Is(err, cause))
}

func TestTypeOfWrapped(t *testing.T) {
	err := fmt.Errorf("cycle 3: %w", NewRateLimit("client", "60"))
	assert.Equal(t, ErrorTypeRateLimit, TypeOf(err))
	assert.True(t, IsRateLimit(err))
	assert.False(t, IsTransport(err))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, NewTransport("c", "m", nil).IsRetryable())
	assert.False(t, NewRateLimit("c", "").IsRetryable())
	assert.False(t, NewMalformed("c", "m", nil).IsRetryable())
}
