package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boradedesconto/offerfeed/pkg/errors"
)

// This test requires a running memcached instance
// If memcached is not available, the test will be skipped
func TestMemcacheService(t *testing.T) {
	mc := NewMemcacheService("localhost:11211", "offerfeed_test:")

	if err := mc.Ping(); err != nil {
		t.Skip("Memcached is not available, skipping test")
	}

	// Set a value
	err := mc.Set("rate_limited", []byte("300"), 2*time.Second)
	assert.NoError(t, err)

	// Get the value
	value, err := mc.Get("rate_limited")
	assert.NoError(t, err)
	assert.Equal(t, "300", string(value))

	// Missing keys map to ErrMiss
	_, err = mc.Get("never_set")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemcacheServiceUnreachable(t *testing.T) {
	// Nothing listens on the discard port
	mc := NewMemcacheService("127.0.0.1:9", "offerfeed_test:")

	err := mc.Ping()
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeCache, errors.TypeOf(err))

	_, err = mc.Get("rate_limited")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
	assert.Equal(t, errors.ErrorTypeCache, errors.TypeOf(err))

	err = mc.Set("rate_limited", []byte("300"), time.Second)
	assert.Equal(t, errors.ErrorTypeCache, errors.TypeOf(err))
}
