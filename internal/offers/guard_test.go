package offers

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/boradedesconto/offerfeed/logger"
	"github.com/boradedesconto/offerfeed/pkg/errors"
)

func TestGuard(t *testing.T) {
	mockCache := NewMockCacheService()
	guard := NewGuard(mockCache, "offers_rate_limited", 300*time.Second)

	assert.NoError(t, guard.Check())

	// Non rate limit errors do not block
	guard.Observe(stderrors.New("connection reset"))
	guard.Observe(nil)
	assert.NoError(t, guard.Check())

	guard.Observe(errors.NewRateLimit("http", "60"))
	err := guard.Check()
	assert.True(t, errors.IsRateLimit(err))
	assert.Equal(t, "300", string(mockCache.cache["offers_rate_limited"]))
	assert.Equal(t, 300*time.Second, mockCache.ttls["offers_rate_limited"])

	// Block expires with the cache key
	mockCache.expire("offers_rate_limited")
	assert.NoError(t, guard.Check())
}

func TestGuardNil(t *testing.T) {
	var guard *Guard
	assert.NoError(t, guard.Check())
	guard.Observe(errors.NewRateLimit("http", ""))
}

func TestSourceWithGuard(t *testing.T) {
	var calls atomic.Int32
	fetcher := fetchFunc(func(ctx context.Context, f Filters) (Page, error) {
		calls.Add(1)
		return Page{}, errors.NewRateLimit("http", "60")
	})

	mockCache := NewMockCacheService()
	guard := NewGuard(mockCache, "offers_rate_limited", time.Minute)

	s := NewSource(fetcher, Filters{Merchant: "aliexpress"}, WithGuard(guard), WithLogger(logger.Nop()))
	defer s.Close()

	res := waitResult(t, s)
	assert.True(t, res.UsedMockData)
	assert.Equal(t, int32(1), calls.Load())

	// Blocked: the next cycle goes straight to fallback data
	s.Refresh()
	res = waitResult(t, s)
	assert.True(t, res.UsedMockData)
	assert.False(t, res.IsError)
	assert.Equal(t, DefaultDataset().Filter(Filters{Merchant: "aliexpress"}), res.Offers)
	assert.Equal(t, int32(1), calls.Load())
}
