package offers

import (
	"context"
	"sync"
	"time"

	"github.com/boradedesconto/offerfeed/services/cache"
)

// fetchFunc adapts a function to the Fetcher interface
type fetchFunc func(ctx context.Context, f Filters) (Page, error)

func (fn fetchFunc) FetchOffers(ctx context.Context, f Filters) (Page, error) {
	return fn(ctx, f)
}

// statsFunc adapts a function to the StatsFetcher interface
type statsFunc func(ctx context.Context, days int, offerID int64) ([]ClickStat, error)

func (fn statsFunc) FetchClickStats(ctx context.Context, days int, offerID int64) ([]ClickStat, error) {
	return fn(ctx, days, offerID)
}

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	mu    sync.Mutex
	cache map[string][]byte
	ttls  map[string]time.Duration
}

// Ensure MockCacheService implements cache.CacheService
var _ cache.CacheService = (*MockCacheService)(nil)

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
		ttls:  make(map[string]time.Duration),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, cache.ErrMiss
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = value
	m.ttls[key] = expiration
	return nil
}

// expire drops key as if its TTL ran out
func (m *MockCacheService) expire(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
	delete(m.ttls, key)
}

func amazonOffer(id int64, discount int) Offer {
	return Offer{
		ID:          id,
		Merchant:    "amazon",
		ExternalID:  "B123456789",
		Title:       "Produto teste",
		URL:         "https://amazon.com.br/produto",
		Price:       99.99,
		DiscountPct: discount,
		TS:          NewTimestamp(time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)),
	}
}
