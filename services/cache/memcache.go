package cache

import (
	stderrors "errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/boradedesconto/offerfeed/pkg/errors"
)

// MemcacheService implements CacheService using memcache. Keys are namespaced
// with a prefix so several deployments can share one memcached.
type MemcacheService struct {
	client *memcache.Client
	prefix string
}

// NewMemcacheService creates a new memcache service
func NewMemcacheService(serverAddr, prefix string) *MemcacheService {
	client := memcache.New(serverAddr)
	client.Timeout = 500 * time.Millisecond

	return &MemcacheService{
		client: client,
		prefix: prefix,
	}
}

// Ping checks that the memcached server answers
func (m *MemcacheService) Ping() error {
	if err := m.client.Ping(); err != nil {
		return errors.NewCache("memcache", "ping failed", err)
	}
	return nil
}

// Get retrieves a value from memcache
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(m.prefix + key)
	if stderrors.Is(err, memcache.ErrCacheMiss) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, errors.NewCache("memcache", "get "+key, err)
	}
	return item.Value, nil
}

// Set stores a value in memcache. Expirations under one second are rounded up
// since memcache treats 0 as "never expires".
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	seconds := int32(expiration / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	err := m.client.Set(&memcache.Item{
		Key:        m.prefix + key,
		Value:      value,
		Expiration: seconds,
	})
	if err != nil {
		return errors.NewCache("memcache", "set "+key, err)
	}
	return nil
}
