package offers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/boradedesconto/offerfeed/logger"
	"github.com/boradedesconto/offerfeed/pkg/errors"
	"github.com/boradedesconto/offerfeed/services/cache"
)

// Guard stops requests to a remote (the offers API, a merchant site) for a
// while after it answered with a rate limit. The block is a cache key with a TTL, so it is shared by every
// process using the same cache.
type Guard struct {
	cache     cache.CacheService
	key       string
	blockTime time.Duration
	log       *logger.Logger
}

// NewGuard creates a guard storing its block under key for blockTime
func NewGuard(c cache.CacheService, key string, blockTime time.Duration) *Guard {
	return &Guard{
		cache:     c,
		key:       key,
		blockTime: blockTime,
		log:       logger.ForGuard(),
	}
}

// Check returns a rate limit error while the block is active. Cache failures
// never block.
func (g *Guard) Check() error {
	if g == nil || g.cache == nil {
		return nil
	}
	if _, err := g.cache.Get(g.key); err != nil {
		return nil
	}
	return errors.NewRateLimit("guard", fmt.Sprintf("%ds", int(g.blockTime/time.Second)))
}

// Observe records the outcome of a request, starting a block on rate limits
func (g *Guard) Observe(err error) {
	if g == nil || g.cache == nil || !errors.IsRateLimit(err) {
		return
	}

	seconds := strconv.Itoa(int(g.blockTime / time.Second))
	if setErr := g.cache.Set(g.key, []byte(seconds), g.blockTime); setErr != nil {
		g.log.Warn().Err(setErr).Msg("Failed to store rate limit block")
		return
	}
	g.log.Warn().
		Str("key", g.key).
		Str("block", seconds+"s").
		Msg("Rate limited; requests paused")
}
