package offers

import (
	"context"

	"github.com/boradedesconto/offerfeed/logger"
)

// DefaultStatsDays is the click statistics window used when none is chosen
const DefaultStatsDays = 30

// StatsResult is the click statistics view. Unlike offers there is no
// fallback: a failed request leaves Stats empty and sets IsError.
type StatsResult struct {
	Stats   []ClickStat `json:"stats"`
	Days    int         `json:"days"`
	IsError bool        `json:"is_error"`
}

// StatsLoader loads click statistics through a StatsFetcher
type StatsLoader struct {
	fetcher StatsFetcher
	log     *logger.Logger
}

// NewStatsLoader creates a loader backed by f
func NewStatsLoader(f StatsFetcher) *StatsLoader {
	return &StatsLoader{
		fetcher: f,
		log:     logger.ForClient(),
	}
}

// Load fetches click statistics for the last days days. days <= 0 selects
// DefaultStatsDays; offerID 0 means every offer.
func (l *StatsLoader) Load(ctx context.Context, days int, offerID int64) StatsResult {
	if days <= 0 {
		days = DefaultStatsDays
	}

	stats, err := l.fetcher.FetchClickStats(ctx, days, offerID)
	if err != nil {
		l.log.Error().
			Err(err).
			Int("days", days).
			Int64("offer_id", offerID).
			Msg("Failed to load click stats")
		return StatsResult{Stats: []ClickStat{}, Days: days, IsError: true}
	}

	return StatsResult{Stats: stats, Days: days}
}

// TotalClicks sums the click counts
func (r StatsResult) TotalClicks() int {
	total := 0
	for _, s := range r.Stats {
		total += s.ClickCount
	}
	return total
}
