package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/boradedesconto/offerfeed/internal/offers"
	"github.com/boradedesconto/offerfeed/internal/scraper"
	"github.com/boradedesconto/offerfeed/logger"
	"github.com/boradedesconto/offerfeed/services/publisher"
)

// ScrapeWorker runs the merchant scrapers on an interval and publishes every
// offer they find, keyed by merchant
type ScrapeWorker struct {
	ctx       context.Context
	scrapers  []scraper.Scraper
	publisher publisher.Publisher
	interval  time.Duration
	log       *logger.Logger
}

// NewScrapeWorker creates a new scrape worker
func NewScrapeWorker(
	ctx context.Context,
	scrapers []scraper.Scraper,
	pub publisher.Publisher,
	interval time.Duration,
) *ScrapeWorker {
	return &ScrapeWorker{
		ctx:       ctx,
		scrapers:  scrapers,
		publisher: pub,
		interval:  interval,
		log:       logger.ForWorker(),
	}
}

// Start scrapes immediately, then every interval until the context is cancelled
func (w *ScrapeWorker) Start() error {
	w.RunOnce()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return nil
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce runs all the scrapers in parallel, then trims the streams. It
// returns the number of offers published.
func (w *ScrapeWorker) RunOnce() int {
	start := time.Now()

	var mu sync.Mutex
	var wg sync.WaitGroup
	total := 0
	for _, s := range w.scrapers {
		s := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := w.scrapeAndPublish(s)
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Trim all streams after scraping
	if err := w.publisher.TrimStreams(w.ctx); err != nil {
		logger.LogError("StreamTrimming", err, "failed to trim scraped offer streams")
	}

	w.log.Debug().
		Dur("elapsed", time.Since(start)).
		Int("published", total).
		Msg("Scrape cycle finished")

	return total
}

// scrapeAndPublish scrapes one merchant and publishes its offers
func (w *ScrapeWorker) scrapeAndPublish(s scraper.Scraper) int {
	found, err := s.Scrape(w.ctx)
	if err != nil {
		logger.LogError(s.GetName(), err, "scrape failed")
		return 0
	}

	published, err := PublishOffers(w.ctx, w.publisher, s.GetMerchant(), found)
	if err != nil {
		logger.LogError(s.GetName(), err, "publishing stopped with %d offers left", len(found)-published)
	}

	// Log only the first offer for each merchant
	if len(found) > 0 && logger.IsDebugEnabled() {
		if data, err := json.Marshal(found[0]); err == nil {
			w.log.Debug().
				Str("merchant", s.GetMerchant()).
				RawJSON("offer", data).
				Msg("Scraped offer")
		}
	}

	logger.LogInfo(s.GetName(), "published %d of %d scraped offers", published, len(found))
	return published
}

// PublishOffers publishes each offer under merchant and returns how many were
// published. It stops at the first failure.
func PublishOffers(ctx context.Context, pub publisher.Publisher, merchant string, found []offers.Offer) (int, error) {
	for i, o := range found {
		data, err := json.Marshal(o)
		if err != nil {
			return i, err
		}
		if err := pub.Publish(ctx, merchant, data); err != nil {
			return i, err
		}
	}
	return len(found), nil
}
