package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/boradedesconto/offerfeed/config"
	"github.com/boradedesconto/offerfeed/helpers"
	"github.com/boradedesconto/offerfeed/internal/offers"
	"github.com/boradedesconto/offerfeed/internal/scraper"
	"github.com/boradedesconto/offerfeed/logger"
	"github.com/boradedesconto/offerfeed/services/cache"
	"github.com/boradedesconto/offerfeed/services/publisher"
	"github.com/boradedesconto/offerfeed/services/worker"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const rateLimitKey = "offers_rate_limited"

func main() {
	merchant := flag.String("merchant", "", "Only offers from this merchant (amazon, mercadolivre, aliexpress, ...)")
	minDiscount := flag.Int("min-discount", 0, "Minimum discount percentage")
	days := flag.Int("days", 0, "Click stats window in days (default STATS_DAYS)")
	offerID := flag.Int64("offer-id", 0, "Restrict click stats to one offer")
	watch := flag.Bool("watch", false, "Keep refreshing and publishing snapshots")
	scrape := flag.Bool("scrape", false, "Scrape merchant listings (with -watch: every SCRAPE_INTERVAL_SECONDS)")
	flag.Parse()

	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	fallback := offers.DefaultDataset()
	if cfg.FallbackFile != "" {
		ds, err := offers.LoadDataset(cfg.FallbackFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid fallback dataset")
		}
		fallback = ds
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("api", cfg.APIBaseURL).
		Msg("Starting offerfeed")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
	}()

	services := initializeServices(ctx, cfg)
	defer services.Cleanup()

	var scrapers []scraper.Scraper
	if *scrape {
		scrapers = scraper.CreateScrapers(cfg, helpers.NewHTTPClient(cfg.RequestTimeout), services.Cache)
		if !*watch {
			scrapeOnce(ctx, scrapers, services.ScrapePublisher)
			return
		}
	}

	client := offers.NewClient(cfg.APIBaseURL, helpers.NewHTTPClient(cfg.RequestTimeout))
	filters := offers.Filters{Merchant: *merchant, MinDiscount: *minDiscount}

	source := offers.NewSource(client, filters,
		offers.WithFallback(fallback),
		offers.WithGuard(offers.NewGuard(services.Cache, rateLimitKey, cfg.RateLimitBlock)),
		offers.WithTimeout(cfg.RequestTimeout),
	)
	defer source.Close()

	if *watch {
		if services.Publisher == nil {
			log.Fatal().Msg("Watch mode needs Redis to publish snapshots")
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Info().Dur("interval", cfg.RefreshInterval).Msg("Starting refresh worker")
			return worker.NewWorker(gctx, source, services.Publisher, cfg.RefreshInterval).Start()
		})
		if len(scrapers) > 0 {
			g.Go(func() error {
				log.Info().
					Int("scrapers", len(scrapers)).
					Dur("interval", cfg.ScrapeInterval).
					Msg("Starting scrape worker")
				return worker.NewScrapeWorker(gctx, scrapers, services.ScrapePublisher, cfg.ScrapeInterval).Start()
			})
		}
		if err := g.Wait(); err != nil {
			log.Error().Err(err).Msg("Worker exited with error")
		}
		log.Info().Msg("Shutting down gracefully...")
		return
	}

	statsDays := *days
	if statsDays == 0 {
		statsDays = cfg.StatsDays
	}

	res, stats, err := runOnce(ctx, source, offers.NewStatsLoader(client), services.Publisher, statsDays, *offerID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load offers")
		return
	}
	logResult(log, res)
	logStats(log, stats)
}

// Services holds all the initialized services
type Services struct {
	Cache           cache.CacheService
	Publisher       publisher.Publisher
	ScrapePublisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.ScrapePublisher != nil {
		s.ScrapePublisher.Close()
	}
}

// initializeServices connects the optional backing services. A service that
// cannot be reached is left nil and the feature it backs is disabled.
func initializeServices(ctx context.Context, cfg *config.Config) *Services {
	services := &Services{}
	log := logger.Default

	memcacheService := cache.NewMemcacheService(cfg.MemcacheAddr, "offerfeed:")
	if err := memcacheService.Ping(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.MemcacheAddr).Msg("Memcache unavailable; rate limit guard disabled")
	} else {
		services.Cache = memcacheService
		logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
	}

	redisPublisher := publisher.NewRedisPublisher(
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamCount,
		cfg.RedisStreamMaxLength,
	)
	if err := redisPublisher.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable; snapshots will not be published")
		redisPublisher.Close()
	} else {
		services.Publisher = redisPublisher
		services.ScrapePublisher = publisher.NewRedisPublisher(
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.ScrapeStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		logger.Info("Connected to Redis at %s (DB: %d, Streams: %s, %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.ScrapeStream)
	}

	return services
}

// runOnce loads offers and click stats concurrently and publishes the offers
// snapshot when a publisher is configured
func runOnce(
	ctx context.Context,
	source *offers.Source,
	stats *offers.StatsLoader,
	pub publisher.Publisher,
	days int,
	offerID int64,
) (offers.Result, offers.StatsResult, error) {
	var res offers.Result
	var statsRes offers.StatsResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		res, err = source.Wait(gctx)
		return err
	})
	g.Go(func() error {
		statsRes = stats.Load(gctx, days, offerID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return res, statsRes, err
	}

	if pub != nil {
		if err := worker.Publish(ctx, pub, res); err != nil {
			logger.Default.Warn().Err(err).Msg("Failed to publish snapshot")
		}
	}

	return res, statsRes, nil
}

// scrapeOnce runs every scraper once in parallel, logs what it found and
// publishes it when a publisher is configured. It returns the offers per
// merchant; a failed scraper is logged and left out.
func scrapeOnce(ctx context.Context, scrapers []scraper.Scraper, pub publisher.Publisher) map[string][]offers.Offer {
	log := logger.Default
	results := make([][]offers.Offer, len(scrapers))

	var g errgroup.Group
	for i, s := range scrapers {
		i, s := i, s
		g.Go(func() error {
			found, err := s.Scrape(ctx)
			if err != nil {
				log.Error().Err(err).Str("scraper", s.GetName()).Msg("Scrape failed")
				return nil
			}
			results[i] = found
			return nil
		})
	}
	g.Wait()

	byMerchant := make(map[string][]offers.Offer, len(scrapers))
	for i, s := range scrapers {
		if results[i] == nil {
			continue
		}
		byMerchant[s.GetMerchant()] = results[i]
		logOffers(log, results[i])

		if pub != nil {
			if _, err := worker.PublishOffers(ctx, pub, s.GetMerchant(), results[i]); err != nil {
				log.Warn().Err(err).Str("merchant", s.GetMerchant()).Msg("Failed to publish scraped offers")
			}
		}
	}
	return byMerchant
}

func logResult(log *logger.Logger, res offers.Result) {
	switch {
	case res.IsError:
		log.Error().Msg("Could not load offers")
		return
	case res.UsedMockData:
		log.Warn().Msg("Offers API unavailable; showing example offers")
	}

	if len(res.Offers) == 0 {
		log.Info().Msg("No offers match the selected filters")
		return
	}

	logOffers(log, res.Offers)

	log.Info().
		Int("shown", len(res.Offers)).
		Int("total", res.TotalOffersAvailable).
		Msg("Offers loaded")
}

func logOffers(log *logger.Logger, found []offers.Offer) {
	for _, o := range found {
		event := log.Info().
			Int64("id", o.ID).
			Str("merchant", o.Merchant).
			Str("external_id", o.ExternalID).
			Str("price", offers.FormatBRL(o.Price)).
			Str("url", o.URL)
		if o.HasDiscount() {
			event = event.
				Int("discount_pct", o.DiscountPct).
				Str("tier", string(o.DiscountTier()))
		}
		event.Msg(o.Title)
	}
}

func logStats(log *logger.Logger, stats offers.StatsResult) {
	if stats.IsError {
		log.Warn().Int("days", stats.Days).Msg("Click stats unavailable")
		return
	}

	for _, s := range stats.Stats {
		log.Info().
			Int64("offer_id", s.OfferID).
			Str("merchant", s.Merchant).
			Int("clicks", s.ClickCount).
			Msg(s.Title)
	}

	log.Info().
		Int("days", stats.Days).
		Int("total_clicks", stats.TotalClicks()).
		Msg("Click stats loaded")
}
