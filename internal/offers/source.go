package offers

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/boradedesconto/offerfeed/logger"
	"github.com/boradedesconto/offerfeed/pkg/errors"
)

const defaultTimeout = 10 * time.Second

// Source keeps a Result in step with the latest requested Filters. Every
// filter change starts a fetch cycle; only the cycle for the most recently
// requested filters may commit, whatever order responses arrive in. When the
// API fails the source substitutes its fallback dataset, filtered locally.
type Source struct {
	fetcher  Fetcher
	fallback Dataset
	guard    *Guard
	timeout  time.Duration
	log      *logger.Logger

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu      sync.Mutex
	filters Filters
	gen     uint64
	result  Result
	cancel  context.CancelFunc
	pending bool
	settled chan struct{}
	closed  bool
	updates chan Result
}

// Option configures a Source
type Option func(*Source)

// WithFallback replaces the bundled fallback dataset. A nil dataset leaves
// the source without fallback, so API failures end in IsError.
func WithFallback(ds Dataset) Option {
	return func(s *Source) {
		s.fallback = ds
	}
}

// WithGuard pauses API requests while the guard holds a rate limit block
func WithGuard(g *Guard) Option {
	return func(s *Source) {
		s.guard = g
	}
}

// WithTimeout bounds each request; zero or less disables the deadline
func WithTimeout(d time.Duration) Option {
	return func(s *Source) {
		s.timeout = d
	}
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Source) {
		s.log = l
	}
}

// NewSource mounts a source for initial and starts its first fetch cycle
func NewSource(fetcher Fetcher, initial Filters, opts ...Option) *Source {
	s := &Source{
		fetcher:  fetcher,
		fallback: DefaultDataset(),
		timeout:  defaultTimeout,
		filters:  initial,
		result:   Result{Offers: []Offer{}, Filters: initial},
		updates:  make(chan Result, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.ForSource()
	}
	s.ctx, s.stop = context.WithCancel(context.Background())

	s.mu.Lock()
	s.startLocked()
	s.mu.Unlock()

	return s
}

// Filters returns the most recently requested filters
func (s *Source) Filters() Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// SetFilters requests offers for f. It starts a fetch cycle only when f
// differs from the current filters and reports whether it did.
func (s *Source) SetFilters(f Filters) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || f == s.filters {
		return false
	}
	s.filters = f
	s.startLocked()
	return true
}

// Refresh starts a new fetch cycle for the current filters
func (s *Source) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.startLocked()
}

// Result returns a snapshot of the current view
func (s *Source) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneResult(s.result)
}

// Updates delivers every state change, the loading states included. The
// channel holds only the newest undelivered result and is closed by Close.
func (s *Source) Updates() <-chan Result {
	return s.updates
}

// Wait blocks until the cycle for the latest requested filters has committed
func (s *Source) Wait(ctx context.Context) (Result, error) {
	for {
		s.mu.Lock()
		if s.closed {
			r := cloneResult(s.result)
			s.mu.Unlock()
			return r, errors.ErrClosed
		}
		if !s.pending {
			r := cloneResult(s.result)
			s.mu.Unlock()
			return r, nil
		}
		settled := s.settled
		s.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return s.Result(), ctx.Err()
		}
	}
}

// Close unmounts the source. The in-flight request is cancelled, nothing it
// returns afterwards is committed, and Close returns once its goroutine has
// exited. A fetcher that ignores context cancellation delays Close.
func (s *Source) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stop()
	if s.pending {
		s.pending = false
		close(s.settled)
	}
	close(s.updates)
	s.mu.Unlock()

	s.wg.Wait()
}

// startLocked supersedes any in-flight cycle and launches a new one
func (s *Source) startLocked() {
	if s.cancel != nil {
		s.cancel()
	}

	s.gen++
	gen, f := s.gen, s.filters

	var ctx context.Context
	var cancel context.CancelFunc
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(s.ctx, s.timeout)
	} else {
		ctx, cancel = context.WithCancel(s.ctx)
	}
	s.cancel = cancel

	if !s.pending {
		s.pending = true
		s.settled = make(chan struct{})
	}

	s.result.IsLoading = true
	s.publishLocked()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		res, err := s.resolve(ctx, gen, f)
		s.commit(gen, res, err)
	}()
}

// resolve runs one fetch cycle. The returned error is the API failure that
// caused a fallback, if any.
func (s *Source) resolve(ctx context.Context, gen uint64, f Filters) (Result, error) {
	err := s.guard.Check()
	if err == nil {
		var page Page
		page, err = s.fetcher.FetchOffers(ctx, f)
		s.guard.Observe(err)
		if err == nil {
			data := page.Data
			if data == nil {
				data = []Offer{}
			}
			return Result{
				Offers:               data,
				TotalOffersAvailable: page.Count,
				Filters:              f,
				Generation:           gen,
			}, nil
		}
	}

	if verr := s.fallback.Validate(); verr != nil {
		return Result{
			Offers:     []Offer{},
			IsError:    true,
			Filters:    f,
			Generation: gen,
		}, errors.NewUnrecoverable("source", "API failed and no usable fallback", verr)
	}

	offers := s.fallback.Filter(f)
	return Result{
		Offers:               offers,
		UsedMockData:         true,
		TotalOffersAvailable: len(offers),
		Filters:              f,
		Generation:           gen,
	}, err
}

// commit publishes res unless a newer cycle started or the source closed
func (s *Source) commit(gen uint64, res Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if gen != s.gen {
		s.log.Debug().
			Uint64("generation", gen).
			Uint64("current", s.gen).
			Msg("Discarding stale offers result")
		return
	}

	event := s.log.Debug()
	switch {
	case res.IsError:
		event = s.log.Error().Err(err)
	case res.UsedMockData:
		event = s.log.Warn().Err(err)
	}
	event.
		Uint64("generation", gen).
		Str("merchant", res.Filters.Merchant).
		Int("min_discount", res.Filters.MinDiscount).
		Int("offers", len(res.Offers)).
		Int("total", res.TotalOffersAvailable).
		Bool("used_mock_data", res.UsedMockData).
		Msg("Offers resolved")

	s.result = res
	s.cancel = nil
	s.pending = false
	close(s.settled)
	s.publishLocked()
}

// publishLocked replaces any undelivered update with the current result
func (s *Source) publishLocked() {
	select {
	case <-s.updates:
	default:
	}
	s.updates <- cloneResult(s.result)
}

func cloneResult(r Result) Result {
	r.Offers = slices.Clone(r.Offers)
	return r
}
