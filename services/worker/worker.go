package worker

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/boradedesconto/offerfeed/internal/offers"
	"github.com/boradedesconto/offerfeed/logger"
	"github.com/boradedesconto/offerfeed/services/publisher"
)

// Refresher is the part of an offers.Source the worker drives
type Refresher interface {
	Refresh()
	Wait(ctx context.Context) (offers.Result, error)
}

// Snapshot is the published form of a committed result
type Snapshot struct {
	Merchant    string        `json:"merchant,omitempty"`
	MinDiscount int           `json:"min_discount,omitempty"`
	Result      offers.Result `json:"result"`
	PublishedAt time.Time     `json:"published_at"`
}

// Worker refreshes a source on an interval and publishes every committed result
type Worker struct {
	ctx       context.Context
	source    Refresher
	publisher publisher.Publisher
	interval  time.Duration
	log       *logger.Logger
}

// NewWorker creates a new worker
func NewWorker(
	ctx context.Context,
	source Refresher,
	pub publisher.Publisher,
	interval time.Duration,
) *Worker {
	return &Worker{
		ctx:       ctx,
		source:    source,
		publisher: pub,
		interval:  interval,
		log:       logger.ForWorker(),
	}
}

// Start publishes the source's current result, then refreshes it every
// interval until the context is cancelled
func (w *Worker) Start() error {
	w.publishCurrent()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return nil
		case <-ticker.C:
			start := time.Now()
			w.source.Refresh()
			w.publishCurrent()
			w.log.Debug().Dur("elapsed", time.Since(start)).Msg("Refresh cycle finished")
		}
	}
}

// publishCurrent waits for the pending cycle and publishes its result
func (w *Worker) publishCurrent() {
	res, err := w.source.Wait(w.ctx)
	if err != nil {
		if w.ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Failed waiting for offers")
		}
		return
	}

	if err := Publish(w.ctx, w.publisher, res); err != nil {
		w.log.Error().Err(err).Msg("Failed to publish snapshot")
		return
	}

	// Trim all streams after publishing
	if err := w.publisher.TrimStreams(w.ctx); err != nil {
		w.log.Error().Err(err).Msg("Failed to trim streams")
	}
}

// Publish encodes res as a Snapshot and publishes it keyed by its filters
func Publish(ctx context.Context, pub publisher.Publisher, res offers.Result) error {
	data, err := json.Marshal(Snapshot{
		Merchant:    res.Filters.Merchant,
		MinDiscount: res.Filters.MinDiscount,
		Result:      res,
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return pub.Publish(ctx, partitionKey(res.Filters), data)
}

// partitionKey identifies the filters a snapshot was computed for
func partitionKey(f offers.Filters) string {
	return "merchant=" + f.Merchant + "&min_discount=" + strconv.Itoa(f.MinDiscount)
}
