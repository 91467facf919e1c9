package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/boradedesconto/offerfeed/internal/offers"
	"github.com/boradedesconto/offerfeed/logger"
	"github.com/boradedesconto/offerfeed/services/publisher"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockPublisher implements the publisher.Publisher interface for testing
type MockPublisher struct {
	mu         sync.Mutex
	messages   map[string][][]byte
	trimCalls  int
	publishErr error
}

// Ensure MockPublisher implements publisher.Publisher
var _ publisher.Publisher = (*MockPublisher)(nil)

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		messages: make(map[string][][]byte),
	}
}

func (m *MockPublisher) Publish(ctx context.Context, key string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishErr != nil {
		return m.publishErr
	}

	// Copy the message to ensure thread safety
	messageCopy := make([]byte, len(message))
	copy(messageCopy, message)

	m.messages[key] = append(m.messages[key], messageCopy)
	return nil
}

func (m *MockPublisher) TrimStreams(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trimCalls++
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

func (m *MockPublisher) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages[key])
}

// MockRefresher implements Refresher for testing
type MockRefresher struct {
	mu        sync.Mutex
	result    offers.Result
	err       error
	refreshes int
}

// Ensure offers.Source implements Refresher
var _ Refresher = (*offers.Source)(nil)

func (m *MockRefresher) Refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes++
}

func (m *MockRefresher) Wait(ctx context.Context) (offers.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result, m.err
}

func TestPublish(t *testing.T) {
	mockPublisher := NewMockPublisher()
	res := offers.Result{
		Offers:               []offers.Offer{{ID: 1, Merchant: "amazon", DiscountPct: 20}},
		TotalOffersAvailable: 1,
		Filters:              offers.Filters{Merchant: "amazon", MinDiscount: 10},
		Generation:           3,
	}

	err := Publish(context.Background(), mockPublisher, res)
	require.NoError(t, err)

	key := "merchant=amazon&min_discount=10"
	require.Equal(t, 1, mockPublisher.count(key))

	var snap Snapshot
	require.NoError(t, json.Unmarshal(mockPublisher.messages[key][0], &snap))
	assert.Equal(t, "amazon", snap.Merchant)
	assert.Equal(t, 10, snap.MinDiscount)
	assert.Equal(t, 1, snap.Result.TotalOffersAvailable)
	assert.Equal(t, uint64(3), snap.Result.Generation)
	assert.Len(t, snap.Result.Offers, 1)
	assert.False(t, snap.PublishedAt.IsZero())
}

func TestWorkerStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mockPublisher := NewMockPublisher()
	refresher := &MockRefresher{result: offers.Result{Offers: []offers.Offer{}, UsedMockData: true}}

	w := NewWorker(ctx, refresher, mockPublisher, 10*time.Millisecond)
	w.log = logger.Nop()

	done := make(chan error, 1)
	go func() {
		done <- w.Start()
	}()

	key := "merchant=&min_discount=0"
	assert.Eventually(t, func() bool {
		return mockPublisher.count(key) >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}

	refresher.mu.Lock()
	assert.GreaterOrEqual(t, refresher.refreshes, 2)
	refresher.mu.Unlock()

	mockPublisher.mu.Lock()
	assert.GreaterOrEqual(t, mockPublisher.trimCalls, 3)
	mockPublisher.mu.Unlock()
}

func TestWorkerWithError(t *testing.T) {
	ctx := context.Background()

	mockPublisher := NewMockPublisher()
	refresher := &MockRefresher{err: errors.New("source closed")}

	w := NewWorker(ctx, refresher, mockPublisher, time.Second)
	w.log = logger.Nop()
	w.publishCurrent()

	// Nothing is published when the source fails
	assert.Empty(t, mockPublisher.messages)
	assert.Equal(t, 0, mockPublisher.trimCalls)

	// Publish failures skip trimming
	refresher.err = nil
	mockPublisher.publishErr = errors.New("redis down")
	w.publishCurrent()
	assert.Equal(t, 0, mockPublisher.trimCalls)
}

func TestWorkerWithSource(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := offersFetcher(func(ctx context.Context, f offers.Filters) (offers.Page, error) {
		return offers.Page{}, errors.New("api down")
	})
	source := offers.NewSource(fetcher, offers.Filters{Merchant: "mercadolivre"}, offers.WithLogger(logger.Nop()))
	defer source.Close()

	mockPublisher := NewMockPublisher()
	w := NewWorker(ctx, source, mockPublisher, time.Hour)
	w.log = logger.Nop()
	w.publishCurrent()

	key := "merchant=mercadolivre&min_discount=0"
	require.Equal(t, 1, mockPublisher.count(key))

	var snap Snapshot
	require.NoError(t, json.Unmarshal(mockPublisher.messages[key][0], &snap))
	assert.True(t, snap.Result.UsedMockData)
	for _, o := range snap.Result.Offers {
		assert.Equal(t, "mercadolivre", o.Merchant)
	}
}

type offersFetcher func(ctx context.Context, f offers.Filters) (offers.Page, error)

func (fn offersFetcher) FetchOffers(ctx context.Context, f offers.Filters) (offers.Page, error) {
	return fn(ctx, f)
}
