package publisher

import "context"

// Publisher represents a service for publishing offer snapshots
type Publisher interface {
	// Publish publishes a message; key picks the stream and travels with it
	Publish(ctx context.Context, key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams(ctx context.Context) error

	// Close closes the publisher connection
	Close() error
}
