package publisher

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boradedesconto/offerfeed/logger"
	"github.com/boradedesconto/offerfeed/pkg/errors"
)

func TestStreamFor(t *testing.T) {
	p := NewRedisPublisher("localhost:6379", 0, "offer_snapshots", 4, 100)
	defer p.Close()

	stream := p.StreamFor("merchant=amazon")
	assert.Equal(t, stream, p.StreamFor("merchant=amazon"))
	assert.Regexp(t, `^offer_snapshots:[0-3]$`, stream)

	single := NewRedisPublisher("localhost:6379", 0, "offer_snapshots", 0, 100)
	defer single.Close()
	assert.Equal(t, "offer_snapshots:0", single.StreamFor("anything"))
}

// This test requires a running Redis instance
// If Redis is not available, the test will be skipped
func TestRedisPublisher(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	publisher := NewRedisPublisher("localhost:6379", 0, "test_offer_snapshots", 1, 10)
	defer publisher.Close()

	if err := publisher.Ping(ctx); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	defer client.Close()

	stream := "test_offer_snapshots:0"
	client.Del(ctx, stream)
	defer client.Del(ctx, stream)

	err := publisher.Publish(ctx, "merchant=amazon", []byte("test_message"))
	require.NoError(t, err)

	messages, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, messages, 1)
	// The message should be base64 encoded
	assert.Equal(t, "dGVzdF9tZXNzYWdl", messages[0].Values[MessageField])
	assert.Equal(t, "merchant=amazon", messages[0].Values["key"])

	for i := 0; i < 20; i++ {
		require.NoError(t, publisher.Publish(ctx, "merchant=amazon", []byte("m")))
	}
	require.NoError(t, publisher.TrimStreams(ctx))

	length, err := client.XLen(ctx, stream).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, length, int64(10))
}

func TestRedisPublisherFailures(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Nothing listens on the discard port
	p := NewRedisPublisher("127.0.0.1:9", 0, "offer_snapshots", 2, 10)
	defer p.Close()

	var buf bytes.Buffer
	p.log = logger.New(&buf)

	err := p.Publish(ctx, "merchant=amazon", []byte("m"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypePublisher, errors.TypeOf(err))
	assert.Contains(t, buf.String(), "XADD failed")
	assert.Contains(t, buf.String(), `"stream":"`+p.StreamFor("merchant=amazon")+`"`)

	buf.Reset()
	err = p.TrimStreams(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypePublisher, errors.TypeOf(err))
	assert.Contains(t, buf.String(), "XTRIM failed")
}
