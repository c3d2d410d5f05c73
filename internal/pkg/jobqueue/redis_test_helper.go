package jobqueue

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/DonationDesk/internal/pkg/env"
)

const isolatedJobQueueTestRedisDB = 14

// newIsolatedRedisClient connects to the Redis named by CACHE_HOST/CACHE_PORT
// (falling back to localhost) on a dedicated DB that is flushed before and
// after the test. The test is skipped when no server answers.
func newIsolatedRedisClient(t *testing.T, db int) *redis.Client {
	t.Helper()

	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")
	client := redis.NewClient(&redis.Options{
		Addr:        net.JoinHostPort(host, port),
		Password:    env.GetEnv("CACHE_PASSWORD", ""),
		DB:          db,
		DialTimeout: time.Second,
		MaxRetries:  -1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis not reachable at %s:%s: %v", host, port, err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		_ = client.Close()
		t.Fatalf("flush redis db %d: %v", db, err)
	}

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}
