package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/DonationDesk/internal/pkg/env"
)

// ErrMiss is returned by GetJSON when the key does not exist.
var ErrMiss = errors.New("cache: miss")

var (
	client *redis.Client
	prefix = "donationdesk"
)

// SetupCache connects to the Redis server named by CACHE_HOST and CACHE_PORT.
// An unreachable server is logged, not fatal: callers treat cache errors as misses.
func SetupCache() {
	if p := strings.TrimSpace(env.GetEnv("CACHE_PREFIX", "")); p != "" {
		prefix = p
	}
	client = redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(env.GetEnv("CACHE_HOST", "localhost"), env.GetEnv("CACHE_PORT", "6379")),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       env.GetEnvInt("CACHE_DB", 0),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warnf("[Cache] %s unreachable: %v", client.Options().Addr, err)
		return
	}
	log.Infof("[Cache] connected to %s", client.Options().Addr)
}

// SetClient replaces the client, used by tests and custom wiring.
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the shared client, connecting on first use.
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Key joins parts under the configured CACHE_PREFIX.
func Key(parts ...string) string {
	return prefix + ":" + strings.Join(parts, ":")
}

// GetJSON decodes the value stored at key into out.
func GetJSON(ctx context.Context, key string, out interface{}) error {
	raw, err := GetClient().Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// SetJSON stores value as JSON with the given expiration.
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return GetClient().Set(ctx, key, data, ttl).Err()
}

func Delete(ctx context.Context, key string) error {
	return GetClient().Del(ctx, key).Err()
}
