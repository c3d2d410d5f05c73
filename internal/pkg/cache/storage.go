package cache

import (
	"github.com/gofiber/fiber/v2"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/DonationDesk/internal/pkg/env"
)

// NewFiberStorage returns a fiber.Storage on the cache server, used where
// fiber middleware state must be shared between instances (rate limits).
// It selects CACHE_STORAGE_DB so its keys never mix with the job queue.
func NewFiberStorage() fiber.Storage {
	return redisstorage.New(redisstorage.Config{
		Host:     env.GetEnv("CACHE_HOST", "localhost"),
		Port:     env.GetEnvInt("CACHE_PORT", 6379),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		Database: env.GetEnvInt("CACHE_STORAGE_DB", 1),
		Reset:    false,
	})
}
