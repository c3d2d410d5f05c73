package counter

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	webhookOutcomesKey = "donation:counters:webhook"
	dailyRetention     = 30 * 24 * time.Hour
)

// WebhookCounter keeps webhook outcome counters in Redis hashes, one all-time
// hash and one per UTC day.
type WebhookCounter struct {
	client *redis.Client
	now    func() time.Time
}

func NewWebhookCounter(client *redis.Client) *WebhookCounter {
	return &WebhookCounter{client: client, now: time.Now}
}

func dailyKey(day time.Time) string {
	return webhookOutcomesKey + ":" + day.UTC().Format("2006-01-02")
}

// Add increments the counters for outcome.
func (c *WebhookCounter) Add(ctx context.Context, outcome string) error {
	daily := dailyKey(c.now())
	pipe := c.client.TxPipeline()
	pipe.HIncrBy(ctx, webhookOutcomesKey, outcome, 1)
	pipe.HIncrBy(ctx, daily, outcome, 1)
	pipe.Expire(ctx, daily, dailyRetention)
	_, err := pipe.Exec(ctx)
	return err
}

// Totals returns the all-time counters.
func (c *WebhookCounter) Totals(ctx context.Context) (map[string]int64, error) {
	return c.read(ctx, webhookOutcomesKey)
}

// Day returns the counters of one UTC day.
func (c *WebhookCounter) Day(ctx context.Context, day time.Time) (map[string]int64, error) {
	return c.read(ctx, dailyKey(day))
}

func (c *WebhookCounter) read(ctx context.Context, key string) (map[string]int64, error) {
	data, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	return parseCounts(data), nil
}

// parseCounts drops fields that are not integers.
func parseCounts(data map[string]string) map[string]int64 {
	out := make(map[string]int64, len(data))
	for k, v := range data {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[k] = n
	}
	return out
}
