package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// StatsCache keeps recently computed per-chat summaries so /stats spam does
// not hit Postgres and the decrypt path every time. Entries are invalidated
// whenever the chat writes new data.
type StatsCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewStatsCache(client RedisClient, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StatsCache{client: client, ttl: ttl}
}

func (c *StatsCache) key(chatID int64, kind string) string {
	return fmt.Sprintf("stats:%s:%d", kind, chatID)
}

// Get unmarshals a cached summary into dst; ok is false on miss.
func (c *StatsCache) Get(ctx context.Context, chatID int64, kind string, dst interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, c.key(chatID, kind))
	if err != nil {
		if IsNil(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *StatsCache) Put(ctx context.Context, chatID int64, kind string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(chatID, kind), data, c.ttl)
}

// Invalidate drops all cached summaries for the chat.
func (c *StatsCache) Invalidate(ctx context.Context, chatID int64) error {
	return c.client.Del(ctx,
		c.key(chatID, "entries"),
		c.key(chatID, "impressions"),
		c.key(chatID, "combined"),
	)
}
