package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const winsKey = "leaderboard:wins"

// WinsCache handles Redis ZSET operations for the global wins leaderboard
type WinsCache interface {
	AddWin(ctx context.Context, userID string) error
	Top(ctx context.Context, limit int) ([]WinEntry, error)
	Rank(ctx context.Context, userID string) (int64, error)
}

// WinEntry represents a single leaderboard entry
type WinEntry struct {
	UserID string `json:"userId"`
	Wins   int    `json:"wins"`
	Rank   int    `json:"rank"`
}

type winsCache struct {
	client *redis.Client
}

// NewWinsCache creates a new wins cache
func NewWinsCache(client *redis.Client) WinsCache {
	return &winsCache{
		client: client,
	}
}

func (c *winsCache) AddWin(ctx context.Context, userID string) error {
	return c.client.ZIncrBy(ctx, winsKey, 1, userID).Err()
}

func (c *winsCache) Top(ctx context.Context, limit int) ([]WinEntry, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, winsKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]WinEntry, len(results))
	for i, z := range results {
		entries[i] = WinEntry{
			UserID: z.Member.(string),
			Wins:   int(z.Score),
			Rank:   i + 1,
		}
	}
	return entries, nil
}

func (c *winsCache) Rank(ctx context.Context, userID string) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, winsKey, userID).Result()
	if err == redis.Nil {
		return -1, nil
	}
	return rank + 1, err // 1-indexed
}
