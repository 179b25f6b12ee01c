package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"kingofdiamonds/internal/model"
)

// LobbyCache mirrors hot lobby metadata in Redis. Entries expire on
// their own; the Mongo record stays the durable copy.
type LobbyCache interface {
	SetMeta(ctx context.Context, code string, meta *model.LobbyMeta) error
	GetMeta(ctx context.Context, code string) (*model.LobbyMeta, error)
	SetStatus(ctx context.Context, code string, status model.LobbyStatus) error
	Touch(ctx context.Context, code string) error
	Delete(ctx context.Context, code string) error
	Exists(ctx context.Context, code string) (bool, error)
}

type lobbyCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLobbyCache creates a new lobby cache
func NewLobbyCache(client *redis.Client) LobbyCache {
	return &lobbyCache{
		client: client,
		ttl:    24 * time.Hour, // Lobbies expire after 24h
	}
}

func (c *lobbyCache) key(code string) string {
	return fmt.Sprintf("lobby:%s", code)
}

func (c *lobbyCache) SetMeta(ctx context.Context, code string, meta *model.LobbyMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(code), data, c.ttl).Err()
}

func (c *lobbyCache) GetMeta(ctx context.Context, code string) (*model.LobbyMeta, error) {
	data, err := c.client.Get(ctx, c.key(code)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta model.LobbyMeta
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (c *lobbyCache) SetStatus(ctx context.Context, code string, status model.LobbyStatus) error {
	meta, err := c.GetMeta(ctx, code)
	if err != nil {
		return err
	}
	if meta == nil {
		return fmt.Errorf("lobby %s not found", code)
	}
	meta.Status = status
	return c.SetMeta(ctx, code, meta)
}

// Touch extends the entry's TTL so active lobbies outlive busy days.
func (c *lobbyCache) Touch(ctx context.Context, code string) error {
	return c.client.Expire(ctx, c.key(code), c.ttl).Err()
}

func (c *lobbyCache) Delete(ctx context.Context, code string) error {
	return c.client.Del(ctx, c.key(code)).Err()
}

func (c *lobbyCache) Exists(ctx context.Context, code string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(code)).Result()
	return n > 0, err
}
