package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Guard is a run guard stored as a persistent Redis key.
type Guard struct {
	client *redis.Client
	name   string
}

func NewGuard(client *redis.Client, name string) *Guard {
	return &Guard{client: client, name: name}
}

func (g *Guard) key() string {
	return fmt.Sprintf("%sflag:%s", keyPrefix, g.name)
}

func (g *Guard) Name() string { return g.name }

func (g *Guard) IsSet(ctx context.Context) (bool, error) {
	n, err := g.client.Exists(ctx, g.key()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read guard %s: %w", g.name, err)
	}
	return n > 0, nil
}

func (g *Guard) Set(ctx context.Context) error {
	if err := g.client.Set(ctx, g.key(), "1", 0).Err(); err != nil {
		return fmt.Errorf("failed to set guard %s: %w", g.name, err)
	}
	return nil
}

func (g *Guard) Clear(ctx context.Context) error {
	if err := g.client.Del(ctx, g.key()).Err(); err != nil {
		return fmt.Errorf("failed to clear guard %s: %w", g.name, err)
	}
	return nil
}
