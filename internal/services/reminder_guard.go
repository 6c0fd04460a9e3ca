package services

import (
	"context"
	"fmt"
	"time"

	"github.com/coyote/taskboard/internal/config"
	"github.com/redis/go-redis/v9"
)

const redisPingTimeout = 5 * time.Second

// RedisReminderGuard remembers sent reminders in Redis for a fixed window.
// Key format: reminder:<kind>:<card_id>:<unix_timestamp>
type RedisReminderGuard struct {
	client *redis.Client
	window time.Duration
}

func NewRedisReminderGuard(client *redis.Client, window time.Duration) *RedisReminderGuard {
	return &RedisReminderGuard{client: client, window: window}
}

// ConnectRedis opens a client and verifies it with a ping.
func ConnectRedis(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// Claim atomically marks req as sent. It returns false when the same
// reminder was claimed within the window.
func (g *RedisReminderGuard) Claim(ctx context.Context, req *ReminderRequest) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.key(req), "1", g.window).Result()
	if err != nil {
		return false, fmt.Errorf("reminder dedup: %w", err)
	}
	return ok, nil
}

func (g *RedisReminderGuard) key(req *ReminderRequest) string {
	return fmt.Sprintf("reminder:%s:%d:%d", req.Kind, req.CardID, req.At.Unix())
}
