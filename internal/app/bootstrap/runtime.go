package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/photka-support-ai/internal/config"
	"github.com/wolfman30/photka-support-ai/internal/conversation"
	"github.com/wolfman30/photka-support-ai/internal/events"
	"github.com/wolfman30/photka-support-ai/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool connects to DATABASE_URL. An empty URL or a failed ping returns nil
// and the booking handoff runs in redirect-only mode.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *pgxpool.Pool {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Warn("postgres not available", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// BuildEventBus prefers Redis pub/sub so every API replica sees the same events.
func BuildEventBus(redisClient *redis.Client, logger *logging.Logger) events.Bus {
	if redisClient == nil {
		return events.NewMemoryBus(256, logger)
	}
	return events.NewRedisBus(redisClient, logger)
}

// BuildTranscriptStore returns the Redis-backed support transcript store, or nil.
func BuildTranscriptStore(redisClient *redis.Client, cfg *appconfig.Config) conversation.TranscriptStore {
	if redisClient == nil || cfg == nil {
		return nil
	}
	return conversation.NewRedisTranscriptStore(redisClient, cfg.TranscriptMaxMessages)
}
