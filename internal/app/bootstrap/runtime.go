// Package bootstrap wires runtime dependencies from configuration.
package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/clinicflow/intake-ai/internal/config"
	"github.com/clinicflow/intake-ai/internal/docai"
	"github.com/clinicflow/intake-ai/internal/intake"
	"github.com/clinicflow/intake-ai/pkg/logging"
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
	if ctx == nil {
		ctx = context.Background()
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
		return nil
	}
	return client
}

// BuildSessionStore selects the session backend. An unavailable redis backend
// falls back to memory so the API still comes up.
func BuildSessionStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) intake.Store {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg != nil && cfg.SessionBackend == "redis" {
		if client := BuildRedisClient(ctx, cfg, logger, true); client != nil {
			logger.Info("using redis session store", "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL.String())
			return intake.NewRedisStore(client, cfg.SessionTTL)
		}
		logger.Warn("redis session backend unavailable, falling back to memory")
	}
	return intake.NewMemoryStore()
}

// BuildGateway constructs the Gemini document understanding client.
func BuildGateway(ctx context.Context, cfg *appconfig.Config) (docai.Gateway, error) {
	gateway, err := docai.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: failed to build docai gateway: %w", err)
	}
	return gateway, nil
}
