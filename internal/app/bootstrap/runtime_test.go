package bootstrap

import (
	"context"
	"io"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/clinicflow/intake-ai/internal/config"
	"github.com/clinicflow/intake-ai/internal/intake"
	"github.com/clinicflow/intake-ai/pkg/logging"
)

func testLogger() *logging.Logger {
	return logging.NewWithWriter(io.Discard, "error")
}

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	cfg := &appconfig.Config{RedisAddr: "  "}
	assert.Nil(t, BuildRedisClient(context.Background(), cfg, testLogger(), false))
	assert.Nil(t, BuildRedisClient(context.Background(), nil, testLogger(), false))
}

func TestBuildRedisClientVerifyFailureReturnsNil(t *testing.T) {
	cfg := &appconfig.Config{RedisAddr: "127.0.0.1:1"}
	assert.Nil(t, BuildRedisClient(context.Background(), cfg, testLogger(), true))
}

func TestBuildSessionStoreRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{SessionBackend: "redis", RedisAddr: mr.Addr()}

	store := BuildSessionStore(context.Background(), cfg, testLogger())
	_, ok := store.(*intake.RedisStore)
	assert.True(t, ok, "expected redis-backed store")
}

func TestBuildSessionStoreFallsBackToMemory(t *testing.T) {
	cfg := &appconfig.Config{SessionBackend: "redis", RedisAddr: "127.0.0.1:1"}

	store := BuildSessionStore(context.Background(), cfg, testLogger())
	_, ok := store.(*intake.MemoryStore)
	assert.True(t, ok, "expected memory fallback")
}

func TestBuildSessionStoreDefaultsToMemory(t *testing.T) {
	cfg := &appconfig.Config{SessionBackend: "memory"}

	store := BuildSessionStore(context.Background(), cfg, testLogger())
	_, ok := store.(*intake.MemoryStore)
	assert.True(t, ok)
}

func TestBuildGatewayRequiresAPIKey(t *testing.T) {
	cfg := &appconfig.Config{GeminiAPIKey: ""}

	gateway, err := BuildGateway(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, gateway)
}
