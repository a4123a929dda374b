package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "kanso:habits:user-1:active", Key("habits", "user-1", "active"))
	assert.Equal(t, "kanso:viewport:u", Key("viewport", "u"))
}

func TestConfig(t *testing.T) {
	assert.Equal(t, "localhost:6379", Config{Host: "localhost", Port: "6379"}.Addr())
	assert.Equal(t, "[::1]:6379", Config{Host: "::1", Port: "6379"}.Addr())
	assert.False(t, Config{Port: "6379"}.Enabled())
	assert.True(t, Config{Host: "redis"}.Enabled())
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "disabled", Status(context.Background(), nil))
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rdb, err := NewRedisClient(ctx, Config{Host: "127.0.0.1", Port: "1"})

	assert.Nil(t, rdb)
	assert.ErrorContains(t, err, "127.0.0.1:1")
}

func TestRedisClient_Integration(t *testing.T) {
	_ = godotenv.Load("../../../.env")

	cfg := Config{Host: os.Getenv("REDIS_HOST"), Port: os.Getenv("REDIS_PORT"), Password: os.Getenv("REDIS_PASSWORD"), DB: 1}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == "" {
		cfg.Port = "6379"
	}

	ctx := context.Background()
	rdb, err := NewRedisClient(ctx, cfg)
	if err != nil {
		t.Skipf("Skipping Redis integration test: %v", err)
	}
	defer rdb.Close()

	t.Run("Success: Reports up", func(t *testing.T) {
		assert.Equal(t, "up", Status(ctx, rdb))
	})

	t.Run("Success: Reports down once closed", func(t *testing.T) {
		other, err := NewRedisClient(ctx, cfg)
		require.NoError(t, err)
		require.NoError(t, other.Close())

		assert.Equal(t, "down", Status(ctx, other))
	})
}
