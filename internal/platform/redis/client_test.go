package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/platform/config"
)

func TestNewWithoutURLIsDisabled(t *testing.T) {
	c, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Error(t, c.Health(context.Background()))
}

func TestOptions(t *testing.T) {
	t.Run("tuning overrides url defaults", func(t *testing.T) {
		opts, err := options(config.RedisConfig{
			URL:          "redis://cache:6380/2",
			PoolSize:     7,
			MinIdleConns: 1,
			DialTimeout:  2 * time.Second,
		})
		require.NoError(t, err)
		assert.Equal(t, "cache:6380", opts.Addr)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, 7, opts.PoolSize)
		assert.Equal(t, 1, opts.MinIdleConns)
		assert.Equal(t, 2*time.Second, opts.DialTimeout)
	})

	t.Run("zero values keep url defaults", func(t *testing.T) {
		base, err := options(config.RedisConfig{URL: "redis://cache:6379/0?dial_timeout=9s"})
		require.NoError(t, err)
		assert.Equal(t, 9*time.Second, base.DialTimeout)
	})

	t.Run("malformed url", func(t *testing.T) {
		_, err := options(config.RedisConfig{URL: "http://not-redis"})
		assert.Error(t, err)
	})
}
