package redis_test

import (
	"context"
	"testing"
	"time"

	"payment-reconciler/internal/adapter/storage/redis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayCache(t *testing.T) {
	mr, client := newTestClient(t)
	cache := redis.NewGatewayCache(client)
	ctx := context.Background()

	t.Run("miss returns nil", func(t *testing.T) {
		got, err := cache.Get(ctx, "unknown")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("set then get", func(t *testing.T) {
		payload := []byte(`{"data":{"id":"1234-5678","status":"APPROVED"}}`)
		require.NoError(t, cache.Set(ctx, "1234-5678", payload, 5*time.Minute))

		got, err := cache.Get(ctx, "1234-5678")
		require.NoError(t, err)
		assert.Equal(t, payload, got)
		assert.Equal(t, 5*time.Minute, mr.TTL("wompi:tx:1234-5678"))
	})

	t.Run("entry expires", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "short", []byte("x"), time.Second))
		mr.FastForward(2 * time.Second)

		got, err := cache.Get(ctx, "short")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("backend failure surfaces", func(t *testing.T) {
		mr.Close()
		_, err := cache.Get(ctx, "1234-5678")
		assert.Error(t, err)
	})
}
