package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anoixa/photo-relay/cache/memory"
	"github.com/anoixa/photo-relay/cache/redis"
	"github.com/anoixa/photo-relay/config"
)

type cachedPhoto struct {
	ID    uint   `json:"id"`
	Image string `json:"image"`
}

func newTestMemory(t *testing.T) *memory.Memory {
	t.Helper()
	m, err := memory.NewMemory(memory.Config{
		NumCounters: 1000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func exerciseProvider(t *testing.T, p Provider) {
	ctx := context.Background()
	key := CurrentPhotoKey()
	_ = p.Delete(ctx, key)

	var got cachedPhoto
	err := p.Get(ctx, key, &got)
	assert.True(t, IsCacheMiss(err), "expected cache miss, got %v", err)

	want := cachedPhoto{ID: 7, Image: "photos/cat.jpg"}
	require.NoError(t, p.Set(ctx, key, want, time.Minute))

	require.NoError(t, p.Get(ctx, key, &got))
	assert.Equal(t, want, got)

	exists, err := p.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, p.Delete(ctx, key))
	err = p.Get(ctx, key, &got)
	assert.True(t, IsCacheMiss(err))

	assert.NoError(t, p.Health(ctx))
}

func TestMemoryProvider(t *testing.T) {
	exerciseProvider(t, newTestMemory(t))
}

func TestMemoryProvider_RawBytes(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "raw", []byte(`{"id":1}`), time.Minute))

	var raw []byte
	require.NoError(t, m.Get(ctx, "raw", &raw))
	assert.JSONEq(t, `{"id":1}`, string(raw))
}

func TestMemoryProvider_Expiration(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "short", cachedPhoto{ID: 1}, 50*time.Millisecond))

	assert.Eventually(t, func() bool {
		var got cachedPhoto
		return IsCacheMiss(m.Get(ctx, "short", &got))
	}, 3*time.Second, 50*time.Millisecond)
}

// TestRedisProvider 需要可用的 Redis，通过 TEST_REDIS_ADDR 指定
func TestRedisProvider(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	r, err := redis.NewRedis(redis.Config{Address: addr, KeyPrefix: "photo-relay-test:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	exerciseProvider(t, r)
}

func TestFactory_Memory(t *testing.T) {
	f, err := NewFactory(&config.Config{CacheType: "memory", CacheMaxCostMB: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	assert.Equal(t, "memory", f.Name())
	exerciseProvider(t, f.GetProvider())
}

func TestFactory_Unsupported(t *testing.T) {
	_, err := NewFactory(&config.Config{CacheType: "memcached"})
	assert.Error(t, err)
}

func TestFactory_NilProvider(t *testing.T) {
	f := NewFactoryWithProvider(nil)
	ctx := context.Background()

	var got cachedPhoto
	assert.True(t, IsCacheMiss(f.Get(ctx, "k", &got)))
	assert.NoError(t, f.Delete(ctx, "k"))
	assert.Error(t, f.Set(ctx, "k", got, time.Minute))
	assert.Error(t, f.Health(ctx))
	assert.Equal(t, "none", f.Name())
}

func TestKeyBuilder(t *testing.T) {
	assert.Equal(t, "photo:current", CurrentPhotoKey())
	assert.Equal(t, "photo:42", Photo.BuildID(42))
	assert.Equal(t, "photo", Photo.Build())
}

func TestAddJitter(t *testing.T) {
	base := time.Hour
	for i := 0; i < 20; i++ {
		got := addJitter(base)
		assert.GreaterOrEqual(t, got, base)
		assert.Less(t, got, base+base/10)
	}
	assert.Equal(t, time.Duration(0), addJitter(0))
}
