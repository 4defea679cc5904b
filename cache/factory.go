package cache

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/anoixa/photo-relay/cache/memory"
	"github.com/anoixa/photo-relay/cache/redis"
	"github.com/anoixa/photo-relay/config"
)

// Factory 缓存工厂
type Factory struct {
	provider Provider
}

// NewFactory 根据配置创建缓存工厂
func NewFactory(cfg *config.Config) (*Factory, error) {
	var (
		provider Provider
		err      error
	)

	switch cfg.CacheType {
	case "", "memory":
		maxCost := cfg.CacheMaxCostMB << 20
		if maxCost <= 0 {
			maxCost = 16 << 20
		}
		provider, err = memory.NewMemory(memory.Config{
			NumCounters: 10000,
			MaxCost:     maxCost,
			BufferItems: 64,
			Metrics:     false,
		})
	case "redis":
		provider, err = redis.NewRedis(redis.Config{
			Address:      cfg.CacheRedisAddr,
			Password:     cfg.CacheRedisPassword,
			DB:           cfg.CacheRedisDB,
			PoolSize:     10,
			MinIdleConns: 2,
			KeyPrefix:    "photo-relay:",
		})
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.CacheType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s cache: %w", cfg.CacheType, err)
	}

	log.Info().Str("provider", provider.Name()).Msg("Cache provider initialized")
	return NewFactoryWithProvider(provider), nil
}

// NewFactoryWithProvider 使用已有的提供者创建工厂
func NewFactoryWithProvider(provider Provider) *Factory {
	return &Factory{provider: provider}
}

// GetProvider 获取缓存提供者
func (f *Factory) GetProvider() Provider {
	return f.provider
}

// Name 返回缓存提供者名称
func (f *Factory) Name() string {
	if f.provider == nil {
		return "none"
	}
	return f.provider.Name()
}

// Set 设置缓存项，过期时间附加随机抖动
func (f *Factory) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if f.provider == nil {
		return fmt.Errorf("cache provider not initialized")
	}
	return f.provider.Set(ctx, key, value, addJitter(expiration))
}

// Get 获取缓存项
func (f *Factory) Get(ctx context.Context, key string, dest interface{}) error {
	if f.provider == nil {
		return ErrCacheMiss
	}
	return f.provider.Get(ctx, key, dest)
}

// Delete 删除缓存项
func (f *Factory) Delete(ctx context.Context, key string) error {
	if f.provider == nil {
		return nil
	}
	return f.provider.Delete(ctx, key)
}

// Health 检查缓存健康状态
func (f *Factory) Health(ctx context.Context) error {
	if f.provider == nil {
		return fmt.Errorf("cache provider not initialized")
	}
	return f.provider.Health(ctx)
}

// Close 关闭缓存提供者
func (f *Factory) Close() error {
	if f.provider == nil {
		return nil
	}
	return f.provider.Close()
}

// addJitter 添加随机抖动（+0~10%），防止缓存雪崩
func addJitter(duration time.Duration) time.Duration {
	if duration < 10 {
		return duration
	}
	jitter := time.Duration(rand.Int63n(int64(duration) / 10))
	return duration + jitter
}
