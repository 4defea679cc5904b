package core

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/anoixa/photo-relay/cache"
	"github.com/anoixa/photo-relay/config"
	"github.com/anoixa/photo-relay/database"
	"github.com/anoixa/photo-relay/storage"
)

const healthCheckTimeout = 3 * time.Second

// healthHandler 并行检查数据库、缓存与存储
func healthHandler(deps *ServerDependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		var mu sync.Mutex
		checks := gin.H{}
		record := func(name, result string) {
			mu.Lock()
			checks[name] = result
			mu.Unlock()
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { record("database", checkDatabaseHealth(gctx, deps.DatabaseFactory)); return nil })
		g.Go(func() error { record("cache", checkCacheHealth(gctx, deps.CacheFactory)); return nil })
		g.Go(func() error { record("storage", checkStorageHealth(gctx, deps.StorageFactory)); return nil })
		_ = g.Wait()

		httpStatus := http.StatusOK
		status := "ok"
		for _, result := range checks {
			if result != "ok" {
				httpStatus = http.StatusServiceUnavailable
				status = "degraded"
				break
			}
		}

		body := gin.H{
			"status":  status,
			"uptime":  time.Since(startTime).Round(time.Second).String(),
			"version": config.Version,
			"checks":  checks,
		}
		if deps.Layer != nil {
			body["broadcast"] = deps.Layer.Stats()
		}
		c.JSON(httpStatus, body)
	}
}

func checkDatabaseHealth(ctx context.Context, factory *database.Factory) string {
	if factory == nil || factory.GetProvider() == nil {
		return "not initialized"
	}
	if err := factory.Ping(ctx); err != nil {
		return "unavailable: " + err.Error()
	}
	return "ok"
}

func checkCacheHealth(ctx context.Context, cacheFactory *cache.Factory) string {
	if cacheFactory == nil || cacheFactory.GetProvider() == nil {
		return "not initialized"
	}
	if err := cacheFactory.Health(ctx); err != nil {
		return "unavailable: " + err.Error()
	}
	return "ok"
}

func checkStorageHealth(ctx context.Context, storageFactory *storage.Factory) string {
	if storageFactory == nil {
		return "not initialized"
	}

	provider := storageFactory.GetDefault()
	if provider == nil {
		return "error: no default storage provider"
	}

	if err := provider.Health(ctx); err != nil {
		return "error: " + err.Error()
	}

	return "ok"
}
