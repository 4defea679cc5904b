package core

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/anoixa/photo-relay/api/handler/media"
	"github.com/anoixa/photo-relay/api/handler/photo"
	"github.com/anoixa/photo-relay/api/handler/ws"
	"github.com/anoixa/photo-relay/api/middleware"
	"github.com/anoixa/photo-relay/api/middleware/requestid"
	"github.com/anoixa/photo-relay/cache"
	"github.com/anoixa/photo-relay/config"
	"github.com/anoixa/photo-relay/database"
	"github.com/anoixa/photo-relay/internal/broadcast"
	"github.com/anoixa/photo-relay/internal/metrics"
	photoSvc "github.com/anoixa/photo-relay/internal/services/photo"
	"github.com/anoixa/photo-relay/storage"
	"github.com/anoixa/photo-relay/utils/format"
)

var startTime = time.Now()

// ServerDependencies 服务器依赖项
type ServerDependencies struct {
	Config          *config.Config
	DatabaseFactory *database.Factory
	StorageFactory  *storage.Factory
	CacheFactory    *cache.Factory
	Layer           *broadcast.Layer
	PhotoService    *photoSvc.Service
	Serializer      *photoSvc.Serializer
}

// setupRouter 启动gin
func setupRouter(deps *ServerDependencies) (*gin.Engine, func()) {
	cfg := deps.Config
	router := gin.New()

	// 全局中间件
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	_ = router.SetTrustedProxies(nil)

	// 限制上传文件大小，额外 1MB 留给 multipart 头部
	bodyLimit := format.MegabytesToBytes(cfg.UploadMaxSizeMB) + 1<<20
	router.MaxMultipartMemory = 8 << 20

	concurrencyLimiter := middleware.NewConcurrencyLimiter(cfg.MaxConcurrency)

	// 速率限制
	apiRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitApiRPS, cfg.RateLimitApiBurst, cfg.RateLimitExpireTime)
	mediaRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitMediaRPS, cfg.RateLimitMediaBurst, cfg.RateLimitExpireTime)
	cleanup := func() {
		apiRateLimiter.StopCleanup()
		mediaRateLimiter.StopCleanup()
	}

	router.GET("/health", healthHandler(deps))
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version": config.Version,
			"commit":  config.CommitHash,
		})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	photoHandler := photo.NewHandler(deps.PhotoService, deps.Serializer, deps.Layer)
	mediaHandler := media.NewHandler(deps.StorageFactory)
	wsHandler := ws.NewHandler(deps.Layer, photo.GroupPhotoUpdates, cfg.WSPingInterval, cfg.WSWriteTimeout)

	apiGroup := router.Group("/api")
	apiGroup.Use(func(c *gin.Context) { // 所有API禁止缓存
		c.Header("Cache-Control", "no-store")
		c.Next()
	})
	// 跨域限制仅作用于 API，媒体文件与 websocket 对任意来源开放
	apiGroup.Use(cors.New(corsConfig(cfg.CORSAllowOrigins)))
	apiGroup.Use(apiRateLimiter.Middleware(), concurrencyLimiter.Middleware())
	{
		apiGroup.OPTIONS("/*any", func(c *gin.Context) { c.Status(http.StatusNoContent) })       // 预检请求
		apiGroup.GET("/photo/", photoHandler.GetPhoto)                                           // GET /api/photo/
		apiGroup.POST("/photo/", middleware.MaxBytesReader(bodyLimit), photoHandler.UploadPhoto) // POST /api/photo/
	}

	mediaGroup := router.Group(cfg.MediaRoute())
	mediaGroup.Use(mediaRateLimiter.Middleware(), concurrencyLimiter.Middleware())
	{
		mediaGroup.GET("/*path", mediaHandler.ServeMedia)  // GET /media/{path}
		mediaGroup.HEAD("/*path", mediaHandler.ServeMedia) // HEAD /media/{path}
	}

	router.GET("/ws/photo/", wsHandler.ServeWS) // GET /ws/photo/ (websocket)

	return router, cleanup
}

// corsConfig 构建跨域配置，包含 "*" 或为空时允许所有来源
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", requestid.Header},
		ExposeHeaders: []string{requestid.Header},
		MaxAge:        12 * time.Hour,
	}

	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
			break
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// StartServer 创建 http.Server
func StartServer(deps *ServerDependencies) (*http.Server, func()) {
	cfg := deps.Config
	router, clean := setupRouter(deps)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return srv, clean
}
