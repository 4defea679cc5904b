package app

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/anoixa/photo-relay/cache"
	"github.com/anoixa/photo-relay/cache/memory"
	"github.com/anoixa/photo-relay/config"
	"github.com/anoixa/photo-relay/database"
	"github.com/anoixa/photo-relay/database/repo/photos"
	"github.com/anoixa/photo-relay/internal/broadcast"
	photoSvc "github.com/anoixa/photo-relay/internal/services/photo"
	"github.com/anoixa/photo-relay/storage"
	"github.com/anoixa/photo-relay/utils"
	"github.com/anoixa/photo-relay/utils/generator"
)

// Container 依赖注入容器 - 管理所有服务的生命周期
type Container struct {
	config          *config.Config
	databaseFactory *database.Factory
	storageFactory  *storage.Factory
	cacheFactory    *cache.Factory
	layer           *broadcast.Layer

	PhotosRepo   *photos.Repository
	PhotoService *photoSvc.Service
	Serializer   *photoSvc.Serializer
}

// NewContainer 创建新的依赖注入容器
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config: cfg,
	}
}

// NewContainerWith 使用已创建的基础设施组装容器，并初始化服务
func NewContainerWith(cfg *config.Config, db *database.Factory, storageFactory *storage.Factory, cacheFactory *cache.Factory) *Container {
	c := &Container{
		config:          cfg,
		databaseFactory: db,
		storageFactory:  storageFactory,
		cacheFactory:    cacheFactory,
	}
	c.initServices()
	return c
}

// Init 按依赖顺序初始化全部组件
func (c *Container) Init() error {
	if err := c.InitDatabase(); err != nil {
		return err
	}
	if err := c.initStorage(); err != nil {
		return err
	}
	c.initCache()
	c.initServices()
	return nil
}

// InitDatabase 初始化数据库并迁移
func (c *Container) InitDatabase() error {
	utils.LogIfDev("Initializing DI container...")

	factory, err := database.NewFactory(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize database factory: %w", err)
	}
	c.databaseFactory = factory

	if err := factory.AutoMigrate(); err != nil {
		return err
	}

	utils.LogIfDev("Database factory initialized")
	return nil
}

func (c *Container) initStorage() error {
	factory, err := storage.NewFactory(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.storageFactory = factory
	return nil
}

// initCache 初始化缓存，失败时退回内存缓存
func (c *Container) initCache() {
	factory, err := cache.NewFactory(c.config)
	if err == nil {
		c.cacheFactory = factory
		return
	}

	log.Warn().Err(err).Msg("Cache initialization failed, falling back to memory cache")
	mem, memErr := memory.NewMemory(memory.Config{
		NumCounters: 10000,
		MaxCost:     16 << 20,
		BufferItems: 64,
	})
	if memErr != nil {
		log.Warn().Err(memErr).Msg("Memory cache unavailable, running without cache")
		return
	}
	c.cacheFactory = cache.NewFactoryWithProvider(mem)
}

func (c *Container) initServices() {
	if c.PhotosRepo == nil && c.databaseFactory != nil {
		c.PhotosRepo = photos.NewRepository(c.databaseFactory.GetProvider())
	}
	if c.layer == nil {
		c.layer = broadcast.NewLayer(c.config.BroadcastBufferSize)
	}

	c.PhotoService = photoSvc.NewService(
		c.PhotosRepo,
		c.storageFactory,
		c.cacheFactory,
		generator.NewNameGenerator(c.config.UploadDir),
		c.config.CachePhotoTTL,
	)
	c.Serializer = photoSvc.NewSerializer(c.storageFactory, c.config.BaseURL(), c.config.MediaURLPrefix)
	utils.LogIfDev("Services initialized")
}

// GetConfig 获取配置
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetDatabaseFactory 获取数据库工厂
func (c *Container) GetDatabaseFactory() *database.Factory {
	return c.databaseFactory
}

// GetStorageFactory 获取存储工厂
func (c *Container) GetStorageFactory() *storage.Factory {
	return c.storageFactory
}

// GetCacheFactory 获取缓存工厂
func (c *Container) GetCacheFactory() *cache.Factory {
	return c.cacheFactory
}

// GetBroadcastLayer 获取广播层
func (c *Container) GetBroadcastLayer() *broadcast.Layer {
	return c.layer
}

// Close 关闭所有服务
func (c *Container) Close() error {
	utils.LogIfDev("Closing DI container...")

	if c.layer != nil {
		c.layer.Close()
	}

	if c.cacheFactory != nil {
		if err := c.cacheFactory.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing cache")
		}
	}

	var err error
	if c.databaseFactory != nil {
		if err = c.databaseFactory.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing database factory")
		}
	}

	utils.LogIfDev("DI container closed")
	return err
}
