package storage

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/anoixa/photo-relay/config"
	"github.com/anoixa/photo-relay/utils"
)

// Factory 存储工厂 - 负责创建和管理存储提供者
type Factory struct {
	providers       map[string]Provider
	defaultProvider string
}

// NewFactory 根据配置创建存储工厂，仅初始化 storage_type 指定的提供者
func NewFactory(cfg *config.Config) (*Factory, error) {
	factory := &Factory{
		providers: make(map[string]Provider),
	}

	storageType := cfg.StorageType
	if storageType == "" {
		storageType = "local"
	}

	log.Info().Str("type", storageType).Msg("Initializing storage provider")

	var (
		provider Provider
		err      error
	)
	switch storageType {
	case "local":
		path := cfg.StorageLocalPath
		if path == "" {
			path = filepath.Join(utils.GetDataDir(), "media")
		}
		provider, err = NewLocalStorage(path)
	case "minio":
		provider, err = NewMinioStorage(MinioConfig{
			Endpoint:        cfg.StorageMinioEndpoint,
			AccessKeyID:     cfg.StorageMinioAccessKeyID,
			SecretAccessKey: cfg.StorageMinioSecretAccessKey,
			BucketName:      cfg.StorageMinioBucketName,
			UseSSL:          cfg.StorageMinioUseSSL,
		})
	case "webdav":
		provider, err = NewWebDAVStorage(WebDAVConfig{
			URL:      cfg.StorageWebDAVURL,
			Username: cfg.StorageWebDAVUsername,
			Password: cfg.StorageWebDAVPassword,
			RootPath: cfg.StorageWebDAVRootPath,
			Timeout:  cfg.StorageWebDAVTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", storageType, err)
	}

	factory.providers[storageType] = provider
	factory.defaultProvider = storageType
	log.Info().Str("provider", provider.Name()).Msg("Default storage provider ready")

	return factory, nil
}

// NewFactoryWithProvider 使用已有的提供者创建工厂（测试用）
func NewFactoryWithProvider(name string, provider Provider) *Factory {
	return &Factory{
		providers:       map[string]Provider{name: provider},
		defaultProvider: name,
	}
}

// Get 获取指定名称的存储提供者
func (f *Factory) Get(name string) (Provider, error) {
	if name == "" {
		name = f.defaultProvider
	}

	provider, ok := f.providers[name]
	if !ok {
		return nil, fmt.Errorf("storage provider '%s' not found", name)
	}
	return provider, nil
}

// GetDefault 获取默认存储提供者
func (f *Factory) GetDefault() Provider {
	return f.providers[f.defaultProvider]
}

// GetDefaultName 获取默认存储提供者名称
func (f *Factory) GetDefaultName() string {
	return f.defaultProvider
}
