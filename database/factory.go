package database

import (
	"context"
	"fmt"

	"github.com/anoixa/photo-relay/config"
	"github.com/anoixa/photo-relay/database/models"
	"github.com/rs/zerolog/log"
)

// Factory 数据库工厂 - 负责创建和管理数据库提供者
type Factory struct {
	provider Provider
}

// NewFactory 创建新的数据库工厂
func NewFactory(cfg *config.Config) (*Factory, error) {
	log.Info().Msg("Initializing database provider...")

	provider, err := NewGormProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database provider: %w", err)
	}

	log.Info().Str("provider", provider.Name()).Msg("Database provider initialized")

	return &Factory{provider: provider}, nil
}

// NewFactoryWithProvider 使用已有的提供者创建工厂
func NewFactoryWithProvider(provider Provider) *Factory {
	return &Factory{provider: provider}
}

// GetProvider 获取数据库提供者
func (f *Factory) GetProvider() Provider {
	return f.provider
}

// AutoMigrate 自动迁移数据库结构
func (f *Factory) AutoMigrate() error {
	if f.provider == nil {
		return fmt.Errorf("database provider not initialized")
	}

	log.Info().Msg("Running database auto migration...")
	if err := f.provider.AutoMigrate(&models.Photo{}); err != nil {
		return fmt.Errorf("failed to auto migrate database: %w", err)
	}
	log.Info().Msg("Database auto migration completed.")
	return nil
}

// Ping 检查数据库连接
func (f *Factory) Ping(ctx context.Context) error {
	if f.provider == nil {
		return fmt.Errorf("database provider not initialized")
	}
	return f.provider.Ping(ctx)
}

// Close 关闭数据库连接
func (f *Factory) Close() error {
	if f.provider != nil {
		return f.provider.Close()
	}
	return nil
}
