package database

import (
	"fmt"

	"github.com/anoixa/photo-relay/config"
	"github.com/anoixa/photo-relay/database/models"
)

// NewSQLiteProvider 在指定路径创建 SQLite 提供者并完成迁移，供测试和命令行工具使用
func NewSQLiteProvider(path string) (*GormProvider, error) {
	provider, err := NewGormProvider(&config.Config{
		DBType:     "sqlite",
		DBFilePath: path,
	})
	if err != nil {
		return nil, err
	}
	if err := provider.AutoMigrate(&models.Photo{}); err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}
	return provider, nil
}
