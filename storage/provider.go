package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound 存储中不存在该文件
var ErrNotFound = errors.New("file not found in storage")

// ErrInvalidPath 存储路径不合法
var ErrInvalidPath = errors.New("invalid storage path")

// Provider 存储提供者接口
// storagePath 均为相对路径，如 photos/cat.jpg
type Provider interface {
	// SaveWithContext 保存文件到存储
	SaveWithContext(ctx context.Context, storagePath string, file io.Reader) error

	// GetWithContext 从存储获取文件，不存在时返回 ErrNotFound
	GetWithContext(ctx context.Context, storagePath string) (io.ReadSeeker, error)

	// DeleteWithContext 从存储删除文件
	DeleteWithContext(ctx context.Context, storagePath string) error

	// Exists 检查文件是否存在
	Exists(ctx context.Context, storagePath string) (bool, error)

	// Size 返回文件大小（字节）
	Size(ctx context.Context, storagePath string) (int64, error)

	// List 列出目录下的文件路径（不递归）
	List(ctx context.Context, dir string) ([]string, error)

	// Health 检查存储健康状态
	Health(ctx context.Context) error

	// Name 返回存储名称
	Name() string
}

// CloseReader 关闭 GetWithContext 返回的读取器
func CloseReader(r io.Reader) {
	if c, ok := r.(io.Closer); ok {
		_ = c.Close()
	}
}
