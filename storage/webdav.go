package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"
)

// WebDAVConfig WebDAV 配置结构
type WebDAVConfig struct {
	URL      string
	Username string
	Password string
	RootPath string
	Timeout  time.Duration
}

// WebDAVStorage WebDAV 存储实现
type WebDAVStorage struct {
	client   *gowebdav.Client
	baseURL  string
	rootPath string
}

// NewWebDAVStorage 创建 WebDAV 存储提供者
func NewWebDAVStorage(cfg WebDAVConfig) (*WebDAVStorage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webdav URL is required")
	}

	rootPath := strings.Trim(cfg.RootPath, "/")
	if rootPath != "" {
		rootPath = "/" + rootPath
	}

	client := gowebdav.NewClient(cfg.URL, cfg.Username, cfg.Password)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	s := &WebDAVStorage{
		client:   client,
		rootPath: rootPath,
		baseURL:  strings.TrimRight(cfg.URL, "/"),
	}

	// 验证连接
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Health(ctx); err != nil {
		return nil, fmt.Errorf("webdav connection test failed: %w", err)
	}

	return s, nil
}

// run 在 goroutine 中执行阻塞的 WebDAV 调用，以便响应 ctx 取消
func run[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	default:
	}

	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{val: v, err: err}
	}()

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-done:
		return res.val, res.err
	}
}

// fullPath 生成完整的 WebDAV 路径
func (s *WebDAVStorage) fullPath(storagePath string) string {
	storagePath = strings.TrimLeft(storagePath, "/")
	if s.rootPath != "" {
		return s.rootPath + "/" + storagePath
	}
	return "/" + storagePath
}

// ensureParentDir 递归创建父目录
func (s *WebDAVStorage) ensureParentDir(ctx context.Context, fullPath string) error {
	parentDir := path.Dir(fullPath)
	if parentDir == "/" || parentDir == "." {
		return nil
	}

	currentPath := ""
	for _, part := range strings.Split(strings.Trim(parentDir, "/"), "/") {
		if part == "" {
			continue
		}
		currentPath = currentPath + "/" + part

		p := currentPath
		_, err := run(ctx, func() (struct{}, error) {
			return struct{}{}, s.client.Mkdir(p, os.FileMode(0755))
		})
		if err != nil && !isCollectionExistsError(err) {
			return fmt.Errorf("failed to create directory %s: %w", currentPath, err)
		}
	}

	return nil
}

// isCollectionExistsError 判断是否为目录已存在的错误
func isCollectionExistsError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	for _, s := range []string{"already exists", "Conflict", "conflict", "409", "Method Not Allowed", "405"} {
		if strings.Contains(errStr, s) {
			return true
		}
	}
	return false
}

// SaveWithContext 保存文件到 WebDAV
func (s *WebDAVStorage) SaveWithContext(ctx context.Context, storagePath string, file io.Reader) error {
	if !IsValidStoragePath(storagePath) {
		return fmt.Errorf("%w: %s", ErrInvalidPath, storagePath)
	}

	fullPath := s.fullPath(storagePath)
	if err := s.ensureParentDir(ctx, fullPath); err != nil {
		return fmt.Errorf("failed to ensure parent directory for %s: %w", storagePath, err)
	}

	_, err := run(ctx, func() (struct{}, error) {
		return struct{}{}, s.client.WriteStream(fullPath, file, 0644)
	})
	if err != nil {
		return fmt.Errorf("failed to write file %s: %w", storagePath, err)
	}
	return nil
}

// GetWithContext 从 WebDAV 获取文件
func (s *WebDAVStorage) GetWithContext(ctx context.Context, storagePath string) (io.ReadSeeker, error) {
	if !IsValidStoragePath(storagePath) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, storagePath)
	}

	data, err := run(ctx, func() ([]byte, error) {
		return s.client.Read(s.fullPath(storagePath))
	})
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, storagePath)
		}
		return nil, fmt.Errorf("failed to read file %s: %w", storagePath, err)
	}
	return bytes.NewReader(data), nil
}

// DeleteWithContext 从 WebDAV 删除文件
func (s *WebDAVStorage) DeleteWithContext(ctx context.Context, storagePath string) error {
	if !IsValidStoragePath(storagePath) {
		return fmt.Errorf("%w: %s", ErrInvalidPath, storagePath)
	}

	_, err := run(ctx, func() (struct{}, error) {
		return struct{}{}, s.client.Remove(s.fullPath(storagePath))
	})
	if err != nil {
		return fmt.Errorf("failed to delete file %s: %w", storagePath, err)
	}
	return nil
}

// Exists 检查文件是否存在
func (s *WebDAVStorage) Exists(ctx context.Context, storagePath string) (bool, error) {
	_, err := s.Size(ctx, storagePath)
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// Size 返回文件大小
func (s *WebDAVStorage) Size(ctx context.Context, storagePath string) (int64, error) {
	if !IsValidStoragePath(storagePath) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPath, storagePath)
	}

	info, err := run(ctx, func() (os.FileInfo, error) {
		return s.client.Stat(s.fullPath(storagePath))
	})
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, storagePath)
		}
		return 0, fmt.Errorf("failed to stat file %s: %w", storagePath, err)
	}
	return info.Size(), nil
}

// List 列出目录下的文件
func (s *WebDAVStorage) List(ctx context.Context, dir string) ([]string, error) {
	prefix := strings.Trim(dir, "/")

	infos, err := run(ctx, func() ([]os.FileInfo, error) {
		return s.client.ReadDir(s.fullPath(prefix))
	})
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list directory %s: %w", dir, err)
	}

	paths := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		paths = append(paths, prefix+"/"+info.Name())
	}
	return paths, nil
}

// Health 检查存储健康状态
func (s *WebDAVStorage) Health(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("webdav client not initialized")
	}
	root := s.rootPath
	if root == "" {
		root = "/"
	}
	_, err := run(ctx, func() ([]os.FileInfo, error) {
		return s.client.ReadDir(root)
	})
	return err
}

// Name 返回存储名称
func (s *WebDAVStorage) Name() string {
	if s.baseURL == "" {
		return "webdav"
	}
	return fmt.Sprintf("webdav:%s%s", s.baseURL, s.rootPath)
}
