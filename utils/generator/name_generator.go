package generator

import (
	"context"
	"crypto/rand"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

const (
	suffixLength  = 7
	suffixCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// MaxNameAttempts 生成可用文件名的最大尝试次数
	MaxNameAttempts = 100

	// maxNameLength 落盘文件名的最大长度，预留随机后缀的空间
	maxNameLength = 200
)

// ExistsFunc 判断存储路径是否已被占用
type ExistsFunc func(ctx context.Context, storagePath string) (bool, error)

// NameGenerator 存储文件名生成器
type NameGenerator struct {
	uploadDir string
}

// NewNameGenerator 创建文件名生成器，uploadDir 为存储内的相对目录，如 photos
func NewNameGenerator(uploadDir string) *NameGenerator {
	return &NameGenerator{uploadDir: strings.Trim(uploadDir, "/")}
}

// ValidFileName 将客户端文件名转换为可安全落盘的名称
// 去除首尾空白，空格替换为下划线，删除 [-A-Za-z0-9_.] 以外的字符
func ValidFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = strings.ReplaceAll(name, " ", "_")

	var sb strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '-' || r == '_' || r == '.' {
			sb.WriteRune(r)
		}
	}

	cleaned := strings.Trim(sb.String(), ".")
	if cleaned == "" || strings.Contains(cleaned, "..") {
		return ""
	}
	return cleaned
}

// StoragePath 生成候选存储路径，如 photos/cat.jpg
// 文件名清洗后为空时使用随机名，扩展名取 fallbackExt
func (g *NameGenerator) StoragePath(originalName, fallbackExt string) string {
	name := ValidFileName(originalName)
	if name == "" || name == strings.TrimPrefix(fallbackExt, ".") {
		name = strings.ReplaceAll(uuid.NewString(), "-", "")[:12] + fallbackExt
	}
	if len(name) > maxNameLength {
		root, ext := name, path.Ext(name)
		if len(ext) <= 16 {
			root = strings.TrimSuffix(name, ext)
		} else {
			ext = ""
		}
		name = root[:maxNameLength-len(ext)] + ext
	}
	if g.uploadDir == "" {
		return name
	}
	return g.uploadDir + "/" + name
}

// AlternativeName 在扩展名前追加随机后缀，如 photos/cat_a1B2c3D.jpg
func AlternativeName(storagePath string) (string, error) {
	dir, file := path.Split(storagePath)
	ext := path.Ext(file)
	root := strings.TrimSuffix(file, ext)

	suffix, err := randomSuffix(suffixLength)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s_%s%s", dir, root, suffix, ext), nil
}

// AvailableName 返回存储中尚未被占用的路径
func (g *NameGenerator) AvailableName(ctx context.Context, storagePath string, exists ExistsFunc) (string, error) {
	candidate := storagePath
	for attempt := 0; attempt < MaxNameAttempts; attempt++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check storage path '%s': %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}

		candidate, err = AlternativeName(storagePath)
		if err != nil {
			return "", fmt.Errorf("failed to generate alternative name: %w", err)
		}
	}
	return "", fmt.Errorf("could not find an available name for '%s' after %d attempts", storagePath, MaxNameAttempts)
}

// UploadDir 返回上传目录
func (g *NameGenerator) UploadDir() string {
	return g.uploadDir
}

func randomSuffix(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = suffixCharset[int(b)%len(suffixCharset)]
	}
	return string(buf), nil
}
