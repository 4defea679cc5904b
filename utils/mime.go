package utils

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
)

// mimeToExtMap MIME类型到安全扩展名的映射
var mimeToExtMap = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// GetSafeExtension 根据MIME类型返回安全的文件扩展名
// 如果MIME类型不被允许，返回空字符串
func GetSafeExtension(mimeType string) string {
	mimeType = strings.TrimSpace(strings.Split(mimeType, ";")[0])
	return mimeToExtMap[mimeType]
}

// SniffContentType 读取前 512 字节嗅探内容类型，并将流重置到起始位置
func SniffContentType(stream io.ReadSeeker) (string, error) {
	buffer := make([]byte, 512)

	n, err := stream.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read stream for mime sniffing: %w", err)
	}

	contentType := http.DetectContentType(buffer[:n])

	if _, err = stream.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to seek stream back to start after sniffing: %w", err)
	}

	return contentType, nil
}

// ContentTypeFor 返回文件的内容类型
// 优先使用嗅探结果，无法识别时按扩展名推断
func ContentTypeFor(name string, stream io.ReadSeeker) (string, error) {
	sniffed, err := SniffContentType(stream)
	if err != nil {
		return "", err
	}
	if sniffed != "application/octet-stream" {
		return sniffed, nil
	}
	if byExt := mime.TypeByExtension(strings.ToLower(path.Ext(name))); byExt != "" {
		return byExt, nil
	}
	return sniffed, nil
}
