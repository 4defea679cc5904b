package utils

import (
	"net/url"
	"strings"
)

// BuildMediaURL 拼接媒体文件的绝对地址
// baseURL 形如 https://example.com，prefix 形如 /media/，storagePath 形如 photos/a.jpg
func BuildMediaURL(baseURL, prefix, storagePath string) string {
	segments := strings.Split(strings.TrimLeft(storagePath, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(baseURL, "/") + prefix + strings.Join(segments, "/")
}
