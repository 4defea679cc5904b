package validator

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrNotAnImage 上传内容不是可解码的图片
var ErrNotAnImage = errors.New("file is not a valid image")

// allowedImageMimeTypes Allowed image types
var allowedImageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

// IsImage 校验内容是否为允许的图片类型，并确认图片头可以被解码
// 返回嗅探到的 MIME 类型，调用结束后 file 会被重置到起始位置
func IsImage(file io.ReadSeeker) (bool, string, error) {
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return false, "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return false, "", err
	}

	mimeType := http.DetectContentType(buffer[:n])
	if !allowedImageMimeTypes[mimeType] {
		return false, mimeType, nil
	}

	_, _, decodeErr := image.DecodeConfig(file)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return false, "", err
	}
	if decodeErr != nil {
		return false, mimeType, nil
	}

	return true, mimeType, nil
}

// ValidateImage 与 IsImage 相同，但以错误形式返回校验结果
func ValidateImage(file io.ReadSeeker) (string, error) {
	ok, mimeType, err := IsImage(file)
	if err != nil {
		return "", fmt.Errorf("failed to inspect upload: %w", err)
	}
	if !ok {
		return mimeType, ErrNotAnImage
	}
	return mimeType, nil
}
