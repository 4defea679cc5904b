package photo

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/anoixa/photo-relay/database/models"
	"github.com/anoixa/photo-relay/storage"
	"github.com/anoixa/photo-relay/utils"
)

// Serialized 照片的对外表示
type Serialized struct {
	ID               uint      `json:"id"`
	Image            string    `json:"image"`
	OriginalFileName string    `json:"original_file_name"`
	FileSize         *int64    `json:"file_size"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

// Map 转换为广播事件使用的通用结构
func (s Serialized) Map() map[string]interface{} {
	return map[string]interface{}{
		"id":                 s.ID,
		"image":              s.Image,
		"original_file_name": s.OriginalFileName,
		"file_size":          s.FileSize,
		"uploaded_at":        s.UploadedAt,
	}
}

// Serializer 将照片记录转换为对外表示
type Serializer struct {
	storageFactory *storage.Factory
	baseURL        string
	mediaPrefix    string
}

// NewSerializer 创建序列化器
// baseURL 为空时使用请求的 scheme+host
func NewSerializer(storageFactory *storage.Factory, baseURL, mediaPrefix string) *Serializer {
	return &Serializer{
		storageFactory: storageFactory,
		baseURL:        baseURL,
		mediaPrefix:    mediaPrefix,
	}
}

// Serialize 序列化照片，requestBase 形如 http://host:port
func (z *Serializer) Serialize(ctx context.Context, photo *models.Photo, requestBase string) Serialized {
	base := z.baseURL
	if base == "" {
		base = requestBase
	}

	return Serialized{
		ID:               photo.ID,
		Image:            utils.BuildMediaURL(base, z.mediaPrefix, photo.Image),
		OriginalFileName: photo.OriginalFileName,
		FileSize:         z.fileSize(ctx, photo.Image),
		UploadedAt:       photo.UploadedAt,
	}
}

// fileSize 读取存储中的文件大小，文件缺失或存储不可用时返回 nil
func (z *Serializer) fileSize(ctx context.Context, storagePath string) *int64 {
	if storagePath == "" || z.storageFactory == nil {
		return nil
	}
	provider := z.storageFactory.GetDefault()
	if provider == nil {
		return nil
	}

	size, err := provider.Size(ctx, storagePath)
	if err != nil {
		if !storage.IsNotFound(err) {
			log.Warn().Err(err).Str("path", storagePath).Msg("Failed to stat photo file")
		}
		return nil
	}
	return &size
}
