package photo

import (
	"context"

	"github.com/anoixa/photo-relay/internal/broadcast"
	photoSvc "github.com/anoixa/photo-relay/internal/services/photo"
)

const (
	// GroupPhotoUpdates 照片更新广播组
	GroupPhotoUpdates = "photo_updates"
	// EventPhotoUpdate 照片更新事件类型
	EventPhotoUpdate = "photo_update"
)

// Publisher 广播发布接口
type Publisher interface {
	GroupSend(ctx context.Context, group string, event broadcast.Event) error
}

// Handler 照片处理器
type Handler struct {
	service    *photoSvc.Service
	serializer *photoSvc.Serializer
	publisher  Publisher
}

// NewHandler 创建照片处理器
func NewHandler(service *photoSvc.Service, serializer *photoSvc.Serializer, publisher Publisher) *Handler {
	return &Handler{
		service:    service,
		serializer: serializer,
		publisher:  publisher,
	}
}
