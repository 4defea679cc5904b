package media

import (
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anoixa/photo-relay/api/common"
	"github.com/anoixa/photo-relay/storage"
	"github.com/anoixa/photo-relay/utils"
)

// Handler 媒体文件处理器
type Handler struct {
	storageFactory *storage.Factory
}

// NewHandler 创建媒体文件处理器
func NewHandler(storageFactory *storage.Factory) *Handler {
	return &Handler{storageFactory: storageFactory}
}

// ServeMedia 按存储相对路径返回文件内容，允许任意来源跨域读取
func (h *Handler) ServeMedia(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")

	storagePath := strings.TrimPrefix(c.Param("path"), "/")
	if !storage.IsValidStoragePath(storagePath) {
		common.RespondDetail(c, http.StatusNotFound, common.DetailNotFound)
		return
	}

	provider := h.storageFactory.GetDefault()
	if provider == nil {
		common.RespondServerError(c, nil, "No storage provider configured")
		return
	}

	reader, err := provider.GetWithContext(c.Request.Context(), storagePath)
	if err != nil {
		if storage.IsNotFound(err) || storage.IsInvalidPath(err) {
			common.RespondDetail(c, http.StatusNotFound, common.DetailNotFound)
			return
		}
		if utils.IsClientDisconnect(err) {
			return
		}
		common.RespondServerError(c, err, "Failed to read media file")
		return
	}
	defer storage.CloseReader(reader)

	contentType, err := utils.ContentTypeFor(storagePath, reader)
	if err != nil {
		common.RespondServerError(c, err, "Failed to detect media content type")
		return
	}

	c.Header("Content-Type", contentType)
	c.Header("X-Content-Type-Options", "nosniff")
	http.ServeContent(c.Writer, c.Request, path.Base(storagePath), time.Time{}, reader)
}
