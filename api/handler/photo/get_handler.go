package photo

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anoixa/photo-relay/api/common"
	photoSvc "github.com/anoixa/photo-relay/internal/services/photo"
)

// GetPhoto 返回当前照片
func (h *Handler) GetPhoto(c *gin.Context) {
	ctx := c.Request.Context()

	current, err := h.service.GetCurrent(ctx)
	if err != nil {
		if errors.Is(err, photoSvc.ErrPhotoNotFound) {
			common.RespondDetail(c, http.StatusNotFound, common.DetailNoPhoto)
			return
		}
		common.RespondServerError(c, err, "Failed to load current photo")
		return
	}

	common.RespondJSON(c, http.StatusOK, h.serializer.Serialize(ctx, current, common.RequestBaseURL(c)))
}
