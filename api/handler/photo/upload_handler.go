package photo

import (
	"context"
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/anoixa/photo-relay/api/common"
	"github.com/anoixa/photo-relay/internal/broadcast"
	photoSvc "github.com/anoixa/photo-relay/internal/services/photo"
	"github.com/anoixa/photo-relay/utils"
	"github.com/anoixa/photo-relay/utils/validator"
)

// UploadPhoto 上传照片并替换当前照片，成功后广播给所有实时客户端
func (h *Handler) UploadPhoto(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			common.RespondDetail(c, http.StatusRequestEntityTooLarge, common.DetailFileTooLarge)
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			common.RespondDetail(c, http.StatusBadRequest, common.DetailNoImageFile)
		default:
			common.RespondDetail(c, http.StatusBadRequest, common.DetailInvalidUpload)
		}
		return
	}
	if fileHeader.Size == 0 {
		common.RespondDetail(c, http.StatusBadRequest, common.DetailNoImageFile)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.RespondServerError(c, err, "Failed to open uploaded file")
		return
	}
	defer func() { _ = file.Close() }()

	// 字段校验，与错误一同返回
	fieldErrors := &photoSvc.ValidationError{}
	if _, err := validator.ValidateImage(file); err != nil {
		if !errors.Is(err, validator.ErrNotAnImage) {
			common.RespondServerError(c, err, "Failed to inspect uploaded file")
			return
		}
		fieldErrors.Add("image", photoSvc.MsgInvalidImage)
	}
	if utf8.RuneCountInString(fileHeader.Filename) > photoSvc.MaxOriginalNameSize {
		fieldErrors.Add("original_file_name", photoSvc.MsgFileNameTooLong)
	}
	if len(fieldErrors.Fields) > 0 {
		common.RespondFieldErrors(c, fieldErrors.Fields)
		return
	}

	ctx := c.Request.Context()
	saved, err := h.service.ReplaceWith(ctx, file, fileHeader.Filename)
	if err != nil {
		if ve, ok := photoSvc.IsValidationError(err); ok {
			common.RespondFieldErrors(c, ve.Fields)
			return
		}
		if utils.IsClientDisconnect(err) {
			log.Debug().Err(err).Msg("Client disconnected during upload")
			return
		}
		common.RespondServerError(c, err, "Failed to replace photo")
		return
	}

	serialized := h.serializer.Serialize(ctx, saved, common.RequestBaseURL(c))

	// 照片已替换，发布不随请求取消
	event := broadcast.Event{
		"type":  EventPhotoUpdate,
		"image": serialized.Map(),
	}
	if err := h.publisher.GroupSend(context.WithoutCancel(ctx), GroupPhotoUpdates, event); err != nil {
		common.RespondServerError(c, err, "Failed to publish photo update")
		return
	}

	log.Info().
		Uint("id", saved.ID).
		Str("path", saved.Image).
		Str("original_name", utils.SanitizeLogFilename(saved.OriginalFileName)).
		Msg("Photo uploaded")

	common.RespondJSON(c, http.StatusCreated, serialized)
}
