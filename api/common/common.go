package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/anoixa/photo-relay/api/middleware/requestid"
)

// 通用错误提示
const (
	DetailServerError   = "A server error occurred."
	DetailNotFound      = "Not found."
	DetailNoPhoto       = "No photo found."
	DetailNoImageFile   = "No image file provided."
	DetailTooManyReqs   = "Request was throttled."
	DetailServerBusy    = "Server is busy, please try again later."
	DetailFileTooLarge  = "Uploaded file is too large."
	DetailInvalidUpload = "Multipart form parse error."
)

// DetailResponse 仅包含 detail 字段的错误响应
type DetailResponse struct {
	Detail string `json:"detail"`
}

// RespondJSON 返回任意 JSON 数据
func RespondJSON(c *gin.Context, httpStatus int, data interface{}) {
	c.JSON(httpStatus, data)
}

// RespondDetail 返回 {"detail": message}
func RespondDetail(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, DetailResponse{Detail: message})
}

// RespondDetailAbort 返回 {"detail": message} 并中断后续处理
func RespondDetailAbort(c *gin.Context, httpStatus int, message string) {
	c.AbortWithStatusJSON(httpStatus, DetailResponse{Detail: message})
}

// RespondFieldErrors 返回字段级校验错误，如 {"image": ["..."]}
func RespondFieldErrors(c *gin.Context, fields map[string][]string) {
	c.JSON(http.StatusBadRequest, fields)
}

// RespondServerError 记录错误并返回 500
func RespondServerError(c *gin.Context, err error, msg string) {
	log.Error().
		Err(err).
		Str("request_id", requestid.Get(c)).
		Str("path", c.Request.URL.Path).
		Msg(msg)
	RespondDetail(c, http.StatusInternalServerError, DetailServerError)
}

// RequestBaseURL 返回请求的 scheme+host，如 http://localhost:8000
func RequestBaseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	host := c.Request.Host
	if fwd := c.GetHeader("X-Forwarded-Host"); fwd != "" {
		host = fwd
	}
	return scheme + "://" + host
}
