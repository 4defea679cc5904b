package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/anoixa/photo-relay/api/middleware/requestid"
	"github.com/anoixa/photo-relay/utils"
)

// Logger 使用 zerolog 记录访问日志
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		level := zerolog.DebugLevel
		switch {
		case status >= 500:
			level = zerolog.ErrorLevel
		case status >= 400:
			level = zerolog.InfoLevel
		}

		log.WithLevel(level).
			Str("request_id", requestid.Get(c)).
			Str("method", c.Request.Method).
			Str("path", utils.SanitizeLogMessage(path)).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("request")
	}
}
