package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header 请求 ID 头
const Header = "X-Request-ID"

const contextKey = "request_id"

// New 为每个请求分配请求 ID，客户端已提供时沿用
func New() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(contextKey, id)
		c.Header(Header, id)
		c.Next()
	}
}

// Get 返回当前请求的请求 ID
func Get(c *gin.Context) string {
	return c.GetString(contextKey)
}
