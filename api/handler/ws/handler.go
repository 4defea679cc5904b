package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/anoixa/photo-relay/api/common"
	"github.com/anoixa/photo-relay/internal/broadcast"
	"github.com/anoixa/photo-relay/internal/metrics"
)

// Handler 实时推送 WebSocket 处理器
type Handler struct {
	layer        *broadcast.Layer
	group        string
	pingInterval time.Duration
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

// NewHandler 创建 WebSocket 处理器，连接建立后加入 group
func NewHandler(layer *broadcast.Layer, group string, pingInterval, writeTimeout time.Duration) *Handler {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Handler{
		layer:        layer,
		group:        group,
		pingInterval: pingInterval,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS 升级连接并运行消费者，直到客户端断开或服务关闭
func (h *Handler) ServeWS(c *gin.Context) {
	ch, err := h.layer.NewChannel()
	if err != nil {
		common.RespondDetail(c, http.StatusServiceUnavailable, common.DetailServerBusy)
		return
	}

	// 先加入组再完成握手
	if err := h.layer.GroupAdd(h.group, ch); err != nil {
		h.layer.Release(ch)
		common.RespondDetail(c, http.StatusServiceUnavailable, common.DetailServerBusy)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.layer.Release(ch)
		log.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	metrics.WebSocketConnections.Inc()
	defer metrics.WebSocketConnections.Dec()

	consumer := newConsumer(conn, ch, h.pingInterval, h.writeTimeout)
	consumer.run()

	h.layer.GroupDiscard(h.group, ch)
	h.layer.Release(ch)
}
