package ws

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"

	"github.com/anoixa/photo-relay/internal/broadcast"
	"github.com/anoixa/photo-relay/utils"
)

const maxInboundMessageSize = 4096

// errUnknownEvent 事件类型没有对应的处理方法
var errUnknownEvent = errors.New("no handler for event type")

// photoUpdateEvent 广播层投递的照片更新事件
type photoUpdateEvent struct {
	Type  string                 `mapstructure:"type"`
	Image map[string]interface{} `mapstructure:"image"`
}

// outboundMessage 发送给客户端的文本帧
type outboundMessage struct {
	Type  string                 `json:"type"`
	Image map[string]interface{} `json:"image"`
}

// consumer 单个 WebSocket 连接的读写循环
type consumer struct {
	conn         *websocket.Conn
	channel      *broadcast.Channel
	pingInterval time.Duration
	writeTimeout time.Duration
	readDone     chan struct{}
}

func newConsumer(conn *websocket.Conn, ch *broadcast.Channel, pingInterval, writeTimeout time.Duration) *consumer {
	return &consumer{
		conn:         conn,
		channel:      ch,
		pingInterval: pingInterval,
		writeTimeout: writeTimeout,
		readDone:     make(chan struct{}),
	}
}

// run 阻塞直到连接结束
func (c *consumer) run() {
	defer func() { _ = c.conn.Close() }()

	utils.SafeGo("ws-read-"+c.channel.Name(), c.readPump)
	c.writePump()
}

// readPump 检测断开，忽略客户端发送的内容
func (c *consumer) readPump() {
	defer close(c.readDone)

	pongWait := c.pingInterval * 2
	c.conn.SetReadLimit(maxInboundMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Debug().Err(err).Str("channel", c.channel.Name()).Msg("WebSocket read error")
			}
			return
		}
	}
}

// writePump 将收件箱中的事件写给客户端，并定时发送 ping
func (c *consumer) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-c.channel.Receive():
			if err := c.dispatch(event); err != nil {
				if errors.Is(err, errUnknownEvent) {
					log.Debug().Str("type", event.Type()).Msg("Ignoring event without handler")
					continue
				}
				log.Debug().Err(err).Str("channel", c.channel.Name()).Msg("WebSocket write failed")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout)); err != nil {
				return
			}
		case <-c.channel.Done():
			_ = c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(c.writeTimeout),
			)
			return
		case <-c.readDone:
			return
		}
	}
}

// dispatch 按事件类型调用对应的处理方法
func (c *consumer) dispatch(event broadcast.Event) error {
	switch event.Type() {
	case "photo_update":
		return c.photoUpdate(event)
	default:
		return errUnknownEvent
	}
}

func (c *consumer) photoUpdate(event broadcast.Event) error {
	var ev photoUpdateEvent
	if err := mapstructure.Decode(map[string]interface{}(event), &ev); err != nil {
		log.Warn().Err(err).Msg("Malformed photo_update event")
		return nil
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteJSON(outboundMessage{
		Type:  ev.Type,
		Image: ev.Image,
	})
}
