package broadcast

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/anoixa/photo-relay/internal/metrics"
)

var (
	// ErrLayerClosed 广播层已关闭
	ErrLayerClosed = errors.New("broadcast layer closed")
	// ErrNilChannel 通道为空
	ErrNilChannel = errors.New("nil channel")
	// ErrInvalidEvent 事件缺少 type 字段
	ErrInvalidEvent = errors.New("event must carry a non-empty string \"type\"")
)

// Event 广播事件，type 字段决定消费者如何处理
type Event map[string]interface{}

// Type 返回事件类型
func (e Event) Type() string {
	t, _ := e["type"].(string)
	return t
}

// Stats 广播层统计
type Stats struct {
	Groups    int    `json:"groups"`
	Members   int    `json:"members"`
	Published uint64 `json:"published"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
}

// Layer 进程内的发布/订阅层，按组名管理成员
type Layer struct {
	mu         sync.RWMutex
	groups     map[string]map[string]*Channel
	channels   map[string]*Channel
	bufferSize int
	closed     bool

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewLayer 创建广播层，bufferSize 为每个成员的收件箱容量
func NewLayer(bufferSize int) *Layer {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Layer{
		groups:     make(map[string]map[string]*Channel),
		channels:   make(map[string]*Channel),
		bufferSize: bufferSize,
	}
}

// NewChannel 创建一个带唯一名称的成员通道
func (l *Layer) NewChannel() (*Channel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrLayerClosed
	}

	ch := newChannel(uuid.NewString(), l.bufferSize)
	l.channels[ch.name] = ch
	return ch, nil
}

// GroupAdd 将通道加入组，重复加入无副作用
func (l *Layer) GroupAdd(group string, ch *Channel) error {
	if ch == nil {
		return ErrNilChannel
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLayerClosed
	}

	members, ok := l.groups[group]
	if !ok {
		members = make(map[string]*Channel)
		l.groups[group] = members
	}
	members[ch.name] = ch
	metrics.BroadcastMembers.WithLabelValues(group).Set(float64(len(members)))
	return nil
}

// GroupDiscard 将通道移出组，不在组内时无操作
func (l *Layer) GroupDiscard(group string, ch *Channel) {
	if ch == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	members, ok := l.groups[group]
	if !ok {
		return
	}
	delete(members, ch.name)
	metrics.BroadcastMembers.WithLabelValues(group).Set(float64(len(members)))
	if len(members) == 0 {
		delete(l.groups, group)
	}
}

// Release 将通道移出所有组并关闭
func (l *Layer) Release(ch *Channel) {
	if ch == nil {
		return
	}

	l.mu.Lock()
	for group, members := range l.groups {
		if _, ok := members[ch.name]; !ok {
			continue
		}
		delete(members, ch.name)
		metrics.BroadcastMembers.WithLabelValues(group).Set(float64(len(members)))
		if len(members) == 0 {
			delete(l.groups, group)
		}
	}
	delete(l.channels, ch.name)
	l.mu.Unlock()

	ch.close()
}

// GroupSend 向组内所有成员投递事件
// 成员快照在锁内获取，投递为非阻塞，收件箱已满的成员丢弃该事件
func (l *Layer) GroupSend(ctx context.Context, group string, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.Type() == "" {
		return ErrInvalidEvent
	}

	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return ErrLayerClosed
	}
	members := make([]*Channel, 0, len(l.groups[group]))
	for _, ch := range l.groups[group] {
		members = append(members, ch)
	}
	l.mu.RUnlock()

	l.published.Add(1)
	for _, ch := range members {
		if ch.deliver(event) {
			l.delivered.Add(1)
			metrics.BroadcastEvents.WithLabelValues("delivered").Inc()
		} else {
			l.dropped.Add(1)
			metrics.BroadcastEvents.WithLabelValues("dropped").Inc()
		}
	}
	return nil
}

// GroupSize 返回组内成员数
func (l *Layer) GroupSize(group string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.groups[group])
}

// Stats 返回统计快照
func (l *Layer) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return Stats{
		Groups:    len(l.groups),
		Members:   len(l.channels),
		Published: l.published.Load(),
		Delivered: l.delivered.Load(),
		Dropped:   l.dropped.Load(),
	}
}

// Closed 报告广播层是否已关闭
func (l *Layer) Closed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}

// Close 关闭广播层并关闭所有成员通道，可重复调用
func (l *Layer) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	channels := l.channels
	for group := range l.groups {
		metrics.BroadcastMembers.WithLabelValues(group).Set(0)
	}
	l.groups = make(map[string]map[string]*Channel)
	l.channels = make(map[string]*Channel)
	l.mu.Unlock()

	for _, ch := range channels {
		ch.close()
	}
}
