package broadcast

import "sync"

// Channel 广播组成员，持有一个有界收件箱
type Channel struct {
	name  string
	inbox chan Event

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func newChannel(name string, bufferSize int) *Channel {
	return &Channel{
		name:  name,
		inbox: make(chan Event, bufferSize),
		done:  make(chan struct{}),
	}
}

// Name 返回通道名称
func (c *Channel) Name() string {
	return c.name
}

// Receive 返回收件箱，只读
func (c *Channel) Receive() <-chan Event {
	return c.inbox
}

// Done 通道被释放或广播层关闭时关闭
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// deliver 非阻塞投递，收件箱已满或通道已关闭时返回 false
func (c *Channel) deliver(event Event) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}
	select {
	case c.inbox <- event:
		return true
	default:
		return false
	}
}

func (c *Channel) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}
