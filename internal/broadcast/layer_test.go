package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGroup = "photo_updates"

func newMember(t *testing.T, l *Layer) *Channel {
	t.Helper()
	ch, err := l.NewChannel()
	require.NoError(t, err)
	require.NoError(t, l.GroupAdd(testGroup, ch))
	return ch
}

func receive(t *testing.T, ch *Channel) Event {
	t.Helper()
	select {
	case ev := <-ch.Receive():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestLayer_GroupSendDeliversToAllMembers(t *testing.T) {
	l := NewLayer(4)
	a := newMember(t, l)
	b := newMember(t, l)

	ev := Event{"type": "photo_update", "image": map[string]interface{}{"id": 1}}
	require.NoError(t, l.GroupSend(context.Background(), testGroup, ev))

	assert.Equal(t, ev, receive(t, a))
	assert.Equal(t, ev, receive(t, b))

	stats := l.Stats()
	assert.Equal(t, uint64(1), stats.Published)
	assert.Equal(t, uint64(2), stats.Delivered)
	assert.Equal(t, 2, stats.Members)
	assert.Equal(t, 1, stats.Groups)
}

func TestLayer_GroupSendToEmptyGroup(t *testing.T) {
	l := NewLayer(4)
	assert.NoError(t, l.GroupSend(context.Background(), testGroup, Event{"type": "photo_update"}))
}

func TestLayer_GroupSendRejectsUntypedEvent(t *testing.T) {
	l := NewLayer(4)
	err := l.GroupSend(context.Background(), testGroup, Event{"image": nil})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestLayer_GroupSendHonoursContext(t *testing.T) {
	l := NewLayer(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.GroupSend(ctx, testGroup, Event{"type": "photo_update"}), context.Canceled)
}

func TestLayer_OrderPreservedPerMember(t *testing.T) {
	l := NewLayer(8)
	ch := newMember(t, l)

	for i := 0; i < 5; i++ {
		require.NoError(t, l.GroupSend(context.Background(), testGroup, Event{"type": "photo_update", "seq": i}))
	}
	for i := 0; i < 5; i++ {
		assert.Equal(t, i, receive(t, ch)["seq"])
	}
}

func TestLayer_SlowMemberDropsWithoutBlocking(t *testing.T) {
	l := NewLayer(1)
	slow := newMember(t, l)
	fast := newMember(t, l)

	ctx := context.Background()
	require.NoError(t, l.GroupSend(ctx, testGroup, Event{"type": "photo_update", "seq": 1}))
	receive(t, fast)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.GroupSend(ctx, testGroup, Event{"type": "photo_update", "seq": 2})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("GroupSend blocked on a full inbox")
	}

	assert.Equal(t, 2, receive(t, fast)["seq"])
	assert.Equal(t, 1, receive(t, slow)["seq"])
	assert.Equal(t, uint64(1), l.Stats().Dropped)
}

func TestLayer_GroupDiscard(t *testing.T) {
	l := NewLayer(4)
	a := newMember(t, l)
	b := newMember(t, l)

	l.GroupDiscard(testGroup, a)
	assert.Equal(t, 1, l.GroupSize(testGroup))

	// 重复移除无副作用
	l.GroupDiscard(testGroup, a)
	l.GroupDiscard("unknown", a)

	require.NoError(t, l.GroupSend(context.Background(), testGroup, Event{"type": "photo_update"}))
	receive(t, b)

	select {
	case ev := <-a.Receive():
		t.Fatalf("discarded member received %v", ev)
	default:
	}
}

func TestLayer_GroupAddIsIdempotent(t *testing.T) {
	l := NewLayer(4)
	ch := newMember(t, l)
	require.NoError(t, l.GroupAdd(testGroup, ch))
	assert.Equal(t, 1, l.GroupSize(testGroup))

	assert.ErrorIs(t, l.GroupAdd(testGroup, nil), ErrNilChannel)
}

func TestLayer_Release(t *testing.T) {
	l := NewLayer(4)
	ch := newMember(t, l)
	require.NoError(t, l.GroupAdd("other", ch))

	l.Release(ch)

	assert.Equal(t, 0, l.GroupSize(testGroup))
	assert.Equal(t, 0, l.GroupSize("other"))
	assert.Equal(t, 0, l.Stats().Members)

	select {
	case <-ch.Done():
	default:
		t.Fatal("released channel should be done")
	}
}

func TestLayer_Close(t *testing.T) {
	l := NewLayer(4)
	ch := newMember(t, l)

	l.Close()
	l.Close()

	assert.True(t, l.Closed())
	<-ch.Done()

	assert.ErrorIs(t, l.GroupSend(context.Background(), testGroup, Event{"type": "photo_update"}), ErrLayerClosed)
	assert.ErrorIs(t, l.GroupAdd(testGroup, ch), ErrLayerClosed)

	_, err := l.NewChannel()
	assert.ErrorIs(t, err, ErrLayerClosed)
}

func TestLayer_ConcurrentJoinLeavePublish(t *testing.T) {
	l := NewLayer(64)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch, err := l.NewChannel()
			if err != nil {
				return
			}
			_ = l.GroupAdd(testGroup, ch)
			l.GroupDiscard(testGroup, ch)
			l.Release(ch)
		}()
		go func() {
			defer wg.Done()
			_ = l.GroupSend(ctx, testGroup, Event{"type": "photo_update"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, l.GroupSize(testGroup))
	assert.Equal(t, uint64(20), l.Stats().Published)
}
