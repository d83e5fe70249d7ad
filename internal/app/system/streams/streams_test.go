package streams

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const wait = 2 * time.Second

func recv[T any](t *testing.T, sub *Subscription[T]) T {
	t.Helper()
	select {
	case v, ok := <-sub.C():
		require.True(t, ok, "subscription closed unexpectedly")
		return v
	case <-time.After(wait):
		t.Fatal("timed out waiting for snapshot")
	}
	var zero T
	return zero
}

func TestHub_NotifySignalsWatchers(t *testing.T) {
	h := NewHub(zap.NewNop())
	ch, stop := h.Watch(KeyEvents, KeyGroups)
	defer stop()

	h.Notify(KeyUsers)
	select {
	case <-ch:
		t.Fatal("unrelated key must not signal")
	default:
	}

	h.Notify(KeyGroups)
	select {
	case <-ch:
	case <-time.After(wait):
		t.Fatal("expected signal")
	}
}

func TestHub_SignalsCoalesce(t *testing.T) {
	h := NewHub(zap.NewNop())
	ch, stop := h.Watch(KeyEvents)
	defer stop()

	h.Notify(KeyEvents)
	h.Notify(KeyEvents)
	h.Notify(KeyEvents)

	<-ch
	select {
	case <-ch:
		t.Fatal("signals should coalesce into one")
	default:
	}
}

func TestHub_StopUnregisters(t *testing.T) {
	h := NewHub(zap.NewNop())
	_, stop := h.Watch(KeyEvents)
	assert.Equal(t, 1, h.Watchers(KeyEvents))
	stop()
	stop()
	assert.Equal(t, 0, h.Watchers(KeyEvents))
}

func TestLive_InitialAndReload(t *testing.T) {
	h := NewHub(zap.NewNop())
	var n atomic.Int32
	load := func(ctx context.Context) (int, error) { return int(n.Add(1)), nil }

	sub := Live(context.Background(), h, load, zap.NewNop(), KeyEvents)
	defer sub.Close()

	assert.Equal(t, 1, recv(t, sub))
	h.Notify(KeyEvents)
	assert.Equal(t, 2, recv(t, sub))
}

func TestLive_ErrorKeepsSubscriptionOpen(t *testing.T) {
	h := NewHub(zap.NewNop())
	var n atomic.Int32
	load := func(ctx context.Context) (int, error) {
		c := n.Add(1)
		if c == 2 {
			return 0, errors.New("db down")
		}
		return int(c), nil
	}

	sub := Live(context.Background(), h, load, zap.NewNop(), KeyEvents)
	defer sub.Close()
	assert.Equal(t, 1, recv(t, sub))

	h.Notify(KeyEvents)
	require.Eventually(t, func() bool { return n.Load() >= 2 }, wait, 5*time.Millisecond)
	h.Notify(KeyEvents)
	assert.Equal(t, 3, recv(t, sub))
}

func TestLive_LatestValueWins(t *testing.T) {
	sub, publish := Manual[int](nil)
	defer sub.Close()

	for i := 1; i <= 5; i++ {
		require.True(t, publish(i))
	}
	assert.Equal(t, 5, recv(t, sub))
}

func TestSubscription_MergeFoldsUnreadSnapshots(t *testing.T) {
	sub := newSubscription[[]string](nil)
	sub.merge = func(pending, next []string) []string { return append(pending, next...) }
	defer sub.Close()

	require.True(t, sub.offer([]string{"a"}))
	require.True(t, sub.offer([]string{"b"}))
	require.True(t, sub.offer([]string{"c", "d"}))
	assert.Equal(t, []string{"a", "b", "c", "d"}, <-sub.C())

	require.True(t, sub.offer([]string{"e"}))
	assert.Equal(t, []string{"e"}, <-sub.C())
}

func TestSubscription_NothingAfterClose(t *testing.T) {
	var stopped atomic.Int32
	sub, publish := Manual[string](func() { stopped.Add(1) })

	require.True(t, publish("before"))
	sub.Close()
	sub.Close()

	assert.False(t, publish("after"))
	_, ok := <-sub.C()
	assert.False(t, ok, "channel must be closed and drained after Close")
	assert.Equal(t, int32(1), stopped.Load())

	select {
	case <-sub.Done():
	default:
		t.Fatal("Done must be closed")
	}
}

func TestLive_CloseReleasesWatcher(t *testing.T) {
	h := NewHub(zap.NewNop())
	sub := Live(context.Background(), h, func(ctx context.Context) (int, error) { return 0, nil }, zap.NewNop(), KeyUsers)
	recv(t, sub)
	sub.Close()
	assert.Equal(t, 0, h.Watchers(KeyUsers))
}

func TestLive_ContextCancelEndsSubscription(t *testing.T) {
	h := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	sub := Live(ctx, h, func(ctx context.Context) (int, error) { return 0, nil }, zap.NewNop(), KeyUsers)
	recv(t, sub)
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(wait):
		t.Fatal("subscription should end with its context")
	}
}

// fakeBus is an in-memory stand-in for a NATS connection shared by several bridges.
type fakeBus struct {
	mu       sync.Mutex
	handlers []func(*nats.Msg)
	subjects []string
}

type fakeConn struct{ bus *fakeBus }

func (c fakeConn) Publish(subj string, data []byte) error {
	c.bus.mu.Lock()
	c.bus.subjects = append(c.bus.subjects, subj)
	hs := append([]func(*nats.Msg){}, c.bus.handlers...)
	c.bus.mu.Unlock()
	for _, h := range hs {
		h(&nats.Msg{Subject: subj, Data: data})
	}
	return nil
}

func (c fakeConn) Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error) {
	if !strings.HasSuffix(subj, ".>") {
		return nil, errors.New("unexpected subject " + subj)
	}
	c.bus.mu.Lock()
	c.bus.handlers = append(c.bus.handlers, cb)
	c.bus.mu.Unlock()
	return &nats.Subscription{}, nil
}

func TestNATSBridge_RelaysBetweenHubs(t *testing.T) {
	bus := &fakeBus{}
	a, b := NewHub(zap.NewNop()), NewHub(zap.NewNop())
	require.NoError(t, a.Attach(NewNATSBridge(fakeConn{bus}, "", zap.NewNop())))
	require.NoError(t, b.Attach(NewNATSBridge(fakeConn{bus}, "", zap.NewNop())))

	chB, stopB := b.Watch("chat.abc")
	defer stopB()
	chA, stopA := a.Watch("chat.abc")
	defer stopA()

	a.Notify("chat.abc")

	select {
	case <-chB:
	case <-time.After(wait):
		t.Fatal("remote hub not signalled")
	}
	// local watcher signalled once; the echo from the bus is ignored
	<-chA
	select {
	case <-chA:
		t.Fatal("own echo must be ignored")
	default:
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	assert.Equal(t, []string{"maratech.changes.chat.abc"}, bus.subjects)
}
