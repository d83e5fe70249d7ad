// internal/app/system/streams/live.go
package streams

import (
	"context"

	"go.uber.org/zap"
)

// Loader runs the query behind a live subscription.
type Loader[T any] func(ctx context.Context) (T, error)

// Live returns a subscription that delivers load's result immediately and
// again after every change signal on keys. A failed reload is logged and
// the previous snapshot stays current. The subscription ends when ctx is
// cancelled or Close is called.
func Live[T any](ctx context.Context, hub *Hub, load Loader[T], logger *zap.Logger, keys ...string) *Subscription[T] {
	return live(ctx, hub, load, nil, logger, keys)
}

// LiveMerged is Live for snapshots that carry one-shot items. When the
// consumer falls behind, merge folds the unread snapshot into the newer one
// instead of dropping it.
func LiveMerged[T any](ctx context.Context, hub *Hub, load Loader[T], merge func(pending, next T) T, logger *zap.Logger, keys ...string) *Subscription[T] {
	return live(ctx, hub, load, merge, logger, keys)
}

func live[T any](ctx context.Context, hub *Hub, load Loader[T], merge func(pending, next T) T, logger *zap.Logger, keys []string) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	signals, unwatch := hub.Watch(keys...)
	sub := newSubscription[T](func() {
		cancel()
		unwatch()
	})
	sub.merge = merge

	go func() {
		defer sub.Close()

		reload := func() bool {
			v, err := load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				logger.Warn("live query failed", zap.Strings("keys", keys), zap.Error(err))
				return true
			}
			return sub.offer(v)
		}

		if !reload() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-signals:
				if !reload() {
					return
				}
			}
		}
	}()

	return sub
}

// Manual returns a subscription fed by the caller through the returned
// publish function. It is used by components that compute snapshots from
// several sources themselves.
func Manual[T any](stop func()) (*Subscription[T], func(T) bool) {
	sub := newSubscription[T](stop)
	return sub, sub.offer
}
