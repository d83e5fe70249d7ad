// internal/app/system/streams/hub.go
//
// Package streams turns store writes into live query subscriptions.
// Every store write calls Hub.Notify with the keys it touched; Live
// subscriptions watching those keys re-run their query and deliver the new
// snapshot. An optional Bridge relays the same signals between instances.
package streams

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Change keys used by the stores.
const (
	KeyUsers  = "users"
	KeyGroups = "groups"
	KeyEvents = "events"
)

// ChatKey is the change key for one group's chat.
func ChatKey(groupID primitive.ObjectID) string {
	return "chat." + groupID.Hex()
}

// DeviceKey is the change key for one device's notification state.
func DeviceKey(deviceID string) string {
	return "device." + deviceID
}

// Hub fans change signals out to watchers. Signals carry no payload;
// watchers reload whatever they display. A signal is coalesced when the
// watcher has not yet consumed the previous one.
type Hub struct {
	mu       sync.Mutex
	watchers map[string]map[uint64]chan struct{}
	nextID   uint64

	bridge Bridge
	log    *zap.Logger
}

// NewHub returns a process-local hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		watchers: make(map[string]map[uint64]chan struct{}),
		log:      logger,
	}
}

// Attach connects the hub to a bridge: local notifications are published
// and remote ones are delivered to local watchers.
func (h *Hub) Attach(b Bridge) error {
	if err := b.Listen(h.signal); err != nil {
		return err
	}
	h.mu.Lock()
	h.bridge = b
	h.mu.Unlock()
	return nil
}

// Notify signals every watcher of the given keys, locally and through
// the bridge if one is attached.
func (h *Hub) Notify(keys ...string) {
	if h == nil {
		return
	}
	h.mu.Lock()
	b := h.bridge
	h.mu.Unlock()

	for _, k := range keys {
		h.signal(k)
		if b != nil {
			if err := b.Publish(k); err != nil {
				h.log.Warn("change signal not relayed", zap.String("key", k), zap.Error(err))
			}
		}
	}
}

// Watch registers for signals on any of the given keys. The returned
// channel has capacity one; call stop to unregister.
func (h *Hub) Watch(keys ...string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	for _, k := range keys {
		m, ok := h.watchers[k]
		if !ok {
			m = make(map[uint64]chan struct{})
			h.watchers[k] = m
		}
		m[id] = ch
	}
	h.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for _, k := range keys {
				if m, ok := h.watchers[k]; ok {
					delete(m, id)
					if len(m) == 0 {
						delete(h.watchers, k)
					}
				}
			}
		})
	}
	return ch, stop
}

// Watchers reports how many registrations exist for key.
func (h *Hub) Watchers(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers[key])
}

func (h *Hub) signal(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.watchers[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
