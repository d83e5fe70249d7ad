// internal/app/system/streams/bridge.go
package streams

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Bridge relays change signals between instances.
type Bridge interface {
	Publish(key string) error
	Listen(fn func(key string)) error
	Close() error
}

// DefaultSubjectPrefix is the NATS subject prefix for change signals.
const DefaultSubjectPrefix = "maratech.changes"

// natsConn is the part of *nats.Conn the bridge uses.
type natsConn interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// NATSBridge relays change signals over core NATS. Each instance tags its
// messages with a random origin id and ignores its own echoes, since
// local watchers were already signalled directly.
type NATSBridge struct {
	conn   natsConn
	prefix string
	origin string
	log    *zap.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

// NewNATSBridge returns a bridge on conn. An empty prefix uses DefaultSubjectPrefix.
func NewNATSBridge(conn natsConn, prefix string, logger *zap.Logger) *NATSBridge {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSBridge{
		conn:   conn,
		prefix: strings.TrimSuffix(prefix, "."),
		origin: uuid.NewString(),
		log:    logger,
	}
}

// Subject returns the subject a key is published on.
func (b *NATSBridge) Subject(key string) string {
	return b.prefix + "." + key
}

// Publish announces a change on key.
func (b *NATSBridge) Publish(key string) error {
	if err := b.conn.Publish(b.Subject(key), []byte(b.origin)); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

// Listen subscribes to every change subject and calls fn for remote signals.
func (b *NATSBridge) Listen(fn func(key string)) error {
	sub, err := b.conn.Subscribe(b.prefix+".>", func(msg *nats.Msg) {
		if string(msg.Data) == b.origin {
			return
		}
		key := strings.TrimPrefix(msg.Subject, b.prefix+".")
		b.log.Debug("remote change signal", zap.String("key", key))
		fn(key)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s.>: %w", b.prefix, err)
	}
	b.mu.Lock()
	b.sub = sub
	b.mu.Unlock()
	return nil
}

// Close unsubscribes from the change subjects.
func (b *NATSBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub == nil {
		return nil
	}
	err := b.sub.Unsubscribe()
	b.sub = nil
	return err
}
