package session

import "context"

// KeyValueStore persists raw values under a fixed key. Load returns domain.ErrNotFound for missing keys.
type KeyValueStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

type EventBus interface {
	// Publish sends a message to the message bus.
	Publish(topic string, args ...any)
}
