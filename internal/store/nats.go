package store

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go/jetstream"
)

// NATSBackend stores values in a JetStream key/value bucket.
type NATSBackend struct {
	kv jetstream.KeyValue
}

// NewNATSBackend wraps an existing bucket.
func NewNATSBackend(kv jetstream.KeyValue) *NATSBackend {
	return &NATSBackend{kv: kv}
}

func (b *NATSBackend) Put(ctx context.Context, key string, data []byte) error {
	_, err := b.kv.Put(ctx, key, data)
	return err
}

func (b *NATSBackend) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := b.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return entry.Value(), nil
}

func (b *NATSBackend) Delete(ctx context.Context, key string) error {
	err := b.kv.Delete(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}
