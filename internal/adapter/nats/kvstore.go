package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go/jetstream"
)

// KVStore adapts a JetStream KeyValue bucket to the idempotency middleware's
// response store. A missing key is a miss, not an error.
type KVStore struct {
	kv jetstream.KeyValue
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry.Value(), true, nil
}

func (s *KVStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.kv.Put(ctx, key, value)
	return err
}
