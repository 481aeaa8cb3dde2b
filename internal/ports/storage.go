package ports

import "context"

// KeyValueStore is a persistent string store. Get reports a missing key by
// returning an error matching domain.ErrKeyNotFound.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
