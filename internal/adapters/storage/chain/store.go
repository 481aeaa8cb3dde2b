// Package chain layers two storage engines. Reads prefer the primary and
// migrate values found only in the fallback; writes go to the fallback only
// when the primary cannot take them.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/pixzlo/pixzlo-bridge/internal/ports"
)

type Store struct {
	primary  ports.KeyValueStore
	fallback ports.KeyValueStore
	logger   *slog.Logger
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

var _ ports.KeyValueStore = (*Store)(nil)

var (
	errNilPrimaryStore  = errors.New("primary storage engine is nil")
	errNilFallbackStore = errors.New("fallback storage engine is nil")
)

func New(primary ports.KeyValueStore, fallback ports.KeyValueStore, opts ...Option) (*Store, error) {
	switch {
	case primary == nil:
		return nil, errNilPrimaryStore
	case fallback == nil:
		return nil, errNilFallbackStore
	}

	store := &Store{primary: primary, fallback: fallback}
	for _, opt := range opts {
		opt(store)
	}
	if store.logger == nil {
		store.logger = slog.Default()
	}
	return store, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, primaryErr := s.primary.Get(ctx, key)
	if primaryErr == nil {
		return value, nil
	}
	if interrupted(primaryErr) {
		return "", primaryErr
	}

	value, fallbackErr := s.fallback.Get(ctx, key)
	if fallbackErr != nil {
		return "", errors.Join(
			fmt.Errorf("primary engine: %w", primaryErr),
			fmt.Errorf("fallback engine: %w", fallbackErr),
		)
	}

	// Copy forward so the next read is served by the primary. A primary that
	// failed for any reason other than a miss is not written to.
	if errors.Is(primaryErr, domain.ErrKeyNotFound) {
		if err := s.primary.Put(ctx, key, value); err != nil {
			s.logger.Warn("copy storage value to primary engine failed", "key", key, "error", err)
		}
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	primaryErr := s.primary.Put(ctx, key, value)
	if primaryErr == nil || interrupted(primaryErr) {
		return primaryErr
	}

	if fallbackErr := s.fallback.Put(ctx, key, value); fallbackErr != nil {
		return errors.Join(
			fmt.Errorf("primary engine: %w", primaryErr),
			fmt.Errorf("fallback engine: %w", fallbackErr),
		)
	}
	return nil
}

// Delete clears both engines, otherwise a fallback copy would be migrated
// back on the next Get.
func (s *Store) Delete(ctx context.Context, key string) error {
	primaryErr := s.primary.Delete(ctx, key)
	if interrupted(primaryErr) {
		return primaryErr
	}

	var errs []error
	if primaryErr != nil {
		errs = append(errs, fmt.Errorf("primary engine delete failed: %w", primaryErr))
	}
	if fallbackErr := s.fallback.Delete(ctx, key); fallbackErr != nil {
		errs = append(errs, fmt.Errorf("fallback engine delete failed: %w", fallbackErr))
	}
	return errors.Join(errs...)
}

func interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
