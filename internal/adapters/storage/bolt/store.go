// Package bolt persists extension storage keys in a bbolt database.
package bolt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/pixzlo/pixzlo-bridge/internal/ports"
	"go.etcd.io/bbolt"
)

var bucketStorage = []byte("extension_storage")

type Store struct {
	db     *bbolt.DB
	logger *slog.Logger
}

var _ ports.KeyValueStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open opens (or creates) the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is empty")
	}

	s := &Store{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketStorage)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating bucket %s: %w", bucketStorage, err)
	}

	s.db = db
	s.logger.Debug("opened storage database", "path", path)
	return s, nil
}

// Close closes the database and releases resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.check(key); err != nil {
		return "", err
	}

	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketStorage).Get([]byte(key))
		if raw == nil {
			return fmt.Errorf("bolt storage key %q: %w", key, domain.ErrKeyNotFound)
		}
		// raw is only valid inside the transaction.
		value = append([]byte(nil), raw...)
		return nil
	})
	if err != nil {
		return "", err
	}

	return string(value), nil
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.check(key); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketStorage).Put([]byte(key), []byte(value)); err != nil {
			return fmt.Errorf("put bolt storage key %q: %w", key, err)
		}
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.check(key); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketStorage).Delete([]byte(key)); err != nil {
			return fmt.Errorf("delete bolt storage key %q: %w", key, err)
		}
		return nil
	})
}

func (s *Store) check(key string) error {
	if s.db == nil {
		return errors.New("storage database is closed")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("storage key is empty")
	}
	return nil
}
