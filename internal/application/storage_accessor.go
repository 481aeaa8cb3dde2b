package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/pixzlo/pixzlo-bridge/internal/ports"
)

// SelectedWorkspaceKey holds the persisted workspace selection as a plain string.
const SelectedWorkspaceKey = "pixzlo_selected_workspace_id"

// StorageAccessor wraps the persistent store so callers never see engine
// failures: a missing engine or a read error is reported as an absent key and
// write errors are logged.
type StorageAccessor struct {
	store  ports.KeyValueStore
	logger *slog.Logger
}

func NewStorageAccessor(store ports.KeyValueStore, logger *slog.Logger) *StorageAccessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &StorageAccessor{store: store, logger: logger}
}

func (a *StorageAccessor) Get(ctx context.Context, key string) (string, bool) {
	if a == nil || a.store == nil {
		return "", false
	}

	value, err := a.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			a.logger.Warn("storage read failed", "key", key, "error", err)
		}
		return "", false
	}
	if value == "" {
		return "", false
	}
	return value, true
}

func (a *StorageAccessor) Set(ctx context.Context, key, value string) {
	if a == nil || a.store == nil {
		return
	}
	if err := a.store.Put(ctx, key, value); err != nil {
		a.logger.Warn("storage write failed", "key", key, "error", err)
	}
}

func (a *StorageAccessor) Remove(ctx context.Context, key string) {
	if a == nil || a.store == nil {
		return
	}
	if err := a.store.Delete(ctx, key); err != nil {
		a.logger.Warn("storage delete failed", "key", key, "error", err)
	}
}
