package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
)

// Invalidator is anything holding workspace-scoped state that must be
// dropped when the selection changes or authorization succeeds.
type Invalidator interface {
	Invalidate()
}

type InvalidatorFunc func()

func (f InvalidatorFunc) Invalidate() { f() }

type WorkspaceResolver struct {
	storage  *StorageAccessor
	profiles *ProfileCache
	logger   *slog.Logger

	mu        sync.Mutex
	onChange  []Invalidator
	persistMu sync.Mutex
}

func NewWorkspaceResolver(storage *StorageAccessor, profiles *ProfileCache, logger *slog.Logger) *WorkspaceResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkspaceResolver{storage: storage, profiles: profiles, logger: logger}
}

// OnChange registers state cleared by Select and Clear.
func (r *WorkspaceResolver) OnChange(invalidators ...Invalidator) {
	r.mu.Lock()
	r.onChange = append(r.onChange, invalidators...)
	r.mu.Unlock()
}

// Resolve picks the effective workspace: override, then the persisted
// selection, then the first active workspace of the user profile, which is
// persisted as a side effect. A non-empty override is returned as given.
func (r *WorkspaceResolver) Resolve(ctx context.Context, override domain.WorkspaceID) (domain.WorkspaceID, bool) {
	if override != "" {
		return override, true
	}

	if id, ok := r.Current(ctx); ok {
		return id, true
	}

	if r.profiles == nil {
		return "", false
	}
	profile, ok := r.profiles.Get(ctx)
	if !ok {
		return "", false
	}
	active := profile.ActiveWorkspaces()
	if len(active) == 0 {
		return "", false
	}

	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	// A selection made while the profile was loading wins over the fallback.
	if id, ok := r.Current(ctx); ok {
		return id, true
	}

	chosen := active[0].ID
	r.storage.Set(ctx, SelectedWorkspaceKey, string(chosen))
	r.logger.Info("selected first active workspace", "workspace_id", chosen)
	return chosen, true
}

// Require is Resolve with absence reported as ErrNoWorkspaceSelected.
func (r *WorkspaceResolver) Require(ctx context.Context, override domain.WorkspaceID) (domain.WorkspaceID, error) {
	id, ok := r.Resolve(ctx, override)
	if !ok {
		return "", domain.ErrNoWorkspaceSelected
	}
	return id, nil
}

// Current returns the persisted selection only.
func (r *WorkspaceResolver) Current(ctx context.Context) (domain.WorkspaceID, bool) {
	value, ok := r.storage.Get(ctx, SelectedWorkspaceKey)
	if !ok {
		return "", false
	}
	return domain.WorkspaceID(value), true
}

func (r *WorkspaceResolver) Select(ctx context.Context, id domain.WorkspaceID) error {
	id = domain.WorkspaceID(strings.TrimSpace(string(id)))
	if id == "" {
		return fmt.Errorf("%w: workspace id is required", domain.ErrValidation)
	}

	r.persistMu.Lock()
	previous, _ := r.Current(ctx)
	r.storage.Set(ctx, SelectedWorkspaceKey, string(id))
	r.persistMu.Unlock()

	if previous != id {
		r.logger.Info("workspace changed", "from", previous, "to", id)
		r.invalidate()
	}
	return nil
}

func (r *WorkspaceResolver) Clear(ctx context.Context) {
	r.persistMu.Lock()
	r.storage.Remove(ctx, SelectedWorkspaceKey)
	r.persistMu.Unlock()

	r.logger.Info("workspace selection cleared")
	r.invalidate()
}

// Workspaces lists the active workspaces of the cached profile.
func (r *WorkspaceResolver) Workspaces(ctx context.Context) ([]domain.Workspace, error) {
	if r.profiles == nil {
		return nil, &domain.UpstreamError{Service: "backend", Message: "profile unavailable"}
	}
	profile, ok := r.profiles.Get(ctx)
	if !ok {
		return nil, &domain.UpstreamError{Service: "backend", Message: "profile unavailable"}
	}
	return profile.ActiveWorkspaces(), nil
}

func (r *WorkspaceResolver) invalidate() {
	r.mu.Lock()
	invalidators := append([]Invalidator(nil), r.onChange...)
	r.mu.Unlock()

	for _, inv := range invalidators {
		inv.Invalidate()
	}
}
