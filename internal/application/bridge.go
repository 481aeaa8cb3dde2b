package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/pixzlo/pixzlo-bridge/internal/ports"
)

const integrationsSettingsPath = "/settings/integrations"

// Bridge groups the background services that extension contexts talk to.
// It is built once at startup and shared by every handler.
type Bridge struct {
	Storage    *StorageAccessor
	Profiles   *ProfileCache
	Workspaces *WorkspaceResolver
	Figma      *FigmaService
	Frames     *FrameRenderer
	OAuth      *OAuthOrchestrator
	Linear     *LinearService

	backend     ports.Backend
	browser     ports.BrowserHost
	clock       ports.Clock
	frontendURL string
	logger      *slog.Logger
}

type BridgeConfig struct {
	FrontendURL string
	MetadataTTL time.Duration
	RenderTTL   time.Duration
	ProfileTTL  time.Duration
	OAuth       OAuthOptions
}

// NewBridge wires the services together. tokenCache is the design API's
// access-token cache; it is cleared whenever the workspace changes or an
// authorization succeeds.
func NewBridge(cfg BridgeConfig, store ports.KeyValueStore, backend ports.Backend, design ports.DesignAPI, tokenCache Invalidator, browser ports.BrowserHost, clock ports.Clock, logger *slog.Logger) *Bridge {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OAuth.Logger == nil {
		cfg.OAuth.Logger = logger
	}

	storage := NewStorageAccessor(store, logger)
	profiles := NewProfileCache(backend, clock, cfg.ProfileTTL, logger)
	workspaces := NewWorkspaceResolver(storage, profiles, logger)
	figma := NewFigmaService(backend, workspaces, clock, cfg.MetadataTTL, logger)
	frames := NewFrameRenderer(design, clock, cfg.RenderTTL, logger)
	linear := NewLinearService(backend, workspaces, clock, cfg.MetadataTTL, logger)
	oauth := NewOAuthOrchestrator(workspaces, backend, browser, cfg.OAuth)

	scoped := []Invalidator{figma, frames, linear}
	if tokenCache != nil {
		scoped = append(scoped, tokenCache)
	}
	workspaces.OnChange(scoped...)
	oauth.OnSuccess(scoped...)

	return &Bridge{
		Storage:     storage,
		Profiles:    profiles,
		Workspaces:  workspaces,
		Figma:       figma,
		Frames:      frames,
		OAuth:       oauth,
		Linear:      linear,
		backend:     backend,
		browser:     browser,
		clock:       clock,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		logger:      logger,
	}
}

func (b *Bridge) PagesTree(ctx context.Context, websiteURL string) (json.RawMessage, error) {
	workspaceID, err := b.Workspaces.Require(ctx, "")
	if err != nil {
		return nil, err
	}
	return b.backend.FetchPagesTree(ctx, workspaceID, websiteURL)
}

func (b *Bridge) APICall(ctx context.Context, endpoint string, opts domain.APICallOptions) (json.RawMessage, error) {
	return b.backend.Call(ctx, endpoint, opts)
}

func (b *Bridge) OpenIntegrationsSettings(ctx context.Context) error {
	if b.browser == nil {
		return errors.New("no browser host configured")
	}
	if b.frontendURL == "" {
		return fmt.Errorf("%w: frontend url is not configured", domain.ErrValidation)
	}
	return b.browser.OpenTab(ctx, b.frontendURL+integrationsSettingsPath)
}

func (b *Bridge) PinnedState(ctx context.Context) (bool, error) {
	if b.browser == nil {
		return false, nil
	}
	return b.browser.PinnedState(ctx)
}

// Status collects what the bridge currently knows. Integration lookups that
// fail are reported in the result instead of failing the whole call.
func (b *Bridge) Status(ctx context.Context) Status {
	status := Status{CapturedAt: b.clock.Now(), RenderCacheSize: b.Frames.Size()}

	if profile, ok := b.Profiles.Get(ctx); ok {
		status.Profile = &profile
		status.Workspaces = profile.ActiveWorkspaces()
	}

	workspaceID, ok := b.Workspaces.Resolve(ctx, "")
	if !ok {
		status.FigmaErr = domain.ErrNoWorkspaceSelected
		status.LinearErr = domain.ErrNoWorkspaceSelected
		return status
	}
	status.WorkspaceID = workspaceID
	status.WorkspaceResolved = true

	if metadata, err := b.Figma.FetchMetadata(ctx, FetchMetadataQuery{WorkspaceID: workspaceID}); err != nil {
		status.FigmaErr = err
	} else {
		status.Figma = &metadata.FigmaMetadata
		status.FigmaExpiresAt = metadata.ExpiresAt
	}

	if linear, err := b.Linear.CheckStatus(ctx, workspaceID); err != nil {
		status.LinearErr = err
	} else {
		status.Linear = &linear
	}

	return status
}
