package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/pixzlo/pixzlo-bridge/internal/ports"
)

type metadataKey struct {
	websiteURL  string
	workspaceID domain.WorkspaceID
}

// FigmaService owns the integration metadata cache. Mutations never patch the
// cache; they refetch with Force set.
type FigmaService struct {
	backend  ports.FigmaBackend
	resolver *WorkspaceResolver
	cache    *MetadataCache[metadataKey, domain.FigmaMetadata]
	logger   *slog.Logger
}

func NewFigmaService(backend ports.FigmaBackend, resolver *WorkspaceResolver, clock ports.Clock, ttl time.Duration, logger *slog.Logger) *FigmaService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FigmaService{
		backend:  backend,
		resolver: resolver,
		cache:    NewMetadataCache[metadataKey, domain.FigmaMetadata]("figma_metadata", ttl, clock),
		logger:   logger,
	}
}

func (s *FigmaService) FetchMetadata(ctx context.Context, query FetchMetadataQuery) (FigmaMetadataResult, error) {
	if query.Force {
		s.cache.Invalidate()
	}

	workspaceID, err := s.resolver.Require(ctx, query.WorkspaceID)
	if err != nil {
		return FigmaMetadataResult{}, err
	}

	key := metadataKey{websiteURL: query.WebsiteURL, workspaceID: workspaceID}
	if metadata, expiresAt, ok := s.cache.Get(ctx, key); ok {
		return FigmaMetadataResult{FigmaMetadata: metadata, WorkspaceID: workspaceID, ExpiresAt: expiresAt}, nil
	}

	metadata, err := s.backend.FetchFigmaMetadata(ctx, workspaceID, query.WebsiteURL)
	if err != nil {
		return FigmaMetadataResult{}, err
	}

	expiresAt := s.cache.Set(key, metadata)
	s.logger.Debug("figma metadata cached", "workspace_id", workspaceID, "website_url", query.WebsiteURL, "expires_at", expiresAt)
	return FigmaMetadataResult{FigmaMetadata: metadata, WorkspaceID: workspaceID, ExpiresAt: expiresAt}, nil
}

func (s *FigmaService) UpdatePreference(ctx context.Context, cmd UpdateFigmaPreferenceCommand) (FigmaMetadataResult, error) {
	if strings.TrimSpace(cmd.Preference.WebsiteURL) == "" {
		return FigmaMetadataResult{}, fmt.Errorf("%w: website url is required", domain.ErrValidation)
	}
	if strings.TrimSpace(cmd.Preference.FrameID) == "" {
		return FigmaMetadataResult{}, fmt.Errorf("%w: frame id is required", domain.ErrValidation)
	}

	workspaceID, err := s.resolver.Require(ctx, cmd.WorkspaceID)
	if err != nil {
		return FigmaMetadataResult{}, err
	}
	if err := s.backend.UpdateFigmaPreference(ctx, workspaceID, cmd.Preference); err != nil {
		return FigmaMetadataResult{}, err
	}

	return s.refetch(ctx, cmd.Preference.WebsiteURL, workspaceID)
}

func (s *FigmaService) CreateDesignLink(ctx context.Context, cmd CreateDesignLinkCommand) (DesignLinkResult, error) {
	if strings.TrimSpace(cmd.Input.LinkData.FigmaFileID) == "" || strings.TrimSpace(cmd.Input.LinkData.FigmaFrameID) == "" {
		return DesignLinkResult{}, fmt.Errorf("%w: link data needs a file id and a frame id", domain.ErrValidation)
	}

	workspaceID, err := s.resolver.Require(ctx, cmd.WorkspaceID)
	if err != nil {
		return DesignLinkResult{}, err
	}
	link, err := s.backend.CreateDesignLink(ctx, workspaceID, cmd.Input)
	if err != nil {
		return DesignLinkResult{}, err
	}

	metadata, err := s.refetch(ctx, cmd.Input.WebsiteURL, workspaceID)
	if err != nil {
		return DesignLinkResult{}, err
	}
	return DesignLinkResult{Link: link, Metadata: metadata}, nil
}

func (s *FigmaService) DeleteDesignLink(ctx context.Context, cmd DeleteDesignLinkCommand) (FigmaMetadataResult, error) {
	if strings.TrimSpace(cmd.LinkID) == "" {
		return FigmaMetadataResult{}, fmt.Errorf("%w: link id is required", domain.ErrValidation)
	}

	workspaceID, err := s.resolver.Require(ctx, cmd.WorkspaceID)
	if err != nil {
		return FigmaMetadataResult{}, err
	}
	if err := s.backend.DeleteDesignLink(ctx, workspaceID, cmd.LinkID); err != nil {
		return FigmaMetadataResult{}, err
	}

	return s.refetch(ctx, cmd.WebsiteURL, workspaceID)
}

// Invalidate drops the cached metadata.
func (s *FigmaService) Invalidate() {
	s.cache.Invalidate()
}

// CacheState reports the cached website and expiry, if any.
func (s *FigmaService) CacheState() (CacheState, bool) {
	key, expiresAt, ok := s.cache.Peek()
	if !ok {
		return CacheState{}, false
	}
	return CacheState{Key: key.websiteURL, WorkspaceID: key.workspaceID, ExpiresAt: expiresAt}, true
}

func (s *FigmaService) refetch(ctx context.Context, websiteURL string, workspaceID domain.WorkspaceID) (FigmaMetadataResult, error) {
	result, err := s.FetchMetadata(ctx, FetchMetadataQuery{WebsiteURL: websiteURL, WorkspaceID: workspaceID, Force: true})
	if err != nil {
		return FigmaMetadataResult{}, fmt.Errorf("refresh figma metadata: %w", err)
	}
	return result, nil
}
