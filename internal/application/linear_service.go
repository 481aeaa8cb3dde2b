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

type LinearService struct {
	backend  ports.LinearBackend
	resolver *WorkspaceResolver
	cache    *MetadataCache[domain.WorkspaceID, domain.LinearMetadata]
	logger   *slog.Logger
}

func NewLinearService(backend ports.LinearBackend, resolver *WorkspaceResolver, clock ports.Clock, ttl time.Duration, logger *slog.Logger) *LinearService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinearService{
		backend:  backend,
		resolver: resolver,
		cache:    NewMetadataCache[domain.WorkspaceID, domain.LinearMetadata]("linear_metadata", ttl, clock),
		logger:   logger,
	}
}

func (s *LinearService) CheckStatus(ctx context.Context, workspaceOverride domain.WorkspaceID) (domain.LinearStatus, error) {
	workspaceID, err := s.resolver.Require(ctx, workspaceOverride)
	if err != nil {
		return domain.LinearStatus{}, err
	}
	return s.backend.LinearStatus(ctx, workspaceID)
}

func (s *LinearService) FetchMetadata(ctx context.Context, query FetchLinearMetadataQuery) (LinearMetadataResult, error) {
	if query.Force {
		s.cache.Invalidate()
	}

	workspaceID, err := s.resolver.Require(ctx, query.WorkspaceID)
	if err != nil {
		return LinearMetadataResult{}, err
	}

	if metadata, expiresAt, ok := s.cache.Get(ctx, workspaceID); ok {
		return LinearMetadataResult{LinearMetadata: metadata, WorkspaceID: workspaceID, ExpiresAt: expiresAt}, nil
	}

	metadata, err := s.backend.FetchLinearMetadata(ctx, workspaceID)
	if err != nil {
		return LinearMetadataResult{}, err
	}

	expiresAt := s.cache.Set(workspaceID, metadata)
	return LinearMetadataResult{LinearMetadata: metadata, WorkspaceID: workspaceID, ExpiresAt: expiresAt}, nil
}

func (s *LinearService) UpdatePreference(ctx context.Context, cmd UpdateLinearPreferenceCommand) (LinearMetadataResult, error) {
	workspaceID, err := s.resolver.Require(ctx, cmd.WorkspaceID)
	if err != nil {
		return LinearMetadataResult{}, err
	}
	if err := s.backend.UpdateLinearPreference(ctx, workspaceID, cmd.Preference); err != nil {
		return LinearMetadataResult{}, err
	}

	result, err := s.FetchMetadata(ctx, FetchLinearMetadataQuery{WorkspaceID: workspaceID, Force: true})
	if err != nil {
		return LinearMetadataResult{}, fmt.Errorf("refresh linear metadata: %w", err)
	}
	return result, nil
}

func (s *LinearService) CreateIssue(ctx context.Context, cmd CreateLinearIssueCommand) (domain.LinearIssue, error) {
	input := cmd.Input
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return domain.LinearIssue{}, fmt.Errorf("%w: issue title is required", domain.ErrValidation)
	}
	if strings.TrimSpace(input.TeamID) == "" {
		return domain.LinearIssue{}, fmt.Errorf("%w: team id is required", domain.ErrValidation)
	}
	if input.Priority < 0 || input.Priority > 4 {
		return domain.LinearIssue{}, fmt.Errorf("%w: priority must be between 0 and 4", domain.ErrValidation)
	}

	workspaceID, err := s.resolver.Require(ctx, cmd.WorkspaceID)
	if err != nil {
		return domain.LinearIssue{}, err
	}

	issue, err := s.backend.CreateLinearIssue(ctx, workspaceID, input)
	if err != nil {
		return domain.LinearIssue{}, err
	}
	s.logger.Info("linear issue created", "workspace_id", workspaceID, "identifier", issue.Identifier)
	return issue, nil
}

func (s *LinearService) Invalidate() {
	s.cache.Invalidate()
}
