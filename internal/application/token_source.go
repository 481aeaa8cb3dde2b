package application

import (
	"context"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/pixzlo/pixzlo-bridge/internal/ports"
)

// FigmaTokenSource asks the backend for the design-tool token of the
// currently resolved workspace.
type FigmaTokenSource struct {
	backend  ports.FigmaBackend
	resolver *WorkspaceResolver
}

var _ ports.AccessTokenSource = (*FigmaTokenSource)(nil)

func NewFigmaTokenSource(backend ports.FigmaBackend, resolver *WorkspaceResolver) *FigmaTokenSource {
	return &FigmaTokenSource{backend: backend, resolver: resolver}
}

func (s *FigmaTokenSource) AccessToken(ctx context.Context) (domain.AccessToken, error) {
	workspaceID, err := s.resolver.Require(ctx, "")
	if err != nil {
		return domain.AccessToken{}, err
	}
	return s.backend.FigmaAccessToken(ctx, workspaceID)
}
