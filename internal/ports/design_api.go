package ports

import (
	"context"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
)

type DesignAPI interface {
	GetFile(ctx context.Context, fileID string) (domain.DesignFile, error)
	// RenderImage returns the URL of a 2x PNG render of one node.
	RenderImage(ctx context.Context, fileID, nodeID string) (string, error)
}

type AccessTokenSource interface {
	AccessToken(ctx context.Context) (domain.AccessToken, error)
}
