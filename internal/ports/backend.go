package ports

import (
	"context"
	"encoding/json"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
)

type ProfileSource interface {
	GetProfile(ctx context.Context) (domain.Profile, error)
}

type FigmaBackend interface {
	FetchFigmaMetadata(ctx context.Context, workspaceID domain.WorkspaceID, websiteURL string) (domain.FigmaMetadata, error)
	UpdateFigmaPreference(ctx context.Context, workspaceID domain.WorkspaceID, pref domain.FigmaPreference) error
	CreateDesignLink(ctx context.Context, workspaceID domain.WorkspaceID, input domain.DesignLinkInput) (domain.DesignLink, error)
	DeleteDesignLink(ctx context.Context, workspaceID domain.WorkspaceID, linkID string) error
	FigmaAuthURL(ctx context.Context, workspaceID domain.WorkspaceID) (string, error)
	FigmaAccessToken(ctx context.Context, workspaceID domain.WorkspaceID) (domain.AccessToken, error)
}

type LinearBackend interface {
	LinearStatus(ctx context.Context, workspaceID domain.WorkspaceID) (domain.LinearStatus, error)
	FetchLinearMetadata(ctx context.Context, workspaceID domain.WorkspaceID) (domain.LinearMetadata, error)
	UpdateLinearPreference(ctx context.Context, workspaceID domain.WorkspaceID, pref domain.LinearPreference) error
	CreateLinearIssue(ctx context.Context, workspaceID domain.WorkspaceID, input domain.LinearIssueInput) (domain.LinearIssue, error)
}

type PagesBackend interface {
	FetchPagesTree(ctx context.Context, workspaceID domain.WorkspaceID, websiteURL string) (json.RawMessage, error)
	Call(ctx context.Context, endpoint string, opts domain.APICallOptions) (json.RawMessage, error)
}

// Backend is everything the first-party backend serves.
type Backend interface {
	ProfileSource
	FigmaBackend
	LinearBackend
	PagesBackend
}
