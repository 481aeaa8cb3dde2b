package application

import (
	"time"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
)

// FigmaMetadataResult is the cached metadata plus the entry's expiry.
type FigmaMetadataResult struct {
	domain.FigmaMetadata
	WorkspaceID domain.WorkspaceID `json:"workspaceId"`
	ExpiresAt   time.Time          `json:"expiresAt"`
}

type LinearMetadataResult struct {
	domain.LinearMetadata
	WorkspaceID domain.WorkspaceID `json:"workspaceId"`
	ExpiresAt   time.Time          `json:"expiresAt"`
}

type DesignLinkResult struct {
	Link     domain.DesignLink   `json:"link"`
	Metadata FigmaMetadataResult `json:"metadata"`
}

type CacheState struct {
	Key         string
	WorkspaceID domain.WorkspaceID
	ExpiresAt   time.Time
}

// Status is a point-in-time view of the bridge used by the status command.
type Status struct {
	WorkspaceID       domain.WorkspaceID
	WorkspaceResolved bool
	Workspaces        []domain.Workspace
	Profile           *domain.Profile
	Figma             *domain.FigmaMetadata
	FigmaExpiresAt    time.Time
	FigmaErr          error
	Linear            *domain.LinearStatus
	LinearErr         error
	RenderCacheSize   int
	CapturedAt        time.Time
}
