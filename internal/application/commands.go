package application

import "github.com/pixzlo/pixzlo-bridge/internal/domain"

type FetchMetadataQuery struct {
	WebsiteURL  string
	Force       bool
	WorkspaceID domain.WorkspaceID
}

type FetchLinearMetadataQuery struct {
	Force       bool
	WorkspaceID domain.WorkspaceID
}

type UpdateFigmaPreferenceCommand struct {
	WorkspaceID domain.WorkspaceID
	Preference  domain.FigmaPreference
}

type CreateDesignLinkCommand struct {
	WorkspaceID domain.WorkspaceID
	Input       domain.DesignLinkInput
}

type DeleteDesignLinkCommand struct {
	WorkspaceID domain.WorkspaceID
	WebsiteURL  string
	LinkID      string
}

type UpdateLinearPreferenceCommand struct {
	WorkspaceID domain.WorkspaceID
	Preference  domain.LinearPreference
}

type CreateLinearIssueCommand struct {
	WorkspaceID domain.WorkspaceID
	Input       domain.LinearIssueInput
}
