package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/pixzlo/pixzlo-bridge/internal/messaging"
)

// Message types accepted from extension contexts.
const (
	MsgFigmaFetchMetadata       = "figma-fetch-metadata"
	MsgFigmaUpdatePreference    = "figma-update-preference"
	MsgFigmaCreateDesignLink    = "figma-create-design-link"
	MsgFigmaDeleteDesignLink    = "figma-delete-design-link"
	MsgFigmaOAuth               = "FIGMA_OAUTH"
	MsgFigmaRenderFrame         = "FIGMA_RENDER_FRAME"
	MsgFigmaRenderElement       = "FIGMA_RENDER_ELEMENT"
	MsgFigmaGetImage            = "FIGMA_GET_IMAGE"
	MsgLinearCheckStatus        = "linear-check-status"
	MsgLinearCreateIssue        = "linear-create-issue"
	MsgLinearFetchMetadata      = "linear-fetch-metadata"
	MsgLinearUpdatePreference   = "linear-update-preference"
	MsgGetPinnedState           = "GET_PINNED_STATE"
	MsgOpenIntegrationsSettings = "OPEN_INTEGRATIONS_SETTINGS"
	MsgFetchPagesTree           = "FETCH_PAGES_TREE"
	MsgAPICall                  = "API_CALL"
	MsgWorkspaceChanged         = "WORKSPACE_CHANGED"
	MsgGetWorkspace             = "GET_WORKSPACE"
)

type fetchMetadataPayload struct {
	WebsiteURL  string             `json:"websiteUrl"`
	Force       bool               `json:"force"`
	WorkspaceID domain.WorkspaceID `json:"workspaceId"`
}

type createDesignLinkPayload struct {
	WebsiteURL string                 `json:"websiteUrl"`
	PageTitle  string                 `json:"pageTitle"`
	FaviconURL string                 `json:"faviconUrl"`
	LinkData   *domain.DesignLinkData `json:"linkData"`
}

type deleteDesignLinkPayload struct {
	WebsiteURL string `json:"websiteUrl"`
	LinkID     string `json:"linkId"`
}

type workspacePayload struct {
	WorkspaceID domain.WorkspaceID `json:"workspaceId"`
}

type renderFramePayload struct {
	FigmaURL string `json:"figmaUrl"`
}

type nodePayload struct {
	FileID string `json:"fileId"`
	NodeID string `json:"nodeId"`
}

type forcePayload struct {
	Force bool `json:"force"`
}

type pagesTreePayload struct {
	WebsiteURL string `json:"websiteUrl"`
}

type apiCallPayload struct {
	Endpoint string                `json:"endpoint"`
	Options  domain.APICallOptions `json:"options"`
}

type pinnedStateResult struct {
	IsPinned bool `json:"isPinned"`
}

type imageResult struct {
	ImageURL string `json:"imageUrl"`
}

type workspaceResult struct {
	WorkspaceID domain.WorkspaceID `json:"workspaceId,omitempty"`
}

// Register installs a handler for every message type on d.
func (b *Bridge) Register(d *messaging.Dispatcher) {
	d.Register(MsgFigmaFetchMetadata, b.handleFigmaFetchMetadata, "Fetch cached figma integration metadata for a website")
	d.Register(MsgFigmaUpdatePreference, b.handleFigmaUpdatePreference, "Store the preferred frame for a website and refresh metadata")
	d.Register(MsgFigmaCreateDesignLink, b.handleFigmaCreateDesignLink, "Link a page to a design frame and refresh metadata")
	d.Register(MsgFigmaDeleteDesignLink, b.handleFigmaDeleteDesignLink, "Remove a design link and refresh metadata")
	d.Register(MsgFigmaOAuth, b.handleFigmaOAuth, "Connect figma through the authorization popup")
	d.Register(MsgFigmaRenderFrame, b.handleFigmaRenderFrame, "Render a frame from a figma share url")
	d.Register(MsgFigmaRenderElement, b.handleFigmaRenderElement, "Render a node by file and node id")
	d.Register(MsgFigmaGetImage, b.handleFigmaGetImage, "Get the 2x png url of a node")
	d.Register(MsgLinearCheckStatus, b.handleLinearCheckStatus, "Report whether linear is connected")
	d.Register(MsgLinearCreateIssue, b.handleLinearCreateIssue, "Create a linear issue")
	d.Register(MsgLinearFetchMetadata, b.handleLinearFetchMetadata, "Fetch linear teams, projects, users and labels")
	d.Register(MsgLinearUpdatePreference, b.handleLinearUpdatePreference, "Store the default linear team and project")
	d.Register(MsgGetPinnedState, b.handleGetPinnedState, "Report whether the extension is pinned")
	d.Register(MsgOpenIntegrationsSettings, b.handleOpenIntegrationsSettings, "Open the integrations settings page")
	d.Register(MsgFetchPagesTree, b.handleFetchPagesTree, "Fetch the page tree of a website")
	d.Register(MsgAPICall, b.handleAPICall, "Proxy an authenticated backend request")
	d.Register(MsgWorkspaceChanged, b.handleWorkspaceChanged, "Persist or clear the selected workspace")
	d.Register(MsgGetWorkspace, b.handleGetWorkspace, "Resolve the effective workspace")
}

func (b *Bridge) handleFigmaFetchMetadata(ctx context.Context, msg messaging.Message, sender messaging.Sender) (any, error) {
	payload, err := messaging.Decode[fetchMetadataPayload](msg)
	if err != nil {
		return nil, err
	}
	websiteURL := payload.WebsiteURL
	if websiteURL == "" {
		websiteURL = sender.PageOrigin()
	}
	return b.Figma.FetchMetadata(ctx, FetchMetadataQuery{WebsiteURL: websiteURL, Force: payload.Force, WorkspaceID: payload.WorkspaceID})
}

func (b *Bridge) handleFigmaUpdatePreference(ctx context.Context, msg messaging.Message, _ messaging.Sender) (any, error) {
	pref, err := messaging.Decode[domain.FigmaPreference](msg)
	if err != nil {
		return nil, err
	}
	return b.Figma.UpdatePreference(ctx, UpdateFigmaPreferenceCommand{Preference: pref})
}

func (b *Bridge) handleFigmaCreateDesignLink(ctx context.Context, msg messaging.Message, sender messaging.Sender) (any, error) {
	payload, err := messaging.Decode[createDesignLinkPayload](msg)
	if err != nil {
		return nil, err
	}
	if payload.LinkData == nil {
		return nil, fmt.Errorf("%w: linkData is required", domain.ErrValidation)
	}

	websiteURL := payload.WebsiteURL
	if websiteURL == "" {
		websiteURL = sender.PageOrigin()
	}
	return b.Figma.CreateDesignLink(ctx, CreateDesignLinkCommand{Input: domain.DesignLinkInput{
		WebsiteURL: websiteURL,
		PageTitle:  payload.PageTitle,
		FaviconURL: payload.FaviconURL,
		LinkData:   *payload.LinkData,
	}})
}

func (b *Bridge) handleFigmaDeleteDesignLink(ctx context.Context, msg messaging.Message, sender messaging.Sender) (any, error) {
	payload, err := messaging.Decode[deleteDesignLinkPayload](msg)
	if err != nil {
		return nil, err
	}
	websiteURL := payload.WebsiteURL
	if websiteURL == "" {
		websiteURL = sender.PageOrigin()
	}
	return b.Figma.DeleteDesignLink(ctx, DeleteDesignLinkCommand{WebsiteURL: websiteURL, LinkID: payload.LinkID})
}

func (b *Bridge) handleFigmaOAuth(ctx context.Context, msg messaging.Message, _ messaging.Sender) (any, error) {
	payload, err := messaging.Decode[workspacePayload](msg)
	if err != nil {
		return nil, err
	}
	if err := b.OAuth.Authorize(ctx, payload.WorkspaceID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (b *Bridge) handleFigmaRenderFrame(ctx context.Context, msg messaging.Message, _ messaging.Sender) (any, error) {
	payload, err := messaging.Decode[renderFramePayload](msg)
	if err != nil {
		return nil, err
	}
	return b.Frames.RenderFrame(ctx, payload.FigmaURL)
}

func (b *Bridge) handleFigmaRenderElement(ctx context.Context, msg messaging.Message, _ messaging.Sender) (any, error) {
	payload, err := messaging.Decode[nodePayload](msg)
	if err != nil {
		return nil, err
	}
	return b.Frames.RenderNode(ctx, payload.FileID, payload.NodeID)
}

func (b *Bridge) handleFigmaGetImage(ctx context.Context, msg messaging.Message, _ messaging.Sender) (any, error) {
	payload, err := messaging.Decode[nodePayload](msg)
	if err != nil {
		return nil, err
	}
	imageURL, err := b.Frames.RenderImage(ctx, payload.FileID, payload.NodeID)
	if err != nil {
		return nil, err
	}
	return imageResult{ImageURL: imageURL}, nil
}

func (b *Bridge) handleLinearCheckStatus(ctx context.Context, msg messaging.Message, _ messaging.Sender) (any, error) {
	payload, err := messaging.Decode[workspacePayload](msg)
	if err != nil {
		return nil, err
	}
	return b.Linear.CheckStatus(ctx, payload.WorkspaceID)
}

func (b *Bridge) handleLinearCreateIssue(ctx context.Context, msg messaging.Message, sender messaging.Sender) (any, error) {
	input, err := messaging.Decode[domain.LinearIssueInput](msg)
	if err != nil {
		return nil, err
	}
	if input.PageURL == "" {
		input.PageURL = sender.URL
	}
	return b.Linear.CreateIssue(ctx, CreateLinearIssueCommand{Input: input})
}

func (b *Bridge) handleLinearFetchMetadata(ctx context.Context, msg messaging.Message, _ messaging.Sender) (any, error) {
	payload, err := messaging.Decode[forcePayload](msg)
	if err != nil {
		return nil, err
	}
	return b.Linear.FetchMetadata(ctx, FetchLinearMetadataQuery{Force: payload.Force})
}

func (b *Bridge) handleLinearUpdatePreference(ctx context.Context, msg messaging.Message, _ messaging.Sender) (any, error) {
	pref, err := messaging.Decode[domain.LinearPreference](msg)
	if err != nil {
		return nil, err
	}
	return b.Linear.UpdatePreference(ctx, UpdateLinearPreferenceCommand{Preference: pref})
}

func (b *Bridge) handleGetPinnedState(ctx context.Context, _ messaging.Message, _ messaging.Sender) (any, error) {
	pinned, err := b.PinnedState(ctx)
	if err != nil {
		return nil, err
	}
	return pinnedStateResult{IsPinned: pinned}, nil
}

func (b *Bridge) handleOpenIntegrationsSettings(ctx context.Context, _ messaging.Message, _ messaging.Sender) (any, error) {
	return nil, b.OpenIntegrationsSettings(ctx)
}

func (b *Bridge) handleFetchPagesTree(ctx context.Context, msg messaging.Message, sender messaging.Sender) (any, error) {
	payload, err := messaging.Decode[pagesTreePayload](msg)
	if err != nil {
		return nil, err
	}
	websiteURL := payload.WebsiteURL
	if websiteURL == "" {
		websiteURL = sender.PageOrigin()
	}
	return b.PagesTree(ctx, websiteURL)
}

func (b *Bridge) handleAPICall(ctx context.Context, msg messaging.Message, _ messaging.Sender) (any, error) {
	payload, err := messaging.Decode[apiCallPayload](msg)
	if err != nil {
		return nil, err
	}
	return b.APICall(ctx, payload.Endpoint, payload.Options)
}

func (b *Bridge) handleWorkspaceChanged(ctx context.Context, msg messaging.Message, _ messaging.Sender) (any, error) {
	payload, err := messaging.Decode[workspacePayload](msg)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(payload.WorkspaceID)) == "" {
		b.Workspaces.Clear(ctx)
		return workspaceResult{}, nil
	}
	if err := b.Workspaces.Select(ctx, payload.WorkspaceID); err != nil {
		return nil, err
	}
	return workspaceResult{WorkspaceID: payload.WorkspaceID}, nil
}

func (b *Bridge) handleGetWorkspace(ctx context.Context, _ messaging.Message, _ messaging.Sender) (any, error) {
	workspaceID, err := b.Workspaces.Require(ctx, "")
	if err != nil {
		return nil, err
	}
	return workspaceResult{WorkspaceID: workspaceID}, nil
}
