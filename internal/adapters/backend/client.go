// Package backend talks to the first-party Pixzlo API. Every response is a
// {success, data, error} envelope; session cookies are kept between calls.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/pixzlo/pixzlo-bridge/internal/ports"
	"github.com/pixzlo/pixzlo-bridge/internal/telemetry"
)

const (
	serviceName         = "backend"
	maxResponseBytes    = 8 << 20
	defaultTimeout      = 30 * time.Second
	workspaceQueryParam = "workspace_id"
	websiteQueryParam   = "website_url"
)

const (
	pathProfile           = "/api/user/profile"
	pathFigmaMetadata     = "/api/integrations/figma/metadata"
	pathFigmaPreferences  = "/api/integrations/figma/preferences"
	pathFigmaDesignLinks  = "/api/integrations/figma/design-links"
	pathFigmaAuthURL      = "/api/integrations/figma/auth-url"
	pathFigmaToken        = "/api/integrations/figma/token"
	pathLinearStatus      = "/api/integrations/linear/status"
	pathLinearMetadata    = "/api/integrations/linear/metadata"
	pathLinearPreferences = "/api/integrations/linear/preferences"
	pathLinearIssues      = "/api/integrations/linear/issues"
	pathPagesTree         = "/api/pages/tree"
)

type Client struct {
	baseURL        *url.URL
	sessionToken   string
	httpClient     *http.Client
	requestTimeout time.Duration
	logger         *slog.Logger
}

var _ ports.Backend = (*Client)(nil)

type Options struct {
	BaseURL        string
	SessionToken   string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("backend base url is required")
	}
	parsed, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("backend base url must use http or https")
	}
	if parsed.Host == "" {
		return nil, errors.New("backend base url host is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		httpClient = &http.Client{Jar: jar}
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:        parsed,
		sessionToken:   opts.SessionToken,
		httpClient:     httpClient,
		requestTimeout: timeout,
		logger:         logger,
	}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

func (e envelope) errorMessage() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	headers map[string]string
}

func (c *Client) GetProfile(ctx context.Context) (domain.Profile, error) {
	var profile domain.Profile
	if err := c.call(ctx, request{method: http.MethodGet, path: pathProfile}, &profile); err != nil {
		return domain.Profile{}, fmt.Errorf("fetch user profile: %w", err)
	}
	return profile, nil
}

func (c *Client) FetchFigmaMetadata(ctx context.Context, workspaceID domain.WorkspaceID, websiteURL string) (domain.FigmaMetadata, error) {
	query := workspaceQuery(workspaceID)
	if websiteURL != "" {
		query.Set(websiteQueryParam, websiteURL)
	}

	var metadata domain.FigmaMetadata
	if err := c.call(ctx, request{method: http.MethodGet, path: pathFigmaMetadata, query: query}, &metadata); err != nil {
		return domain.FigmaMetadata{}, fmt.Errorf("fetch figma metadata: %w", err)
	}
	if metadata.DesignLinks == nil {
		metadata.DesignLinks = []domain.DesignLink{}
	}
	return metadata, nil
}

func (c *Client) UpdateFigmaPreference(ctx context.Context, workspaceID domain.WorkspaceID, pref domain.FigmaPreference) error {
	req := request{method: http.MethodPut, path: pathFigmaPreferences, query: workspaceQuery(workspaceID), body: pref}
	if err := c.call(ctx, req, nil); err != nil {
		return fmt.Errorf("update figma preference: %w", err)
	}
	return nil
}

func (c *Client) CreateDesignLink(ctx context.Context, workspaceID domain.WorkspaceID, input domain.DesignLinkInput) (domain.DesignLink, error) {
	var link domain.DesignLink
	req := request{method: http.MethodPost, path: pathFigmaDesignLinks, query: workspaceQuery(workspaceID), body: input}
	if err := c.call(ctx, req, &link); err != nil {
		return domain.DesignLink{}, fmt.Errorf("create design link: %w", err)
	}
	return link, nil
}

func (c *Client) DeleteDesignLink(ctx context.Context, workspaceID domain.WorkspaceID, linkID string) error {
	if strings.TrimSpace(linkID) == "" {
		return fmt.Errorf("%w: link id is required", domain.ErrValidation)
	}
	req := request{method: http.MethodDelete, path: pathFigmaDesignLinks + "/" + url.PathEscape(linkID), query: workspaceQuery(workspaceID)}
	if err := c.call(ctx, req, nil); err != nil {
		return fmt.Errorf("delete design link: %w", err)
	}
	return nil
}

func (c *Client) FigmaAuthURL(ctx context.Context, workspaceID domain.WorkspaceID) (string, error) {
	var payload struct {
		AuthURL string `json:"authUrl"`
	}
	if err := c.call(ctx, request{method: http.MethodGet, path: pathFigmaAuthURL, query: workspaceQuery(workspaceID)}, &payload); err != nil {
		return "", fmt.Errorf("fetch figma auth url: %w", err)
	}
	if payload.AuthURL == "" {
		return "", &domain.UpstreamError{Service: serviceName, Message: "auth url response missing authUrl"}
	}
	return payload.AuthURL, nil
}

func (c *Client) FigmaAccessToken(ctx context.Context, workspaceID domain.WorkspaceID) (domain.AccessToken, error) {
	var token domain.AccessToken
	if err := c.call(ctx, request{method: http.MethodGet, path: pathFigmaToken, query: workspaceQuery(workspaceID)}, &token); err != nil {
		return domain.AccessToken{}, fmt.Errorf("fetch figma access token: %w", err)
	}
	if token.Token == "" {
		return domain.AccessToken{}, fmt.Errorf("fetch figma access token: %w", domain.ErrAuthRequired)
	}
	return token, nil
}

func (c *Client) LinearStatus(ctx context.Context, workspaceID domain.WorkspaceID) (domain.LinearStatus, error) {
	var status domain.LinearStatus
	if err := c.call(ctx, request{method: http.MethodGet, path: pathLinearStatus, query: workspaceQuery(workspaceID)}, &status); err != nil {
		return domain.LinearStatus{}, fmt.Errorf("check linear status: %w", err)
	}
	return status, nil
}

func (c *Client) FetchLinearMetadata(ctx context.Context, workspaceID domain.WorkspaceID) (domain.LinearMetadata, error) {
	var metadata domain.LinearMetadata
	if err := c.call(ctx, request{method: http.MethodGet, path: pathLinearMetadata, query: workspaceQuery(workspaceID)}, &metadata); err != nil {
		return domain.LinearMetadata{}, fmt.Errorf("fetch linear metadata: %w", err)
	}
	return metadata, nil
}

func (c *Client) UpdateLinearPreference(ctx context.Context, workspaceID domain.WorkspaceID, pref domain.LinearPreference) error {
	req := request{method: http.MethodPut, path: pathLinearPreferences, query: workspaceQuery(workspaceID), body: pref}
	if err := c.call(ctx, req, nil); err != nil {
		return fmt.Errorf("update linear preference: %w", err)
	}
	return nil
}

func (c *Client) CreateLinearIssue(ctx context.Context, workspaceID domain.WorkspaceID, input domain.LinearIssueInput) (domain.LinearIssue, error) {
	var issue domain.LinearIssue
	req := request{method: http.MethodPost, path: pathLinearIssues, query: workspaceQuery(workspaceID), body: input}
	if err := c.call(ctx, req, &issue); err != nil {
		return domain.LinearIssue{}, fmt.Errorf("create linear issue: %w", err)
	}
	return issue, nil
}

func (c *Client) FetchPagesTree(ctx context.Context, workspaceID domain.WorkspaceID, websiteURL string) (json.RawMessage, error) {
	query := workspaceQuery(workspaceID)
	if websiteURL != "" {
		query.Set(websiteQueryParam, websiteURL)
	}

	var tree json.RawMessage
	if err := c.call(ctx, request{method: http.MethodGet, path: pathPagesTree, query: query}, &tree); err != nil {
		return nil, fmt.Errorf("fetch pages tree: %w", err)
	}
	if len(tree) == 0 {
		tree = json.RawMessage("null")
	}
	return tree, nil
}

// Call proxies an arbitrary request under the backend base URL and returns the
// raw response body. Absolute URLs pointing at another host are rejected.
func (c *Client) Call(ctx context.Context, endpoint string, opts domain.APICallOptions) (json.RawMessage, error) {
	target, err := c.resolveEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = http.MethodGet
	}

	status, body, err := c.send(ctx, method, target, opts.Body, opts.Headers)
	if err != nil {
		return nil, fmt.Errorf("api call %s %s: %w", method, target.Path, err)
	}
	if err := statusError(status, body); err != nil {
		return nil, fmt.Errorf("api call %s %s: %w", method, target.Path, err)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(body) {
		encoded, err := json.Marshal(string(body))
		if err != nil {
			return nil, fmt.Errorf("encode api call response: %w", err)
		}
		return encoded, nil
	}
	return json.RawMessage(body), nil
}

func (c *Client) call(ctx context.Context, req request, out any) error {
	target := c.baseURL.JoinPath(req.path)
	if len(req.query) > 0 {
		target.RawQuery = req.query.Encode()
	}

	status, body, err := c.send(ctx, req.method, target, req.body, req.headers)
	if err != nil {
		return err
	}
	if err := statusError(status, body); err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &domain.UpstreamError{Service: serviceName, StatusCode: status, Message: "decode response envelope: " + err.Error()}
	}
	if !env.Success {
		message := env.errorMessage()
		if message == "" {
			message = "request was not successful"
		}
		return &domain.UpstreamError{Service: serviceName, StatusCode: status, Message: message}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], env.Data...)
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &domain.UpstreamError{Service: serviceName, StatusCode: status, Message: "decode response data: " + err.Error()}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method string, target *url.URL, payload any, headers map[string]string) (int, []byte, error) {
	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	var reader io.Reader
	contentType := ""
	switch body := payload.(type) {
	case nil:
	case string:
		reader = strings.NewReader(body)
		contentType = "text/plain; charset=utf-8"
	case json.RawMessage:
		reader = bytes.NewReader(body)
		contentType = "application/json"
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: encode request body: %v", domain.ErrValidation, err)
		}
		reader = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(requestCtx, method, target.String(), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if c.sessionToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.sessionToken)
	}
	for name, value := range headers {
		httpReq.Header.Set(name, value)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		telemetry.RecordUpstream(ctx, serviceName, telemetry.Outcome(0, err), time.Since(started))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		return 0, nil, &domain.UpstreamError{Service: serviceName, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	telemetry.RecordUpstream(ctx, serviceName, telemetry.Outcome(resp.StatusCode, err), time.Since(started))
	if err != nil {
		return resp.StatusCode, nil, &domain.UpstreamError{Service: serviceName, StatusCode: resp.StatusCode, Message: "read response: " + err.Error()}
	}

	c.logger.Debug("backend request", "method", method, "path", target.Path, "status", resp.StatusCode, "duration", time.Since(started))
	return resp.StatusCode, body, nil
}

func (c *Client) resolveEndpoint(endpoint string) (*url.URL, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is required", domain.ErrValidation)
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: parse endpoint: %v", domain.ErrValidation, err)
	}
	if parsed.IsAbs() {
		if parsed.Scheme != c.baseURL.Scheme || parsed.Host != c.baseURL.Host {
			return nil, fmt.Errorf("%w: endpoint %q is outside the backend", domain.ErrValidation, endpoint)
		}
		return parsed, nil
	}

	target := c.baseURL.JoinPath(parsed.Path)
	target.RawQuery = parsed.RawQuery
	return target, nil
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

func statusError(status int, body []byte) error {
	if status == http.StatusUnauthorized {
		return domain.ErrAuthRequired
	}
	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		return nil
	}

	message := ""
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		message = env.errorMessage()
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &domain.UpstreamError{Service: serviceName, StatusCode: status, Message: message}
}

func workspaceQuery(workspaceID domain.WorkspaceID) url.Values {
	query := url.Values{}
	if workspaceID != "" {
		query.Set(workspaceQueryParam, string(workspaceID))
	}
	return query
}
