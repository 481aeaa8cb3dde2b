// Package figma is a minimal client for the design tool's REST API: file
// documents and node image renders.
package figma

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/pixzlo/pixzlo-bridge/internal/ports"
	"github.com/pixzlo/pixzlo-bridge/internal/telemetry"
)

const (
	serviceName      = "figma"
	maxResponseBytes = 64 << 20
	defaultTimeout   = 30 * time.Second
	tokenExpirySkew  = 30 * time.Second
	imageFormat      = "png"
	imageScale       = "2"
)

type Client struct {
	baseURL        *url.URL
	tokens         ports.AccessTokenSource
	httpClient     *http.Client
	clock          ports.Clock
	requestTimeout time.Duration
	logger         *slog.Logger

	mu    sync.Mutex
	token domain.AccessToken
}

var _ ports.DesignAPI = (*Client)(nil)

type Options struct {
	BaseURL        string
	Tokens         ports.AccessTokenSource
	HTTPClient     *http.Client
	Clock          ports.Clock
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

func NewClient(opts Options) (*Client, error) {
	if opts.Tokens == nil {
		return nil, errors.New("figma token source is required")
	}
	parsed, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse figma api url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" || parsed.Host == "" {
		return nil, fmt.Errorf("figma api url %q must be an absolute http(s) url", opts.BaseURL)
	}

	client := &Client{
		baseURL:        parsed,
		tokens:         opts.Tokens,
		httpClient:     opts.HTTPClient,
		clock:          opts.Clock,
		requestTimeout: opts.RequestTimeout,
		logger:         opts.Logger,
	}
	if client.httpClient == nil {
		client.httpClient = http.DefaultClient
	}
	if client.clock == nil {
		client.clock = ports.SystemClock{}
	}
	if client.requestTimeout <= 0 {
		client.requestTimeout = defaultTimeout
	}
	if client.logger == nil {
		client.logger = slog.Default()
	}
	return client, nil
}

// Invalidate drops the cached access token so the next request asks the
// token source again.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.token = domain.AccessToken{}
	c.mu.Unlock()
}

func (c *Client) GetFile(ctx context.Context, fileID string) (domain.DesignFile, error) {
	if strings.TrimSpace(fileID) == "" {
		return domain.DesignFile{}, fmt.Errorf("%w: file id is required", domain.ErrValidation)
	}

	var file domain.DesignFile
	if err := c.get(ctx, c.baseURL.JoinPath("v1", "files", fileID), &file); err != nil {
		return domain.DesignFile{}, fmt.Errorf("fetch design file %s: %w", fileID, err)
	}
	return file, nil
}

type imagesResponse struct {
	Err    *string            `json:"err"`
	Images map[string]*string `json:"images"`
}

func (c *Client) RenderImage(ctx context.Context, fileID, nodeID string) (string, error) {
	ref := domain.FrameRef{FileID: fileID, NodeID: nodeID}
	if err := ref.Validate(); err != nil {
		return "", err
	}

	target := c.baseURL.JoinPath("v1", "images", fileID)
	query := url.Values{}
	query.Set("ids", nodeID)
	query.Set("format", imageFormat)
	query.Set("scale", imageScale)
	target.RawQuery = query.Encode()

	var payload imagesResponse
	if err := c.get(ctx, target, &payload); err != nil {
		return "", fmt.Errorf("render image %s: %w", ref.CacheKey(), err)
	}
	if payload.Err != nil && *payload.Err != "" {
		return "", &domain.UpstreamError{Service: serviceName, Message: *payload.Err}
	}

	imageURL, ok := payload.Images[nodeID]
	if !ok || imageURL == nil || *imageURL == "" {
		return "", fmt.Errorf("render image %s: %w: no image returned", ref.CacheKey(), domain.ErrNotFound)
	}
	return *imageURL, nil
}

func (c *Client) get(ctx context.Context, target *url.URL, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	requestCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		requestCtx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		telemetry.RecordUpstream(ctx, serviceName, telemetry.Outcome(0, err), time.Since(started))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &domain.UpstreamError{Service: serviceName, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()
	telemetry.RecordUpstream(ctx, serviceName, telemetry.Outcome(resp.StatusCode, nil), time.Since(started))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.Invalidate()
		return domain.ErrAuthRequired
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, readErrorMessage(resp))
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return &domain.UpstreamError{Service: serviceName, StatusCode: resp.StatusCode, Message: readErrorMessage(resp)}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return &domain.UpstreamError{Service: serviceName, StatusCode: resp.StatusCode, Message: "decode response: " + err.Error()}
	}

	c.logger.Debug("figma request", "path", target.Path, "status", resp.StatusCode, "duration", time.Since(started))
	return nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.token
	c.mu.Unlock()
	if cached.Valid(c.clock.Now(), tokenExpirySkew) {
		return cached.Token, nil
	}

	fresh, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("obtain figma access token: %w", err)
	}
	if fresh.Token == "" {
		return "", fmt.Errorf("obtain figma access token: %w", domain.ErrAuthRequired)
	}

	c.mu.Lock()
	c.token = fresh
	c.mu.Unlock()
	return fresh.Token, nil
}

func readErrorMessage(resp *http.Response) string {
	var payload struct {
		Err     string `json:"err"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err == nil {
		if payload.Err != "" {
			return payload.Err
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return http.StatusText(resp.StatusCode)
}
