package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/pixzlo/pixzlo-bridge/internal/ports"
	"github.com/pixzlo/pixzlo-bridge/internal/telemetry"
)

const (
	DefaultPopupWidth  = 600
	DefaultPopupHeight = 700
	DefaultGraceDelay  = time.Second
)

var terminalOAuthPaths = []string{"/settings/connected", "/settings/integrations"}

type oauthVerdict int

const (
	verdictIgnore oauthVerdict = iota
	verdictSuccess
	verdictFailure
	verdictDeferredSuccess
)

// classifyOAuthURL decides what a popup navigation means. Only the connected
// and integrations settings pages end the flow; intermediate callbacks that
// carry an authorization code are ignored.
func classifyOAuthURL(raw string) (oauthVerdict, string) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return verdictIgnore, ""
	}

	terminal := false
	for _, path := range terminalOAuthPaths {
		if strings.Contains(parsed.Path, path) {
			terminal = true
			break
		}
	}
	if !terminal {
		return verdictIgnore, ""
	}

	query := parsed.Query()
	switch {
	case query.Has("success"):
		return verdictSuccess, ""
	case query.Has("error"):
		message := strings.TrimSpace(query.Get("error"))
		if message == "" {
			message = "authorization failed"
		}
		return verdictFailure, message
	default:
		return verdictDeferredSuccess, ""
	}
}

type OAuthOptions struct {
	PopupSize  domain.WindowSize
	GraceDelay time.Duration
	Logger     *slog.Logger
}

// OAuthOrchestrator runs the design-tool authorization in a popup window and
// watches its navigations for the terminal settings page. Each Authorize call
// owns its own popup and session.
type OAuthOrchestrator struct {
	resolver *WorkspaceResolver
	backend  ports.FigmaBackend
	browser  ports.BrowserHost

	popupSize  domain.WindowSize
	graceDelay time.Duration
	logger     *slog.Logger

	mu           sync.Mutex
	invalidators []Invalidator
}

func NewOAuthOrchestrator(resolver *WorkspaceResolver, backend ports.FigmaBackend, browser ports.BrowserHost, opts OAuthOptions) *OAuthOrchestrator {
	if opts.PopupSize.Width <= 0 || opts.PopupSize.Height <= 0 {
		opts.PopupSize = domain.WindowSize{Width: DefaultPopupWidth, Height: DefaultPopupHeight}
	}
	if opts.GraceDelay <= 0 {
		opts.GraceDelay = DefaultGraceDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &OAuthOrchestrator{
		resolver:   resolver,
		backend:    backend,
		browser:    browser,
		popupSize:  opts.PopupSize,
		graceDelay: opts.GraceDelay,
		logger:     opts.Logger,
	}
}

// OnSuccess registers caches cleared after a successful authorization.
func (o *OAuthOrchestrator) OnSuccess(invalidators ...Invalidator) {
	o.mu.Lock()
	o.invalidators = append(o.invalidators, invalidators...)
	o.mu.Unlock()
}

// Authorize blocks until the popup reaches a terminal page, the user closes
// it, or ctx is done.
func (o *OAuthOrchestrator) Authorize(ctx context.Context, workspaceOverride domain.WorkspaceID) error {
	workspaceID, err := o.resolver.Require(ctx, workspaceOverride)
	if err != nil {
		return err
	}

	authURL, err := o.backend.FigmaAuthURL(ctx, workspaceID)
	if err != nil {
		return err
	}

	popup, err := o.browser.OpenPopup(ctx, authURL, o.popupSize)
	if err != nil {
		return fmt.Errorf("open authorization popup: %w", err)
	}

	session := newOAuthSession(uuid.NewString(), popup, o.graceDelay, o.logger.With("workspace_id", workspaceID))
	session.logger.Info("oauth session started", "popup_id", popup.ID())
	session.start()

	select {
	case <-session.done:
	case <-ctx.Done():
		session.settle(sessionCancelled, fmt.Errorf("%w: %w", domain.ErrCancelled, ctx.Err()))
	}

	state, sessionErr := session.result()
	if state != sessionCancelled || !session.windowClosed() {
		if err := popup.Close(); err != nil {
			session.logger.Debug("close authorization popup", "error", err)
		}
	}

	if state == sessionSucceeded {
		o.invalidateAll()
	}

	telemetry.RecordOAuthSession(ctx, state.String())
	session.logger.Info("oauth session settled", "outcome", state.String())
	return sessionErr
}

func (o *OAuthOrchestrator) invalidateAll() {
	o.mu.Lock()
	invalidators := append([]Invalidator(nil), o.invalidators...)
	o.mu.Unlock()

	for _, inv := range invalidators {
		inv.Invalidate()
	}
}

type sessionState int

const (
	sessionPending sessionState = iota
	sessionSucceeded
	sessionFailed
	sessionCancelled
)

func (s sessionState) String() string {
	switch s {
	case sessionPending:
		return "pending"
	case sessionSucceeded:
		return "succeeded"
	case sessionFailed:
		return "failed"
	case sessionCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// oauthSession settles exactly once. The first event to move it out of
// pending detaches both listeners; every later event is a no-op.
type oauthSession struct {
	id         string
	popup      ports.Popup
	graceDelay time.Duration
	logger     *slog.Logger
	done       chan struct{}

	mu       sync.Mutex
	state    sessionState
	err      error
	removers []func()
	grace    *time.Timer
	closed   bool
}

func newOAuthSession(id string, popup ports.Popup, graceDelay time.Duration, logger *slog.Logger) *oauthSession {
	return &oauthSession{
		id:         id,
		popup:      popup,
		graceDelay: graceDelay,
		logger:     logger.With("session_id", id),
		done:       make(chan struct{}),
	}
}

func (s *oauthSession) start() {
	removeNavigate := s.popup.OnNavigate(s.onNavigate)
	removeClose := s.popup.OnClose(s.onClose)

	s.mu.Lock()
	if s.state != sessionPending {
		s.mu.Unlock()
		removeNavigate()
		removeClose()
		return
	}
	s.removers = []func(){removeNavigate, removeClose}
	s.mu.Unlock()
}

func (s *oauthSession) onNavigate(rawURL string) {
	verdict, message := classifyOAuthURL(rawURL)
	switch verdict {
	case verdictIgnore:
		return
	case verdictSuccess:
		s.settle(sessionSucceeded, nil)
	case verdictFailure:
		s.settle(sessionFailed, &domain.UpstreamError{Service: "figma oauth", Message: message})
	case verdictDeferredSuccess:
		s.deferSuccess()
	}
}

func (s *oauthSession) deferSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != sessionPending || s.grace != nil {
		return
	}
	s.logger.Debug("terminal page without result, waiting before settling", "delay", s.graceDelay)
	s.grace = time.AfterFunc(s.graceDelay, func() {
		s.settle(sessionSucceeded, nil)
	})
}

func (s *oauthSession) onClose() {
	s.mu.Lock()
	s.closed = true
	deferred := s.grace != nil
	s.mu.Unlock()

	// Closing after the terminal page was reached still counts as success.
	if deferred {
		s.settle(sessionSucceeded, nil)
		return
	}
	s.settle(sessionCancelled, domain.ErrCancelled)
}

func (s *oauthSession) settle(state sessionState, err error) bool {
	s.mu.Lock()
	if s.state != sessionPending {
		s.mu.Unlock()
		return false
	}
	s.state = state
	s.err = err
	removers := s.removers
	s.removers = nil
	grace := s.grace
	s.mu.Unlock()

	if grace != nil {
		grace.Stop()
	}
	for _, remove := range removers {
		remove()
	}
	close(s.done)
	return true
}

func (s *oauthSession) result() (sessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.err
}

func (s *oauthSession) windowClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// IsCancelled reports whether err is the user closing the popup.
func IsCancelled(err error) bool {
	return errors.Is(err, domain.ErrCancelled)
}
