// Package browser drives the windows the bridge opens on the user's behalf
// through a playwright-controlled Chromium profile.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/pixzlo/pixzlo-bridge/internal/ports"
	"github.com/playwright-community/playwright-go"
)

var ErrHostClosed = errors.New("browser host closed")

type Options struct {
	// UserDataDir keeps cookies between runs so design-tool sessions survive.
	UserDataDir string
	Headless    bool
	// SkipInstall assumes the driver and browsers are already present.
	SkipInstall bool
	Logger      *slog.Logger
}

// Host launches Chromium lazily on the first window request and reuses the
// persistent context for every popup and tab after that.
type Host struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	pw      *playwright.Playwright
	context playwright.BrowserContext
	closed  bool
}

var _ ports.BrowserHost = (*Host)(nil)

func NewHost(opts Options) *Host {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{opts: opts, logger: logger}
}

func (h *Host) OpenPopup(ctx context.Context, url string, size domain.WindowSize) (ports.Popup, error) {
	page, err := h.newPage(ctx)
	if err != nil {
		return nil, err
	}

	if size.Width > 0 && size.Height > 0 {
		if err := page.SetViewportSize(size.Width, size.Height); err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("size popup: %w", err)
		}
	}

	popup := newPopup(uuid.NewString(), page)
	if err := gotoURL(page, url); err != nil {
		_ = popup.Close()
		return nil, err
	}

	h.logger.Debug("popup opened", "popup_id", popup.ID(), "width", size.Width, "height", size.Height)
	return popup, nil
}

func (h *Host) OpenTab(ctx context.Context, url string) error {
	page, err := h.newPage(ctx)
	if err != nil {
		return err
	}
	if err := gotoURL(page, url); err != nil {
		_ = page.Close()
		return err
	}
	return nil
}

// PinnedState is always false: a standalone window has no toolbar to pin to.
func (h *Host) PinnedState(context.Context) (bool, error) {
	return false, nil
}

func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	var errs []error
	if h.context != nil {
		if err := h.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser context: %w", err))
		}
	}
	if h.pw != nil {
		if err := h.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (h *Host) newPage(ctx context.Context) (playwright.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	browserContext, err := h.ensureContext()
	if err != nil {
		return nil, err
	}
	page, err := browserContext.NewPage()
	if err != nil {
		return nil, fmt.Errorf("open browser page: %w", err)
	}
	return page, nil
}

func (h *Host) ensureContext() (playwright.BrowserContext, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHostClosed
	}
	if h.context != nil {
		return h.context, nil
	}

	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if !h.opts.SkipInstall {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	headless := h.opts.Headless
	browserContext, err := pw.Chromium.LaunchPersistentContext(h.opts.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: &headless,
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	h.logger.Info("browser launched", "user_data_dir", h.opts.UserDataDir, "headless", headless)
	h.pw = pw
	h.context = browserContext
	return browserContext, nil
}

func gotoURL(page playwright.Page, url string) error {
	waitUntil := playwright.WaitUntilState("commit")
	if _, err := page.Goto(url, playwright.PageGotoOptions{WaitUntil: &waitUntil}); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}
