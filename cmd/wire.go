package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pixzlo/pixzlo-bridge/internal/adapters/backend"
	"github.com/pixzlo/pixzlo-bridge/internal/adapters/browser"
	"github.com/pixzlo/pixzlo-bridge/internal/adapters/figma"
	statusadapter "github.com/pixzlo/pixzlo-bridge/internal/adapters/render/status"
	boltstore "github.com/pixzlo/pixzlo-bridge/internal/adapters/storage/bolt"
	chainstore "github.com/pixzlo/pixzlo-bridge/internal/adapters/storage/chain"
	tomlstore "github.com/pixzlo/pixzlo-bridge/internal/adapters/storage/toml"
	"github.com/pixzlo/pixzlo-bridge/internal/application"
	"github.com/pixzlo/pixzlo-bridge/internal/config"
	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/pixzlo/pixzlo-bridge/internal/logging"
	"github.com/pixzlo/pixzlo-bridge/internal/messaging"
	"github.com/pixzlo/pixzlo-bridge/internal/ports"
	"github.com/spf13/viper"
)

type app struct {
	cfg            config.Config
	logger         *slog.Logger
	bridge         *application.Bridge
	dispatcher     *messaging.Dispatcher
	statusRenderer func(application.Status, statusadapter.RenderOptions) (string, error)
	now            func() time.Time
	closers        []io.Closer
}

func wireApp() (*app, error) {
	cfg, err := config.Load(viper.New())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// stdout carries native messaging frames, so logs only go to stderr.
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}

	a := &app{
		cfg:            cfg,
		logger:         logger,
		statusRenderer: statusadapter.Render,
		now:            time.Now,
	}

	store, err := a.openStore()
	if err != nil {
		return nil, err
	}

	backendClient, err := backend.NewClient(backend.Options{
		BaseURL:        cfg.BackendURL,
		SessionToken:   cfg.BackendSessionToken,
		RequestTimeout: cfg.HTTPTimeout,
		Logger:         logger.With("component", "backend"),
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("wire backend client: %w", err)
	}

	tokens := &tokenSourceRef{}
	figmaClient, err := figma.NewClient(figma.Options{
		BaseURL:        cfg.FigmaAPIURL,
		Tokens:         tokens,
		RequestTimeout: cfg.HTTPTimeout,
		Logger:         logger.With("component", "figma"),
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("wire figma client: %w", err)
	}

	browserHost := browser.NewHost(browser.Options{
		UserDataDir: cfg.Browser.UserDataDir,
		Headless:    cfg.Browser.Headless,
		Logger:      logger.With("component", "browser"),
	})
	a.closers = append(a.closers, browserHost)

	a.bridge = application.NewBridge(application.BridgeConfig{
		FrontendURL: cfg.FrontendURL,
		MetadataTTL: cfg.Cache.MetadataTTL,
		RenderTTL:   cfg.Cache.RenderTTL,
		ProfileTTL:  cfg.Cache.ProfileTTL,
		OAuth: application.OAuthOptions{
			PopupSize:  domain.WindowSize{Width: cfg.OAuth.PopupWidth, Height: cfg.OAuth.PopupHeight},
			GraceDelay: cfg.OAuth.GraceDelay,
			Logger:     logger.With("component", "oauth"),
		},
	}, store, backendClient, figmaClient, figmaClient, browserHost, ports.SystemClock{}, logger)
	tokens.source = application.NewFigmaTokenSource(backendClient, a.bridge.Workspaces)

	a.dispatcher = messaging.NewDispatcher(logger.With("component", "dispatcher"))
	a.bridge.Register(a.dispatcher)

	return a, nil
}

// openStore prefers the bbolt database with the TOML file as fallback. When
// the database is locked by a running host the TOML file is used alone.
func (a *app) openStore() (ports.KeyValueStore, error) {
	fileStore, err := tomlstore.NewStore(a.cfg.StorageFallbackPath)
	if err != nil {
		return nil, fmt.Errorf("wire fallback storage: %w", err)
	}

	db, err := boltstore.Open(a.cfg.StoragePath, boltstore.WithLogger(a.logger.With("component", "storage")))
	if err != nil {
		a.logger.Warn("storage database unavailable, using fallback file", "path", a.cfg.StoragePath, "error", err)
		return fileStore, nil
	}
	a.closers = append(a.closers, db)

	store, err := chainstore.New(db, fileStore, chainstore.WithLogger(a.logger.With("component", "storage")))
	if err != nil {
		return nil, fmt.Errorf("wire storage chain: %w", err)
	}
	return store, nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// tokenSourceRef lets the design client be built before the bridge that owns
// the workspace resolver its tokens depend on.
type tokenSourceRef struct {
	source ports.AccessTokenSource
}

func (r *tokenSourceRef) AccessToken(ctx context.Context) (domain.AccessToken, error) {
	if r.source == nil {
		return domain.AccessToken{}, errors.New("figma token source is not wired")
	}
	return r.source.AccessToken(ctx)
}
