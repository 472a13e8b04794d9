// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Strikerman10/gptAPI/internal/commands"
	"github.com/Strikerman10/gptAPI/internal/config"
	"github.com/Strikerman10/gptAPI/internal/lifecycle"
	"github.com/Strikerman10/gptAPI/internal/session"
	"github.com/Strikerman10/gptAPI/internal/storage"
	"github.com/Strikerman10/gptAPI/internal/store"
	"github.com/Strikerman10/gptAPI/internal/syncer"
	"github.com/Strikerman10/gptAPI/internal/transport"
	"github.com/Strikerman10/gptAPI/internal/ui/styles"
	"github.com/Strikerman10/gptAPI/internal/worker"
)

// shutdownTimeout bounds the final cloud flush.
const shutdownTimeout = 15 * time.Second

// App is the wired application: cache, Worker client, session, persistence
// and the conversation controller.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Cache       *storage.Cache
	Worker      *worker.Client
	Session     *session.Manager
	Coordinator *syncer.Coordinator
	Controller  *lifecycle.Controller
	Prefs       *styles.Prefs
	Registry    *commands.Registry
	Env         *commands.Env
}

// openApp wires every component from cfg. Nothing touches the network until
// a login or load is requested.
func openApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}
	cache, err := storage.Open(storage.Options{Backend: cfg.Storage.Backend, Dir: dataDir})
	if err != nil {
		return nil, fmt.Errorf("open local cache: %w", err)
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.Worker.TimeoutSecs) * time.Second}
	wc := worker.NewClient(cfg.Worker.URL).
		WithTransport(transport.NewClient(httpClient).WithLogger(logger)).
		WithPolicy(retryPolicy(cfg.Retry)).
		WithLogger(logger)

	sm := session.NewManager(wc, cache).WithLogger(logger)
	wc.WithAuthorizer(sm)

	// A nil *worker.Client must not reach the interface.
	var cloud syncer.CloudStore
	if !cfg.Sync.Disabled {
		cloud = wc
	}
	coord := syncer.NewCoordinator(cache, cloud, sm, syncer.WriterOptions{
		Debounce:    time.Duration(cfg.Sync.DebounceMs) * time.Millisecond,
		MinInterval: time.Duration(cfg.Sync.MinIntervalMs) * time.Millisecond,
		SaveTimeout: time.Duration(cfg.Sync.SaveTimeoutSecs) * time.Second,
		Logger:      logger,
	})

	modelName := cfg.Chat.Model
	if stored, err := cache.Model(); err != nil {
		logger.Warn("could not read remembered model", "error", err)
	} else if stored != "" {
		modelName = stored
	}

	ctrl := lifecycle.NewController(store.New(), wc, coord, lifecycle.Options{
		Model:         modelName,
		ContextWindow: cfg.Chat.ContextWindow,
		TitleLength:   cfg.Chat.TitleLength,
		ModelStore:    cache,
		Logger:        logger,
	})

	palette, mode, err := cache.Theme()
	if err != nil {
		logger.Warn("could not read remembered theme", "error", err)
	}
	defaultMode := cfg.UI.Mode
	if defaultMode == "" {
		defaultMode = string(styles.DetectMode())
	}
	prefs := styles.NewPrefs(cache, palette, mode, cfg.UI.Palette, defaultMode)

	return &App{
		Config:      cfg,
		Logger:      logger,
		Cache:       cache,
		Worker:      wc,
		Session:     sm,
		Coordinator: coord,
		Controller:  ctrl,
		Prefs:       prefs,
		Registry:    commands.NewRegistry(),
		Env: &commands.Env{
			Controller: ctrl,
			Session:    sm,
			Appearance: prefs,
		},
	}, nil
}

func retryPolicy(rc config.RetryConfig) transport.Policy {
	return transport.Policy{
		MaxAttempts:   rc.MaxAttempts,
		BaseDelay:     time.Duration(rc.BaseDelayMs) * time.Millisecond,
		JitterCeiling: time.Duration(rc.JitterMs) * time.Millisecond,
		MaxDelay:      time.Duration(rc.MaxDelayMs) * time.Millisecond,
		IsRetryable:   transport.DefaultRetryable,
	}
}

// Login asks for credentials until the Worker accepts them.
func (a *App) Login(ctx context.Context, p session.Prompter) error {
	if a.Session.IsAuthenticated() {
		return nil
	}
	if id := a.Session.CurrentUserID(); id != "" {
		p.Notify("Signing in (last user: " + id + ")")
	}
	return a.Session.EnsureLogin(ctx, p)
}

// Load runs the initial load and installs the result in the controller.
func (a *App) Load(ctx context.Context) (syncer.Result, error) {
	res, err := a.Coordinator.LoadInitial(ctx, a.Session.CurrentUserID())
	if err != nil {
		return res, err
	}
	a.Controller.Load(res.Conversations, res.ActiveID)
	if res.CloudErr != nil {
		a.Logger.Warn("cloud load failed, using local cache", "error", res.CloudErr)
	}
	return res, nil
}

// Close settles unfinished replies, flushes pending cloud writes and closes
// the cache.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.Controller.AbandonInFlight()

	var errs []error
	if err := a.Coordinator.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("final sync: %w", err))
	}
	if err := a.Cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close cache: %w", err))
	}
	return errors.Join(errs...)
}

// openApp for a command, with login unless disabled.
func (rt *runtime) openSignedIn(ctx context.Context, p session.Prompter) (*App, error) {
	app, err := openApp(rt.cfg, rt.logger)
	if err != nil {
		return nil, err
	}
	if !rt.skipLogin {
		if err := app.Login(ctx, p); err != nil {
			app.Close()
			return nil, err
		}
	}
	return app, nil
}
