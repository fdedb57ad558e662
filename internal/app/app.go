// Package app initializes and runs the companion core: it opens the vault
// and the deployment database, wires the session registry, asset store and
// usage tracker, runs the post-startup cleanup and periodic flushes, and
// tears everything down in order on shutdown.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/canvai/canvai/internal/canvas"
	"github.com/canvai/canvai/internal/config"
	"github.com/canvai/canvai/internal/host"
	"github.com/canvai/canvai/internal/logging"
	"github.com/canvai/canvai/internal/provider"
	"github.com/canvai/canvai/internal/repositories"
	"github.com/canvai/canvai/internal/session"
	"github.com/canvai/canvai/internal/vault"
)

const databaseFileName = "companion.db"

type App struct {
	cfg   *config.Config
	log   logging.Logger
	sched host.Scheduler

	vault    *vault.Vault
	repos    *repositories.Repos
	client   provider.Client
	registry *session.Registry
	tracker  *canvas.Tracker
	store    *canvas.Store
	mirror   *canvas.Mirror

	chat   *ChatService
	images *ImageService
}

// NewApp builds the full dependency graph. A vault that cannot be opened is
// fatal: nothing depending on it may start half-initialized.
func NewApp(ctx context.Context, cfg *config.Config, sched host.Scheduler, log logging.Logger) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o770); err != nil {
		return nil, fmt.Errorf("data dir %s: %w", cfg.DataDir, err)
	}

	v, err := vault.Open(cfg.DataDir, cfg.VaultPassphrase)
	if err != nil {
		return nil, fmt.Errorf("vault init error: %w", err)
	}

	repos, err := repositories.InitDatabase(ctx, filepath.Join(cfg.DataDir, databaseFileName))
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	client := provider.NewOpenAI(cfg.ProviderBaseURL, log)

	registry := session.NewRegistry(v, repos.Credentials, repos.Overrides, client, session.Defaults{
		Secret:   cfg.APIKey,
		Model:    cfg.Model,
		Timeout:  cfg.Timeout,
		MaxPairs: cfg.HistoryMaxPairs,
	}, log)

	healthy, err := registry.Preload(ctx)
	if err != nil {
		return nil, fmt.Errorf("credential preload error: %w", err)
	}
	log.Info(ctx, "credentials preloaded", "count", healthy)

	tracker := canvas.NewTracker(repos.DB, repos.Seen, log)
	if err := tracker.Load(ctx); err != nil {
		return nil, fmt.Errorf("last-seen load error: %w", err)
	}

	var mirror *canvas.Mirror
	if cfg.S3Mirror.Enabled {
		mirror, err = canvas.NewMirror(ctx, cfg.S3Mirror, log)
		if err != nil {
			return nil, fmt.Errorf("mirror init error: %w", err)
		}
	}

	store := canvas.NewStore(cfg.DataDir, tracker, mirror, cfg.CleanupNeverSeen, log)
	if err := store.Load(ctx); err != nil {
		return nil, fmt.Errorf("asset load error: %w", err)
	}

	app := &App{
		cfg:      cfg,
		log:      log,
		sched:    sched,
		vault:    v,
		repos:    repos,
		client:   client,
		registry: registry,
		tracker:  tracker,
		store:    store,
		mirror:   mirror,
	}
	app.chat = NewChatService(registry, sched, log)
	app.images = NewImageService(registry, client, store, sched, cfg.Timeout, log)
	return app, nil
}

// Registry exposes the session registry to the front-end collaborator.
func (app *App) Registry() *session.Registry { return app.registry }

// Store exposes the asset store.
func (app *App) Store() *canvas.Store { return app.store }

// Tracker exposes the usage tracker, fed by host observation events.
func (app *App) Tracker() *canvas.Tracker { return app.tracker }

// Chat exposes the chat dispatch service.
func (app *App) Chat() *ChatService { return app.chat }

// Images exposes the image pipeline service.
func (app *App) Images() *ImageService { return app.images }

// RestoreCanvases schedules the restart-recovery pass onto the main thread.
// Call it once the host's canvas registry is fully queryable; running it
// during early boot would misread recycled ids as misses.
func (app *App) RestoreCanvases(ctx context.Context, reg host.CanvasRegistry) {
	app.sched.RunMain(func() {
		app.store.RestoreAll(ctx, reg)
	})
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run drives the background duties until ctx is cancelled or a signal
// arrives: the one-shot post-startup cleanup and the periodic last-seen
// flush. It returns after Shutdown completes.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.log.Info(ctx, "companion core starting", "data_dir", app.cfg.DataDir)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	if app.cfg.CleanupDelay > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case <-ctx.Done():
			case <-time.After(app.cfg.CleanupDelay):
				if _, err := app.store.Cleanup(ctx, app.cfg.CleanupMaxAge); err != nil {
					app.log.Error(ctx, "startup cleanup failed", "error", err)
				}
			}
		}()
	}

	if app.cfg.SeenFlushInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(app.cfg.SeenFlushInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := app.tracker.Flush(ctx); err != nil {
						app.log.Error(ctx, "last-seen flush failed", "error", err)
					}
				}
			}
		}()
	}

	<-ctx.Done()
	wg.Wait()

	app.Shutdown()
}

// Shutdown flushes and closes everything in dependency order. Safe to call
// once, after Run has returned or instead of it.
func (app *App) Shutdown() {
	ctx := context.Background()

	// In-flight tile persists write files and feed the mirror and tracker;
	// they must land before anything below is flushed or closed.
	app.images.Wait()

	if err := app.tracker.Flush(ctx); err != nil {
		app.log.Error(ctx, "final last-seen flush failed", "error", err)
	}
	if app.mirror != nil {
		app.mirror.Close()
	}
	if err := app.repos.DB.Close(); err != nil {
		app.log.Error(ctx, "db close failed", "error", err)
	}

	app.log.Info(ctx, "companion core stopped")
}
