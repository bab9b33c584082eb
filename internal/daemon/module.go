package daemon

import (
	"context"
	"io"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/kshitizb/talk/internal/bus"
	"github.com/kshitizb/talk/internal/config"
	"github.com/kshitizb/talk/internal/directory"
	"github.com/kshitizb/talk/internal/engine"
	"github.com/kshitizb/talk/internal/httpapi"
	"github.com/kshitizb/talk/internal/identity"
	"github.com/kshitizb/talk/internal/keyedstore"
	"github.com/kshitizb/talk/internal/lock"
	"github.com/kshitizb/talk/internal/logging"
	"github.com/kshitizb/talk/internal/media"
	"github.com/kshitizb/talk/internal/observability"
	"github.com/kshitizb/talk/internal/session"
	"github.com/kshitizb/talk/internal/status"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	Listen      string // optional override for testing; empty = use config
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideConfig,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideIdentity,
			provideUploader,
			provideDirectory,
			provideEngine,
			provideHandler,
			provideServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

func provideConfig(p Params, logger *zap.Logger) (*config.Config, error) {
	cfg, err := config.Load(session.ConfigPath())
	if err != nil {
		logger.Info("no config file, using defaults", zap.String("path", session.ConfigPath()))
		cfg = config.Default()
		cfg.Identity.TokenPath = session.TokenPath(p.SessionName)
	}
	if p.Listen != "" {
		cfg.Server.Listen = p.Listen
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.LockPath(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideStore(p Params, cfg *config.Config, logger *zap.Logger) (keyedstore.Store, error) {
	if cfg.Store.Backend == "memory" {
		logger.Info("store initialized", zap.String("backend", "memory"))
		return keyedstore.NewMemory(), nil
	}

	dbPath := session.DBPath(p.SessionName)
	db, err := keyedstore.OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("backend", "sqlite"), zap.String("path", dbPath))
	return db, nil
}

func provideIdentity(cfg *config.Config) identity.Provider {
	if cfg.Identity.TokenPath != "" {
		return identity.NewTokenProvider(cfg.Identity.TokenPath, []byte(cfg.Identity.Secret))
	}
	return identity.Static{Identity: identity.Identity{
		UID:         cfg.Identity.UID,
		Email:       cfg.Identity.Email,
		DisplayName: cfg.Identity.Name,
	}}
}

func provideUploader(p Params, cfg *config.Config, logger *zap.Logger) (media.Uploader, error) {
	if cfg.Media.Backend == "s3" {
		logger.Info("media backend s3", zap.String("bucket", cfg.Media.Bucket))
		return media.NewS3(context.Background(), media.S3Config{
			Region:       cfg.Media.Region,
			Bucket:       cfg.Media.Bucket,
			AccessKey:    cfg.Media.AccessKey,
			SecretKey:    cfg.Media.SecretKey,
			BaseEndpoint: cfg.Media.BaseEndpoint,
		})
	}
	dir := cfg.Media.Dir
	if dir == "" {
		dir = session.MediaDir(p.SessionName)
	}
	logger.Info("media backend dir", zap.String("dir", dir))
	return media.NewDir(dir)
}

func provideDirectory(store keyedstore.Store, b *bus.Bus, logger *zap.Logger) *directory.Directory {
	return directory.New(store, b, logger)
}

func provideEngine(store keyedstore.Store, ident identity.Provider, uploader media.Uploader, b *bus.Bus, logger *zap.Logger) *engine.Engine {
	return engine.New(store, ident, uploader, b, logger)
}

func provideHandler(e *engine.Engine, d *directory.Directory, ident identity.Provider, m *status.Machine, b *bus.Bus, logger *zap.Logger) *httpapi.Handler {
	return httpapi.NewHandler(e, d, ident, m, b, logger)
}

func provideServer(cfg *config.Config, h *httpapi.Handler, logger *zap.Logger) *httpapi.Server {
	return httpapi.NewServer(cfg.Server.Listen, httpapi.Router(h), logger)
}

func registerLifecycle(lc fx.Lifecycle, srv *httpapi.Server, lk *lock.Lock, store keyedstore.Store, machine *status.Machine, b *bus.Bus, logger *zap.Logger) {
	var stopRecorder, stopHealth func()
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			stopRecorder = observability.Recorder(b)
			stopHealth = watchHealth(b, machine, logger)

			if err := srv.Start(); err != nil {
				_ = machine.Transition(status.Error)
				return err
			}

			if err := machine.Transition(status.Ready); err != nil {
				return err
			}
			logger.Info("daemon ready", zap.String("addr", srv.Addr()))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil {
				logger.Warn("error stopping http api", zap.Error(err))
			}
			if stopHealth != nil {
				stopHealth()
			}
			if stopRecorder != nil {
				stopRecorder()
			}
			if closer, ok := store.(io.Closer); ok {
				if err := closer.Close(); err != nil {
					logger.Warn("error closing store", zap.Error(err))
				}
			}
			_ = machine.Transition(status.Stopped)
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
