// Package app wires the stores, services and remote collaborators that the
// commands share.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/abhisek/coursekit/internal/assessment"
	"github.com/abhisek/coursekit/internal/certificate"
	"github.com/abhisek/coursekit/internal/config"
	"github.com/abhisek/coursekit/internal/course"
	"github.com/abhisek/coursekit/internal/logger"
	"github.com/abhisek/coursekit/internal/progress"
	"github.com/abhisek/coursekit/internal/remote"
	"github.com/abhisek/coursekit/internal/store"
)

// Options overrides configuration from flags.
type Options struct {
	ConfigPath string
	DBPath     string
	// Logger replaces the configured logger, mainly for tests.
	Logger *zap.Logger
}

// App holds everything a command needs. Close releases it.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Store    *store.Store
	Events   store.EventRepo
	Catalog  *course.Catalog
	Progress *progress.Manager
	Engine   *assessment.Engine
	Issuer   *certificate.Issuer
	Certs    *certificate.Cache

	closers []func() error
}

// New loads configuration, opens the local database and connects the
// configured remote collaborators.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	return NewWithConfig(ctx, cfg, opts.Logger)
}

// NewWithConfig is New for an already loaded configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log}
	if a.Logger == nil {
		l, err := logger.New(cfg)
		if err != nil {
			return nil, err
		}
		a.Logger = l
		a.closers = append(a.closers, func() error { _ = l.Sync(); return nil })
	}

	if err := a.openStore(); err != nil {
		a.Close()
		return nil, err
	}

	a.Catalog = course.Default()
	a.Events = a.Store.EventRepo()
	kv := a.Store.KVRepo()

	a.Progress = progress.Open(ctx, kv,
		progress.WithLogger(a.Logger.Named("progress")),
		progress.WithActivityLog(a.Events))
	a.Engine = assessment.NewEngine(a.Progress,
		assessment.WithLogger(a.Logger.Named("assessment")))

	docs, err := a.docStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	uploader, err := a.uploader(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Certs = certificate.NewCache(kv)
	a.Issuer = certificate.NewIssuer(a.Progress, docs, certificate.SVGRenderer{}, uploader,
		certificate.Profile{ID: cfg.Profile.ID, Name: cfg.Profile.Name},
		certificate.WithLogger(a.Logger.Named("certificate")),
		certificate.WithCache(a.Certs),
		certificate.WithActivityLog(a.Events))

	return a, nil
}

func (a *App) openStore() error {
	path := a.Config.DBPath
	if path == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve DB path: %w", err)
		}
		path = p
	} else if err := store.EnsureDir(path); err != nil {
		return fmt.Errorf("create DB dir: %w", err)
	}
	a.Config.DBPath = path

	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.Store = st
	a.closers = append(a.closers, st.Close)
	return nil
}

func (a *App) docStore(ctx context.Context) (certificate.DocStore, error) {
	switch a.Config.Remote.Driver {
	case "postgres":
		pool, err := remote.NewPool(ctx, a.Config.Remote.DatabaseURL, remote.PoolConfig{
			MaxConns:        int32(a.Config.Remote.MaxConnections),
			MaxConnLifetime: a.Config.Remote.MaxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("connect remote store: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })

		docs := remote.NewPostgresDocStore(pool)
		if err := docs.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return docs, nil
	case "memory":
		a.Logger.Warn("using in-memory certificate store; records are lost on exit")
		return remote.NewMemoryDocStore(), nil
	default:
		return remote.NewSQLiteDocStore(a.Store.DocRepo()), nil
	}
}

func (a *App) uploader(ctx context.Context) (certificate.Uploader, error) {
	s := a.Config.Storage
	if s.Type == "minio" {
		u, err := remote.NewMinioUploader(remote.MinioConfig{
			Endpoint:      s.MinioEndpoint,
			AccessKey:     s.MinioAccessKey,
			SecretKey:     s.MinioSecretKey,
			Bucket:        s.MinioBucket,
			UseSSL:        s.MinioUseSSL,
			PublicBaseURL: s.PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		if err := u.EnsureBucket(ctx); err != nil {
			a.Logger.Warn("bucket check failed; uploads may fail", zap.Error(err))
		}
		return u, nil
	}

	dir := s.LocalPath
	if dir == "" {
		dir = filepath.Join(filepath.Dir(a.Config.DBPath), "certificates")
	}
	return remote.LocalUploader{Dir: dir}, nil
}

// SyncCatalog makes sure every catalog course has a progress entry with
// the current lesson count.
func (a *App) SyncCatalog(ctx context.Context) error {
	for _, c := range a.Catalog.All() {
		if _, err := a.Progress.EnsureCourseEntry(ctx, c.ID, c.Name, c.LessonCount()); err != nil {
			return err
		}
	}
	return nil
}

// Course looks up a catalog course and ensures its progress entry.
func (a *App) Course(ctx context.Context, id string) (course.Course, error) {
	c, ok := a.Catalog.Get(id)
	if !ok {
		return course.Course{}, fmt.Errorf("unknown course %q (available: %v)", id, a.Catalog.IDs())
	}
	if _, err := a.Progress.EnsureCourseEntry(ctx, c.ID, c.Name, c.LessonCount()); err != nil {
		return course.Course{}, err
	}
	return c, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
