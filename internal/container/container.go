package container

import (
	"context"
	"fmt"
	"log"
	"time"

	"failureforward/adapters/memory"
	"failureforward/adapters/sqlstore"
	"failureforward/internal"
	"failureforward/internal/config"
	"failureforward/internal/importer"
	"failureforward/internal/mapping"
	"failureforward/internal/uploads"
	"failureforward/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure; DB is nil with STORAGE=memory
	DB *sqlx.DB

	SampleRepo ports.SampleRepository
	Uploads    *uploads.LocalFileStorage
	Importer   *importer.Service
}

// New creates the container and connects to storage
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config: cfg,
		Logger: internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel)),
	}

	if err := c.initRepositories(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	c.Uploads = uploads.NewLocalFileStorage(&uploads.StorageConfig{
		BasePath: cfg.Upload.Dir,
		MaxBytes: cfg.Upload.MaxBytes,
	})
	c.Importer = importer.NewService(c.SampleRepo, c.Uploads, mapping.NewMatcher(cfg.Matching.MinConfidence), c.Logger)

	return c, nil
}

func (c *Container) initRepositories(ctx context.Context) error {
	if c.Config.Database.Storage == config.StorageMemory {
		log.Println("[Container] Using in-memory storage; samples are lost on exit")
		c.SampleRepo = memory.NewSampleRepository()
		return nil
	}

	db, err := sqlstore.Open(ctx, c.Config.Database.Driver, c.Config.Database.DSN)
	if err != nil {
		return err
	}
	c.DB = db
	c.SampleRepo = sqlstore.NewSampleRepository(db)
	return nil
}

// PurgeUploads removes staged uploads older than the configured TTL
func (c *Container) PurgeUploads(ctx context.Context) (int, error) {
	return c.Uploads.Purge(ctx, time.Now().Add(-c.Config.Upload.TTL))
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	log.Println("[Container] Shutting down")
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
