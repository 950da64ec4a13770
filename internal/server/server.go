// Package server runs the HTTP front end and the upload purge loop for the
// lifetime of a context.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"failureforward/internal/api"
	"failureforward/internal/container"
	"failureforward/ui"

	"golang.org/x/sync/errgroup"
)

// Run serves the UI with the API mounted under /api until ctx is done,
// then shuts down gracefully.
func Run(ctx context.Context, c *container.Container) error {
	apiHandler := api.NewHandler(c.Importer, c.SampleRepo, c.Config.Upload.MaxBytes)
	server, err := ui.NewServer(c.Importer, c.SampleRepo, apiHandler.Router(), c.Config.Upload.MaxBytes)
	if err != nil {
		return err
	}
	return Serve(ctx, c, server.Handler())
}

// Serve runs handler on the configured port next to the upload purge loop.
// When ctx is done the server drains within the shutdown timeout and
// Serve returns.
func Serve(ctx context.Context, c *container.Container, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              ":" + c.Config.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("🚀 Starting Failure Forward on http://localhost:%s", c.Config.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.Config.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return PurgeLoop(gctx, c, purgeInterval(c.Config.Upload.TTL))
	})

	return g.Wait()
}

func purgeInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}

// PurgeLoop removes abandoned uploads immediately and then every interval
func PurgeLoop(ctx context.Context, c *container.Container, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if n, err := c.PurgeUploads(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("[Uploads] purge failed: %v", err)
		} else if n > 0 {
			log.Printf("[Uploads] purged %d stale uploads", n)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
