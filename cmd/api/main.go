package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"failureforward/internal/api"
	"failureforward/internal/config"
	"failureforward/internal/container"
	"failureforward/internal/server"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := run(appConfig); err != nil {
		log.Fatalf("API server failed: %v", err)
	}
}

// run serves the JSON API alone until SIGINT or SIGTERM. The container is
// shut down before run returns, whatever the outcome.
func run(appConfig *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appContainer, err := container.New(ctx, appConfig)
	if err != nil {
		return err
	}
	defer appContainer.Shutdown(context.Background())

	handler := api.NewHandler(appContainer.Importer, appContainer.SampleRepo, appConfig.Upload.MaxBytes)
	log.Printf("Starting API server on :%s", appConfig.Server.Port)
	return server.Serve(ctx, appContainer, handler.Router())
}
