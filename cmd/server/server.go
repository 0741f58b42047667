package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/janhq/image-upload/internal/config"
	"github.com/janhq/image-upload/internal/domain/tagging"
	"github.com/janhq/image-upload/internal/infrastructure/observability"
	"github.com/janhq/image-upload/internal/interfaces/httpserver"
)

// @title Image Upload API
// @version 1.0
// @description Presigned image uploads with duplicate detection and tagging
// @BasePath /
type Application struct {
	httpServer *httpserver.HttpServer
	service    *tagging.Service
	cfg        *config.Config
	log        zerolog.Logger
}

func NewApplication(cfg *config.Config, httpServer *httpserver.HttpServer, service *tagging.Service, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		service:    service,
		cfg:        cfg,
		log:        log,
	}
}

// Start serves until ctx is cancelled, then drains background enrichment.
func (a *Application) Start(ctx context.Context) error {
	runErr := a.httpServer.Run(ctx)

	drainCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.service.Close(drainCtx); err != nil {
		a.log.Warn().Err(err).Msg("enrichment jobs did not finish before shutdown")
	}
	return runErr
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := provideLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, observability.Config{
		Enabled:      cfg.EnableTracing,
		OTLPEndpoint: cfg.OTLPEndpoint,
		ServiceName:  cfg.ServiceName,
		Environment:  cfg.Environment,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	storageClient, err := provideStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize storage")
	}

	duplicateLedger, closeLedger, err := provideLedger(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize duplicate ledger")
	}
	defer closeLedger()

	classifier, err := provideClassifier(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize classifier")
	}

	locker, closeLocker, err := provideLocker(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize enrichment locker")
	}
	defer closeLocker()

	tagService := tagging.NewService(cfg, duplicateLedger, storageClient, classifier, locker, log)
	httpServer := httpserver.New(cfg, log, tagService)
	app := NewApplication(cfg, httpServer, tagService, log)

	if err := app.Start(ctx); err != nil {
		log.Error().Err(err).Msg("application stopped with error")
		return
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
