package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/api"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/audit"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/config"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/detection"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/face"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/live"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/media"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/overlay"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/service"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/status"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/webhook"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting Facewatch API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("detector", cfg.DetectorProvider),
		slog.String("camera", cfg.CameraDriver),
	)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Setup router
	router := api.NewRouter(cfg, logger, deps)
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	done := make(chan error, 1)
	go func() { done <- router.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Error("shutdown timed out")
	}

	logger.Info("server stopped")
	return nil
}

// buildDependencies wires the detector, camera, canvases and services, and
// starts loading the models in the background.
func buildDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*api.Dependencies, error) {
	auditLogger := audit.NewSlogLogger(logger)

	hub := ws.NewHub(logger)
	reporter := status.NewReporter(logger)
	reporter.Subscribe(func(s status.Snapshot) {
		hub.Publish(ws.EventStatusChanged, s)
	})

	detector, err := face.NewDetector(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create detector: %w", err)
	}
	camera, err := face.NewCamera(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create camera: %w", err)
	}

	detectionService := detection.NewService(detector, reporter, logger,
		detection.WithMinConfidence(cfg.MinConfidence),
		detection.WithAuditLogger(auditLogger),
	)

	overlayOpts := overlay.DefaultOptions()
	overlayOpts.DrawLandmarks = cfg.DrawLandmarks
	imageCanvas := overlay.New("image", overlayOpts)
	videoCanvas := overlay.New("video", overlayOpts)

	view := service.NewView()

	publishers := live.Publishers{hub}
	if cfg.WebhookURL != "" {
		notifier := webhook.NewWorker(
			&webhook.Webhook{URL: cfg.WebhookURL, Secret: cfg.WebhookSecret, Events: cfg.WebhookEvents},
			webhook.NewService(nil),
			cfg.WebhookMaxAttempts,
			logger,
		)
		go notifier.Run(ctx)
		publishers = append(publishers, notifier)
	}

	liveController := live.NewController(camera, detectionService, videoCanvas, reporter,
		live.Config{
			Constraints: media.Constraints{
				Width:  cfg.CameraWidth,
				Height: cfg.CameraHeight,
				Facing: media.Facing(cfg.CameraFacing),
			},
			TickInterval:           cfg.TickInterval(),
			MetadataTimeout:        cfg.CameraMetadataTimeout,
			MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
		},
		logger,
		live.WithModeSwitcher(view),
		live.WithPublisher(publishers),
		live.WithAuditLogger(auditLogger),
	)

	faceService := service.NewFaceService(detectionService, imageCanvas, liveController, reporter, view, logger).
		WithPublisher(publishers).
		WithAuditLogger(auditLogger)

	detectionService.LoadModels(ctx)

	return &api.Dependencies{
		Detection:   detectionService,
		Live:        liveController,
		Faces:       faceService,
		Status:      reporter,
		View:        view,
		Hub:         hub,
		ImageCanvas: imageCanvas,
		VideoCanvas: videoCanvas,
	}, nil
}
