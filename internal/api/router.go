package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/config"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/detection"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/live"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/overlay"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/service"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/status"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/ws"
)

type Dependencies struct {
	Detection   *detection.Service
	Live        *live.Controller
	Faces       *service.FaceService
	Status      *status.Reporter
	View        *service.View
	Hub         *ws.Hub
	ImageCanvas *overlay.Canvas
	VideoCanvas *overlay.Canvas
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	cfg         *config.Config
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
	cancelHub   context.CancelFunc
}

func NewRouter(cfg *config.Config, logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Facewatch API",
		// Leave room for the multipart envelope around the image.
		BodyLimit: cfg.MaxImageSize + 1024*1024,
	})

	return &Router{
		app:    app,
		logger: logger,
		cfg:    cfg,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Swagger documentation
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	// Health and metrics
	healthHandler := handler.NewHealthHandler(r.deps.Detection)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)
	r.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// WebSocket hub
	hubCtx, hubCancel := context.WithCancel(context.Background())
	r.cancelHub = hubCancel
	go r.deps.Hub.Run(hubCtx)

	// Uploads and stream starts restart the camera or run inference
	r.rateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Max:    r.cfg.RateLimitMax,
		Window: r.cfg.RateLimitWindow,
	})
	limited := r.rateLimiter.Handler()

	v1 := r.app.Group("/v1")

	// Status
	statusHandler := handler.NewStatusHandler(r.deps.Status, r.deps.Detection, r.deps.Live, r.deps.View)
	v1.Get("/status", statusHandler.Get)

	// Static image mode
	imageHandler := handler.NewImageHandler(r.deps.Faces, r.deps.ImageCanvas, r.cfg.MaxImageSize, r.logger)
	v1.Post("/images", limited, imageHandler.Detect)
	v1.Get("/images/overlay", imageHandler.Overlay)

	// Webcam mode
	streamHandler := handler.NewStreamHandler(r.deps.Live, r.deps.VideoCanvas, r.logger)
	v1.Post("/stream/start", limited, streamHandler.Start)
	v1.Post("/stream/stop", streamHandler.Stop)
	v1.Get("/stream", streamHandler.Get)
	v1.Get("/stream/overlay", streamHandler.Overlay)

	// Events
	v1.Get("/ws", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub, func() ws.Event {
		return ws.Event{
			Type:      ws.EventStatusChanged,
			Data:      statusHandler.Build(),
			Timestamp: time.Now().UTC(),
		}
	}))
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

// Shutdown stops the webcam session before closing the server so the camera
// is released on exit.
func (r *Router) Shutdown() error {
	r.deps.Live.Stop()

	if r.cancelHub != nil {
		r.cancelHub()
	}

	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
