package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
)

// FaceBoxData is one detected face in source-native pixels
type FaceBoxData struct {
	X          float64     `json:"x" example:"40"`
	Y          float64     `json:"y" example:"50"`
	Width      float64     `json:"width" example:"120"`
	Height     float64     `json:"height" example:"140"`
	Confidence float64     `json:"confidence" example:"0.92"`
	Landmarks  []PointData `json:"landmarks,omitempty"`
}

// PointData is a landmark point
type PointData struct {
	X float64 `json:"x" example:"80"`
	Y float64 `json:"y" example:"95"`
}

// ImageDetectionResponse represents the result of a static image detection
type ImageDetectionResponse struct {
	Faces     []FaceBoxData `json:"faces"`
	Count     int           `json:"count" example:"2"`
	Width     int           `json:"width" example:"500"`
	Height    int           `json:"height" example:"400"`
	Format    string        `json:"format" example:"png"`
	Status    string        `json:"status" example:"2 face(s) detected!"`
	LatencyMs int64         `json:"latency_ms" example:"38"`
}

// StreamResponse represents the live session state
type StreamResponse struct {
	State     string `json:"state" example:"running"`
	SessionID string `json:"session_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
	Width     int    `json:"width,omitempty" example:"640"`
	Height    int    `json:"height,omitempty" example:"480"`
	Ticks     uint64 `json:"ticks" example:"1200"`
	Frames    uint64 `json:"frames" example:"310"`
	StartedAt string `json:"started_at,omitempty" example:"2026-01-01T00:00:00Z"`
}

// StatusResponse represents the status line plus model and live state
type StatusResponse struct {
	Message    string         `json:"message" example:"Webcam started. Detecting faces..."`
	UpdatedAt  string         `json:"updated_at,omitempty" example:"2026-01-01T00:00:00Z"`
	ModelState string         `json:"model_state" example:"ready"`
	ModelError string         `json:"model_error,omitempty" example:""`
	ViewMode   string         `json:"view_mode" example:"video"`
	Live       StreamResponse `json:"live"`
}

// HealthResponse represents health and readiness checks
type HealthResponse struct {
	Status     string `json:"status" example:"ready"`
	Version    string `json:"version,omitempty" example:"0.1.0"`
	ModelState string `json:"model_state,omitempty" example:"ready"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Facewatch API",
		Version:     "v1.0.0",
		Description: "Face detection over uploaded images or a live webcam, with transparent overlay canvases and a status line",
		Host:        "localhost:3000",
		Path:        "/",
	})

	endpoints := []*endpoint.EndPoint{
		// GET /health
		endpoint.New(
			endpoint.GET,
			"/health",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Liveness probe"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "200", "Process is up"),
			}),
		),

		// GET /ready
		endpoint.New(
			endpoint.GET,
			"/ready",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Readiness probe"),
			endpoint.WithDescription("Ready once the detection models are loaded"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "200", "Models ready"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(HealthResponse{Status: "not_ready", ModelState: "loading"}, "503", "Models loading or failed"),
			}),
		),

		// GET /v1/status
		endpoint.New(
			endpoint.GET,
			"/v1/status",
			endpoint.WithTags("Status"),
			endpoint.WithSummary("Current status line"),
			endpoint.WithDescription("Returns the single status line together with the model state, the visible view and the live session"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StatusResponse{}, "200", "Status"),
			}),
		),

		// POST /v1/images
		endpoint.New(
			endpoint.POST,
			"/v1/images",
			endpoint.WithTags("Images"),
			endpoint.WithSummary("Detect faces in an image"),
			endpoint.WithDescription("Stops any webcam session, decodes the uploaded image (field \"image\"), detects faces with a 0.5 confidence threshold and draws them on the image overlay sized to the image's natural dimensions."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ImageDetectionResponse{}, "200", "Detection completed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "MODEL_NOT_READY", Message: "Models still loading"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "DECODE_ERROR", Message: "Invalid image format or corrupted file"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Rate limit exceeded, please try again later"}, "429", "Too Many Requests"),
				response.New(ErrorResponse{Code: "TRANSIENT_DETECTION_ERROR", Message: "Face detection failed"}, "502", "Bad Gateway"),
			}),
		),

		// GET /v1/images/overlay
		endpoint.New(
			endpoint.GET,
			"/v1/images/overlay",
			endpoint.WithTags("Images"),
			endpoint.WithSummary("Image overlay"),
			endpoint.WithDescription("Transparent PNG with the boxes of the last uploaded image"),
			endpoint.WithProduce([]mime.MIME{mime.MIME("image/png")}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "HTTP_ERROR", Message: "overlay has not been drawn yet"}, "404", "Not Found"),
			}),
		),

		// POST /v1/stream/start
		endpoint.New(
			endpoint.POST,
			"/v1/stream/start",
			endpoint.WithTags("Stream"),
			endpoint.WithSummary("Start the webcam"),
			endpoint.WithDescription("Tears down any running session, opens the camera (ideal 640x480, front-facing), waits for the negotiated size and starts the detection loop"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StreamResponse{}, "200", "Session running"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "PERMISSION_DENIED", Message: "Camera access was denied"}, "403", "Forbidden"),
				response.New(ErrorResponse{Code: "MODEL_NOT_READY", Message: "Models still loading"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Rate limit exceeded, please try again later"}, "429", "Too Many Requests"),
				response.New(ErrorResponse{Code: "DEVICE_UNAVAILABLE", Message: "No camera device available"}, "503", "Service Unavailable"),
			}),
		),

		// POST /v1/stream/stop
		endpoint.New(
			endpoint.POST,
			"/v1/stream/stop",
			endpoint.WithTags("Stream"),
			endpoint.WithSummary("Stop the webcam"),
			endpoint.WithDescription("Stops the session, releases the camera and clears the overlay. Stopping while idle is a no-op."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StreamResponse{State: "idle"}, "200", "Session stopped"),
			}),
		),

		// GET /v1/stream
		endpoint.New(
			endpoint.GET,
			"/v1/stream",
			endpoint.WithTags("Stream"),
			endpoint.WithSummary("Live session state"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StreamResponse{}, "200", "Session state"),
			}),
		),

		// GET /v1/stream/overlay
		endpoint.New(
			endpoint.GET,
			"/v1/stream/overlay",
			endpoint.WithTags("Stream"),
			endpoint.WithSummary("Video overlay"),
			endpoint.WithDescription("Transparent PNG with the boxes of the latest rendered frame"),
			endpoint.WithProduce([]mime.MIME{mime.MIME("image/png")}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "HTTP_ERROR", Message: "overlay has not been drawn yet"}, "404", "Not Found"),
			}),
		),

		// GET /v1/ws
		endpoint.New(
			endpoint.GET,
			"/v1/ws",
			endpoint.WithTags("Events"),
			endpoint.WithSummary("Event stream"),
			endpoint.WithDescription("WebSocket delivering status.changed, stream.started, stream.stopped, detection.frame and detection.image events"),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "HTTP_ERROR", Message: "Upgrade Required"}, "426", "Upgrade Required"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
