package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Detector
	DetectorProvider  string        `envconfig:"DETECTOR_PROVIDER" default:"pigo"`
	ModelBaseURL      string        `envconfig:"MODEL_BASE_URL" default:"https://raw.githubusercontent.com/esimov/pigo/master/cascade"`
	ModelFetchTimeout time.Duration `envconfig:"MODEL_FETCH_TIMEOUT" default:"30s"`
	MinConfidence     float64       `envconfig:"MIN_CONFIDENCE" default:"0.5"`
	DeepFaceURL       string        `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	AWSRegion         string        `envconfig:"AWS_REGION" default:"us-east-1"`

	// Camera
	CameraDriver          string        `envconfig:"CAMERA_DRIVER" default:"webcam"`
	CameraWidth           int           `envconfig:"CAMERA_WIDTH" default:"640"`
	CameraHeight          int           `envconfig:"CAMERA_HEIGHT" default:"480"`
	CameraFacing          string        `envconfig:"CAMERA_FACING" default:"user"`
	CameraMetadataTimeout time.Duration `envconfig:"CAMERA_METADATA_TIMEOUT" default:"10s"`

	// Live loop
	RefreshRate            int `envconfig:"LIVE_REFRESH_RATE" default:"60"`
	MaxConsecutiveFailures int `envconfig:"LIVE_MAX_CONSECUTIVE_FAILURES" default:"30"`

	// Overlay
	DrawLandmarks bool `envconfig:"DRAW_LANDMARKS" default:"false"`

	// Uploads
	MaxImageSize int `envconfig:"MAX_IMAGE_SIZE" default:"10485760"`

	// Rate limiting for uploads and stream starts, per client IP
	RateLimitMax    int           `envconfig:"RATE_LIMIT_MAX" default:"60"`
	RateLimitWindow time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// Outbound webhook; disabled when WebhookURL is empty
	WebhookURL         string   `envconfig:"WEBHOOK_URL"`
	WebhookSecret      string   `envconfig:"WEBHOOK_SECRET"`
	WebhookEvents      []string `envconfig:"WEBHOOK_EVENTS" default:"stream.started,stream.stopped,detection.image"`
	WebhookMaxAttempts int      `envconfig:"WEBHOOK_MAX_ATTEMPTS" default:"5"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects values the live loop and detector cannot work with.
func (c *Config) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("MIN_CONFIDENCE must be between 0 and 1, got %v", c.MinConfidence)
	}
	if c.RefreshRate <= 0 {
		return fmt.Errorf("LIVE_REFRESH_RATE must be positive, got %d", c.RefreshRate)
	}
	if c.CameraWidth <= 0 || c.CameraHeight <= 0 {
		return fmt.Errorf("camera resolution must be positive, got %dx%d", c.CameraWidth, c.CameraHeight)
	}
	if c.WebhookURL != "" && c.WebhookSecret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required when WEBHOOK_URL is set")
	}
	return nil
}

// TickInterval converts the refresh rate into the live loop period.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.RefreshRate)
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
