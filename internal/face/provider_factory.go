package face

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/audit"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/config"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/media"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/media/fake"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/provider"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/provider/pigo"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/provider/rekognition"
)

// ProviderType defines supported face detection backends
type ProviderType string

const (
	// ProviderTypePigo runs the pigo cascade in process (default)
	ProviderTypePigo ProviderType = "pigo"
	// ProviderTypeDeepFace calls a DeepFace HTTP service
	ProviderTypeDeepFace ProviderType = "deepface"
	// ProviderTypeRekognition calls AWS Rekognition
	ProviderTypeRekognition ProviderType = "rekognition"
	// ProviderTypeMock returns a fixed face, for demos without models
	ProviderTypeMock ProviderType = "mock"
)

// CameraDriver defines supported capture backends
type CameraDriver string

const (
	CameraDriverWebcam CameraDriver = "webcam"
	CameraDriverFake   CameraDriver = "fake"
)

// NewDetector creates a FaceDetector based on configuration. Models are not
// loaded here; the detection service calls LoadModels asynchronously.
//
// Environment variables:
//   - DETECTOR_PROVIDER: "pigo", "deepface", "rekognition" or "mock" (default: "pigo")
//   - MODEL_BASE_URL: origin serving the pigo cascades
//   - DEEPFACE_URL: DeepFace API URL (default: "http://localhost:5005")
//   - AWS_REGION: AWS region for Rekognition (default: "us-east-1")
func NewDetector(cfg *config.Config, logger *slog.Logger) (provider.FaceDetector, error) {
	switch ProviderType(cfg.DetectorProvider) {
	case ProviderTypePigo, "":
		pigoConfig := pigo.DefaultConfig()
		if cfg.ModelBaseURL != "" {
			pigoConfig.BaseURL = cfg.ModelBaseURL
		}
		if cfg.ModelFetchTimeout > 0 {
			pigoConfig.Timeout = cfg.ModelFetchTimeout
		}
		pigoConfig.Landmarks = cfg.DrawLandmarks
		return pigo.NewProvider(pigoConfig, logger), nil

	case ProviderTypeDeepFace:
		deepfaceConfig := deepface.DefaultConfig()
		if cfg.DeepFaceURL != "" {
			deepfaceConfig.BaseURL = cfg.DeepFaceURL
		}
		// A live frame is worthless after a long backoff, one retry is enough
		deepfaceConfig.RetryCount = 1
		return deepface.NewProvider(deepfaceConfig), nil

	case ProviderTypeRekognition:
		rekogConfig := rekognition.DefaultConfig()
		if cfg.AWSRegion != "" {
			rekogConfig.Region = cfg.AWSRegion
		}
		rekogConfig.Landmarks = cfg.DrawLandmarks
		return rekognition.NewProvider(rekogConfig,
			rekognition.WithAuditLogger(audit.NewSlogLogger(logger)),
		), nil

	case ProviderTypeMock:
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s, %s, %s)",
			cfg.DetectorProvider, ProviderTypePigo, ProviderTypeDeepFace, ProviderTypeRekognition, ProviderTypeMock)
	}
}

// NewCamera creates the capture backend named by CAMERA_DRIVER
func NewCamera(cfg *config.Config, logger *slog.Logger) (media.Camera, error) {
	switch CameraDriver(cfg.CameraDriver) {
	case CameraDriverWebcam, "":
		return media.NewWebcam(logger), nil
	case CameraDriverFake:
		cam := fake.New(time.Second/30, logger)
		cam.Width, cam.Height = cfg.CameraWidth, cfg.CameraHeight
		return cam, nil
	default:
		return nil, fmt.Errorf("unknown camera driver: %s (supported: %s, %s)",
			cfg.CameraDriver, CameraDriverWebcam, CameraDriverFake)
	}
}
