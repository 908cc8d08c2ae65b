package rekognition

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/audit"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/provider"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	// minImageSize is the minimum image size for valid processing
	minImageSize = 100
)

var landmarkNames = map[types.LandmarkType]string{
	types.LandmarkTypeEyeLeft:    "left_eye",
	types.LandmarkTypeEyeRight:   "right_eye",
	types.LandmarkTypeNose:       "nose",
	types.LandmarkTypeMouthLeft:  "mouth_left",
	types.LandmarkTypeMouthRight: "mouth_right",
}

// Provider implements provider.FaceDetector using AWS Rekognition.
// Geometry comes back as ratios of the image, so results use a 1x1 space.
type Provider struct {
	config      Config
	auditLogger audit.Logger
	newClient   func(ctx context.Context, cfg Config) (RekognitionAPI, error)

	mu  sync.RWMutex
	api RekognitionAPI
}

// ProviderOption defines optional configuration for Provider
type ProviderOption func(*Provider)

// WithAuditLogger sets the audit logger for the provider
func WithAuditLogger(logger audit.Logger) ProviderOption {
	return func(p *Provider) {
		p.auditLogger = logger
	}
}

// WithAPI replaces the AWS client, used by tests
func WithAPI(api RekognitionAPI) ProviderOption {
	return func(p *Provider) {
		p.newClient = func(context.Context, Config) (RekognitionAPI, error) {
			return api, nil
		}
	}
}

var _ provider.FaceDetector = (*Provider)(nil)

// NewProvider creates a Rekognition provider. The AWS client is built by LoadModels.
func NewProvider(cfg Config, opts ...ProviderOption) *Provider {
	p := &Provider{
		config:    cfg,
		newClient: NewClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string {
	return "rekognition"
}

// LoadModels resolves credentials and builds the client. There is nothing to
// download, the model lives on the AWS side.
func (p *Provider) LoadModels(ctx context.Context) error {
	api, err := p.newClient(ctx, p.config)
	if err != nil {
		return fmt.Errorf("create rekognition client: %w", err)
	}

	p.mu.Lock()
	p.api = api
	p.mu.Unlock()
	return nil
}

// logAudit logs an audit event if an audit logger is configured
// Audit failure does not affect the operation (fire-and-forget)
func (p *Provider) logAudit(ctx context.Context, success bool, err error, metadata map[string]string) {
	if p.auditLogger == nil {
		return
	}

	event := audit.Event{
		EventType: audit.EventFaceDetected,
		Provider:  p.Name(),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}

	_ = p.auditLogger.Log(ctx, event)
}

// validateImage checks if image data is valid for Rekognition processing
func validateImage(image []byte) error {
	if len(image) == 0 {
		return ErrInvalidImage
	}
	if len(image) < minImageSize {
		return fmt.Errorf("%w: image too small (%d bytes, minimum %d)", ErrInvalidImage, len(image), minImageSize)
	}
	if len(image) > maxImageSize {
		return fmt.Errorf("%w: image too large (%d bytes, maximum %d)", ErrInvalidImage, len(image), maxImageSize)
	}
	return nil
}

// DetectFaces sends the encoded source to the DetectFaces API.
// Returns an empty result if no faces are detected (not an error).
func (p *Provider) DetectFaces(ctx context.Context, src *domain.VisualSource) (*provider.Result, error) {
	p.mu.RLock()
	api := p.api
	p.mu.RUnlock()

	if api == nil {
		return nil, ErrNotLoaded
	}

	image, err := src.Encoded()
	if err != nil {
		return nil, fmt.Errorf("encode source: %w", err)
	}

	meta := map[string]string{
		"image_size": strconv.Itoa(len(image)),
		"source":     string(src.Kind),
	}

	if err := validateImage(image); err != nil {
		p.logAudit(ctx, false, err, meta)
		return nil, err
	}

	attrs := []types.Attribute{types.AttributeDefault}
	output, err := api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: image},
		Attributes: attrs,
	})
	if err != nil {
		err = parseAPIError(err)
		p.logAudit(ctx, false, err, meta)
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	faces := make([]provider.DetectedFace, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		if detail.BoundingBox == nil {
			continue
		}
		face := provider.DetectedFace{
			BoundingBox: provider.BoundingBox{
				X:      float64(aws.ToFloat32(detail.BoundingBox.Left)),
				Y:      float64(aws.ToFloat32(detail.BoundingBox.Top)),
				Width:  float64(aws.ToFloat32(detail.BoundingBox.Width)),
				Height: float64(aws.ToFloat32(detail.BoundingBox.Height)),
			},
			// Rekognition reports confidence as a percentage
			Confidence: float64(aws.ToFloat32(detail.Confidence)) / 100,
		}
		if p.config.Landmarks {
			face.Landmarks = convertLandmarks(detail.Landmarks)
		}
		faces = append(faces, face)
	}

	meta["faces_count"] = strconv.Itoa(len(faces))
	p.logAudit(ctx, true, nil, meta)

	return &provider.Result{
		Faces:  faces,
		Width:  1,
		Height: 1,
	}, nil
}

func convertLandmarks(in []types.Landmark) []provider.Landmark {
	var out []provider.Landmark
	for _, lm := range in {
		name, ok := landmarkNames[lm.Type]
		if !ok || lm.X == nil || lm.Y == nil {
			continue
		}
		out = append(out, provider.Landmark{
			Type: name,
			X:    float64(*lm.X),
			Y:    float64(*lm.Y),
		})
	}
	return out
}
