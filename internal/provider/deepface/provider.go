package deepface

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/provider"
)

const (
	// minFaceArea is the minimum face area (in pixels²) for reliable detection
	minFaceArea = 2500 // 50x50 pixels
	// maxFaceArea is used for confidence scaling
	maxFaceArea = 250000 // 500x500 pixels
)

// Provider implements provider.FaceDetector using DeepFace API
type Provider struct {
	client *Client
	loaded atomic.Bool
}

// NewProvider creates a new DeepFace provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client: NewClient(config),
	}
}

func (p *Provider) Name() string {
	return "deepface"
}

// LoadModels checks that the DeepFace service answers
func (p *Provider) LoadModels(ctx context.Context) error {
	if err := p.client.Ping(ctx); err != nil {
		return fmt.Errorf("load models: %w", err)
	}
	p.loaded.Store(true)
	return nil
}

// DetectFaces detects faces in the image. Boxes are in source pixels.
func (p *Provider) DetectFaces(ctx context.Context, src *domain.VisualSource) (*provider.Result, error) {
	if !p.loaded.Load() {
		return nil, ErrNotLoaded
	}

	image, err := src.Encoded()
	if err != nil {
		return nil, fmt.Errorf("encode source: %w", err)
	}

	resp, err := p.client.Represent(ctx, base64.StdEncoding.EncodeToString(image))
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	faces := make([]provider.DetectedFace, 0, len(resp.Results))
	for _, result := range resp.Results {
		area := result.FacialArea
		if area.W <= 0 || area.H <= 0 {
			continue
		}

		faces = append(faces, provider.DetectedFace{
			BoundingBox: provider.BoundingBox{
				X:      float64(area.X),
				Y:      float64(area.Y),
				Width:  float64(area.W),
				Height: float64(area.H),
			},
			Confidence: faceConfidence(result),
			Landmarks:  eyeLandmarks(area),
		})
	}

	return &provider.Result{
		Faces:  faces,
		Width:  float64(src.Width),
		Height: float64(src.Height),
	}, nil
}

// faceConfidence prefers the detector score and falls back to an estimate
// from the face size for backends that report none.
func faceConfidence(result RepresentResult) float64 {
	if result.FaceConfidence != nil {
		return *result.FaceConfidence
	}
	return calculateConfidence(float64(result.FacialArea.W * result.FacialArea.H))
}

// calculateConfidence estimates confidence based on face area
// Larger faces are more likely to be accurately detected
func calculateConfidence(faceArea float64) float64 {
	if faceArea < minFaceArea {
		return 0.5
	}
	// Scale from 0.7 to 0.99 based on face area
	normalized := math.Min(1.0, (faceArea-minFaceArea)/(maxFaceArea-minFaceArea))
	return 0.7 + (normalized * 0.29)
}

func eyeLandmarks(area FacialArea) []provider.Landmark {
	var out []provider.Landmark
	if len(area.LeftEye) == 2 {
		out = append(out, provider.Landmark{Type: "left_eye", X: float64(area.LeftEye[0]), Y: float64(area.LeftEye[1])})
	}
	if len(area.RightEye) == 2 {
		out = append(out, provider.Landmark{Type: "right_eye", X: float64(area.RightEye[0]), Y: float64(area.RightEye[1])})
	}
	return out
}

var _ provider.FaceDetector = (*Provider)(nil)
