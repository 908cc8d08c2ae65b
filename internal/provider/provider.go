package provider

import (
	"context"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
)

// FaceDetector define a interface para backends externos de detecção facial
type FaceDetector interface {
	// Name identifica o backend em logs e métricas
	Name() string

	// LoadModels busca e prepara os artefatos do modelo
	// Chamado uma única vez por processo; falha é permanente
	LoadModels(ctx context.Context) error

	// DetectFaces detecta faces na fonte e retorna as caixas no espaço de
	// coordenadas interno do backend (veja Result.Width/Height)
	DetectFaces(ctx context.Context, src *domain.VisualSource) (*Result, error)
}

// Result holds detections relative to the coordinate space the backend ran in.
// Ratio-based backends report a 1x1 space.
type Result struct {
	Faces  []DetectedFace `json:"faces"`
	Width  float64        `json:"width"`
	Height float64        `json:"height"`
}

// DetectedFace represents a detected face in the backend coordinate space
type DetectedFace struct {
	BoundingBox BoundingBox `json:"bounding_box"`
	Confidence  float64     `json:"confidence"`
	Landmarks   []Landmark  `json:"landmarks,omitempty"`
}

// BoundingBox represents the face area in the image
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Landmark is a named facial point such as an eye center
type Landmark struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}
