package domain

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
	"time"
)

// SourceKind identifica a origem dos pixels
type SourceKind string

const (
	SourceStaticImage SourceKind = "static_image"
	SourceVideoFrame  SourceKind = "video_frame"
)

// Point representa um landmark em pixels da fonte original
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FaceBox representa uma face detectada, já no espaço de coordenadas nativo da fonte
type FaceBox struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
	Landmarks  []Point `json:"landmarks,omitempty"`
}

// Rect returns the box as an integer rectangle.
func (b FaceBox) Rect() image.Rectangle {
	return image.Rect(int(b.X), int(b.Y), int(b.X+b.Width), int(b.Y+b.Height))
}

// VisualSource is read-only pixel data plus its native dimensions.
type VisualSource struct {
	Kind       SourceKind
	Image      image.Image
	Width      int
	Height     int
	CapturedAt time.Time

	encodeOnce sync.Once
	encoded    []byte
	encodeErr  error
}

// NewVisualSource wraps a decoded image. raw may be nil for camera frames.
func NewVisualSource(kind SourceKind, img image.Image, raw []byte) *VisualSource {
	b := img.Bounds()
	src := &VisualSource{
		Kind:       kind,
		Image:      img,
		Width:      b.Dx(),
		Height:     b.Dy(),
		CapturedAt: time.Now(),
	}
	if len(raw) > 0 {
		src.encoded = raw
		src.encodeOnce.Do(func() {})
	}
	return src
}

// Encoded returns the original upload bytes, or a JPEG encoding of the frame
// for sources that never had any.
func (s *VisualSource) Encoded() ([]byte, error) {
	s.encodeOnce.Do(func() {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, s.Image, &jpeg.Options{Quality: 90}); err != nil {
			s.encodeErr = fmt.Errorf("encode frame: %w", err)
			return
		}
		s.encoded = buf.Bytes()
	})
	return s.encoded, s.encodeErr
}
