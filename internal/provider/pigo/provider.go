package pigo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	pigocore "github.com/esimov/pigo/core"
	"golang.org/x/sync/errgroup"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/provider"
)

const (
	// minCascadeSize is the smallest packet the cascade decoders can read a header from
	minCascadeSize = 12
	// maxCascadeSize guards against an origin serving something unexpected
	maxCascadeSize = 8 * 1024 * 1024

	// qualityMidpoint is the raw pigo score that maps to 0.5 confidence
	qualityMidpoint = 5.0
	qualitySpread   = 2.0

	puplocPerturbs = 50
)

// Provider implements provider.FaceDetector with the pigo pixel-intensity
// cascade and the puploc eye localizer.
type Provider struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger

	mu         sync.RWMutex
	classifier *pigocore.Pigo
	puploc     *pigocore.PuplocCascade
}

var _ provider.FaceDetector = (*Provider)(nil)

// NewProvider creates a new pigo provider. Cascades are fetched by LoadModels.
func NewProvider(config Config, logger *slog.Logger) *Provider {
	return &Provider{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger.With(slog.String("component", "pigo")),
	}
}

func (p *Provider) Name() string {
	return "pigo"
}

// LoadModels downloads both cascades in parallel and unpacks them. The
// provider becomes usable only if both succeed.
func (p *Provider) LoadModels(ctx context.Context) error {
	var faceData, puplocData []byte

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := p.fetch(gctx, p.config.FaceFinder)
		faceData = data
		return err
	})
	if p.config.Landmarks {
		g.Go(func() error {
			data, err := p.fetch(gctx, p.config.Puploc)
			puplocData = data
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	classifier, err := unpackFaceFinder(faceData)
	if err != nil {
		return fmt.Errorf("%s: %w", p.config.FaceFinder, err)
	}

	var plc *pigocore.PuplocCascade
	if p.config.Landmarks {
		plc, err = unpackPuploc(puplocData)
		if err != nil {
			return fmt.Errorf("%s: %w", p.config.Puploc, err)
		}
	}

	p.mu.Lock()
	p.classifier = classifier
	p.puploc = plc
	p.mu.Unlock()

	p.logger.Info("cascades loaded",
		slog.Int("facefinder_bytes", len(faceData)),
		slog.Int("puploc_bytes", len(puplocData)),
	)
	return nil
}

func (p *Provider) fetch(ctx context.Context, name string) ([]byte, error) {
	url := strings.TrimRight(p.config.BaseURL, "/") + "/" + name

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrModelFetch, err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelFetch, name, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrModelFetch, name, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCascadeSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrModelFetch, name, err)
	}
	if len(data) > maxCascadeSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrModelFetch, name, maxCascadeSize)
	}
	return data, nil
}

// unpackFaceFinder decodes the detector cascade. The pigo decoder indexes
// into the packet without bounds checks, so a panic is turned into an error.
func unpackFaceFinder(data []byte) (classifier *pigocore.Pigo, err error) {
	if len(data) < minCascadeSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrModelParse, len(data))
	}
	defer func() {
		if r := recover(); r != nil {
			classifier, err = nil, fmt.Errorf("%w: %v", ErrModelParse, r)
		}
	}()

	classifier, err = pigocore.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelParse, err)
	}
	return classifier, nil
}

func unpackPuploc(data []byte) (plc *pigocore.PuplocCascade, err error) {
	if len(data) < minCascadeSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrModelParse, len(data))
	}
	defer func() {
		if r := recover(); r != nil {
			plc, err = nil, fmt.Errorf("%w: %v", ErrModelParse, r)
		}
	}()

	plc, err = pigocore.NewPuplocCascade().UnpackCascade(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelParse, err)
	}
	return plc, nil
}

// DetectFaces runs the cascade over a grayscale copy of the source, downscaled
// so the long edge fits MaxDimension. Boxes are reported in that downscaled space.
func (p *Provider) DetectFaces(ctx context.Context, src *domain.VisualSource) (*provider.Result, error) {
	p.mu.RLock()
	classifier, plc := p.classifier, p.puploc
	p.mu.RUnlock()

	if classifier == nil {
		return nil, ErrModelsNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img := src.Image
	if p.config.MaxDimension > 0 && (src.Width > p.config.MaxDimension || src.Height > p.config.MaxDimension) {
		img = imaging.Fit(img, p.config.MaxDimension, p.config.MaxDimension, imaging.Linear)
	}

	nrgba := pigocore.ImgToNRGBA(img)
	cols, rows := nrgba.Bounds().Dx(), nrgba.Bounds().Dy()

	imgParams := pigocore.ImageParams{
		Pixels: pigocore.RgbToGrayscale(nrgba),
		Rows:   rows,
		Cols:   cols,
		Dim:    cols,
	}
	cParams := pigocore.CascadeParams{
		MinSize:     p.config.MinSize,
		MaxSize:     p.config.MaxSize,
		ShiftFactor: p.config.ShiftFactor,
		ScaleFactor: p.config.ScaleFactor,
		ImageParams: imgParams,
	}

	dets := classifier.RunCascade(cParams, 0.0)
	dets = classifier.ClusterDetections(dets, p.config.IoUThreshold)

	faces := make([]provider.DetectedFace, 0, len(dets))
	for _, det := range dets {
		face := provider.DetectedFace{
			BoundingBox: boxFromDetection(det),
			Confidence:  confidence(det.Q),
		}
		if plc != nil {
			face.Landmarks = locateEyes(plc, det, imgParams)
		}
		faces = append(faces, face)
	}

	return &provider.Result{
		Faces:  faces,
		Width:  float64(cols),
		Height: float64(rows),
	}, nil
}

// boxFromDetection converts a center/scale detection into a top-left box.
func boxFromDetection(det pigocore.Detection) provider.BoundingBox {
	half := float64(det.Scale) / 2
	return provider.BoundingBox{
		X:      float64(det.Col) - half,
		Y:      float64(det.Row) - half,
		Width:  float64(det.Scale),
		Height: float64(det.Scale),
	}
}

// confidence squashes the unbounded pigo score into 0..1 so the usual 0.5
// threshold lines up with pigo's customary quality cut of 5.
func confidence(q float32) float64 {
	return 1 / (1 + math.Exp(-(float64(q)-qualityMidpoint)/qualitySpread))
}

// eyeSeeds returns the puploc starting points for the left and right eye.
func eyeSeeds(det pigocore.Detection) (left, right pigocore.Puploc) {
	scale := float32(det.Scale)
	left = pigocore.Puploc{
		Row:      det.Row - int(0.075*scale),
		Col:      det.Col - int(0.175*scale),
		Scale:    scale * 0.25,
		Perturbs: puplocPerturbs,
	}
	right = pigocore.Puploc{
		Row:      det.Row - int(0.075*scale),
		Col:      det.Col + int(0.185*scale),
		Scale:    scale * 0.25,
		Perturbs: puplocPerturbs,
	}
	return left, right
}

func locateEyes(plc *pigocore.PuplocCascade, det pigocore.Detection, imgParams pigocore.ImageParams) []provider.Landmark {
	leftSeed, rightSeed := eyeSeeds(det)

	var landmarks []provider.Landmark
	if eye := plc.RunDetector(leftSeed, imgParams, 0.0, false); eye != nil && eye.Row > 0 && eye.Col > 0 {
		landmarks = append(landmarks, provider.Landmark{Type: "left_eye", X: float64(eye.Col), Y: float64(eye.Row)})
	}
	if eye := plc.RunDetector(rightSeed, imgParams, 0.0, false); eye != nil && eye.Row > 0 && eye.Col > 0 {
		landmarks = append(landmarks, provider.Landmark{Type: "right_eye", X: float64(eye.Col), Y: float64(eye.Row)})
	}
	return landmarks
}
