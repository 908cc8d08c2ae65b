package mock

import (
	"context"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/provider"
)

// Provider implementa provider.FaceDetector para testes e desenvolvimento
type Provider struct {
	mu          sync.Mutex
	faces       []provider.DetectedFace
	spaceW      float64
	spaceH      float64
	loadErr     error
	detectErr   error
	loadDelay   time.Duration
	detectDelay time.Duration
	gate        chan struct{}
	loads       int
	detects     int
}

var _ provider.FaceDetector = (*Provider)(nil)

// Option configura o mock
type Option func(*Provider)

// WithFaces sets the faces returned on every call, expressed in a w x h space.
func WithFaces(w, h float64, faces ...provider.DetectedFace) Option {
	return func(p *Provider) {
		p.spaceW, p.spaceH = w, h
		p.faces = faces
	}
}

// WithLoadError makes LoadModels fail.
func WithLoadError(err error) Option {
	return func(p *Provider) {
		p.loadErr = err
	}
}

// WithDetectError makes DetectFaces fail.
func WithDetectError(err error) Option {
	return func(p *Provider) {
		p.detectErr = err
	}
}

// WithLoadDelay slows down LoadModels.
func WithLoadDelay(d time.Duration) Option {
	return func(p *Provider) {
		p.loadDelay = d
	}
}

// WithDetectDelay slows down DetectFaces.
func WithDetectDelay(d time.Duration) Option {
	return func(p *Provider) {
		p.detectDelay = d
	}
}

// WithGate blocks each DetectFaces call until a value is received on gate.
func WithGate(gate chan struct{}) Option {
	return func(p *Provider) {
		p.gate = gate
	}
}

// New cria uma nova instância do mock. Sem opções, retorna uma face
// centralizada em coordenadas relativas.
func New(opts ...Option) *Provider {
	p := &Provider{
		spaceW: 1,
		spaceH: 1,
		faces: []provider.DetectedFace{
			{
				BoundingBox: provider.BoundingBox{X: 0.1, Y: 0.1, Width: 0.8, Height: 0.8},
				Confidence:  0.99,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string {
	return "mock"
}

// LoadModels simula o carregamento dos modelos
func (p *Provider) LoadModels(ctx context.Context) error {
	p.mu.Lock()
	p.loads++
	delay, err := p.loadDelay, p.loadErr
	p.mu.Unlock()

	if err := sleep(ctx, delay); err != nil {
		return err
	}
	return err
}

// DetectFaces simula detecção de faces
func (p *Provider) DetectFaces(ctx context.Context, src *domain.VisualSource) (*provider.Result, error) {
	p.mu.Lock()
	p.detects++
	delay, err, gate := p.detectDelay, p.detectErr, p.gate
	faces := make([]provider.DetectedFace, len(p.faces))
	copy(faces, p.faces)
	w, h := p.spaceW, p.spaceH
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := sleep(ctx, delay); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if w == 0 || h == 0 {
		w, h = float64(src.Width), float64(src.Height)
	}
	return &provider.Result{Faces: faces, Width: w, Height: h}, nil
}

// SetFaces replaces the faces returned by later calls.
func (p *Provider) SetFaces(w, h float64, faces ...provider.DetectedFace) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spaceW, p.spaceH = w, h
	p.faces = faces
}

// SetDetectError changes the error returned by later calls; nil clears it.
func (p *Provider) SetDetectError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detectErr = err
}

// Loads reports how many times LoadModels ran.
func (p *Provider) Loads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loads
}

// Detects reports how many times DetectFaces ran.
func (p *Provider) Detects() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detects
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
