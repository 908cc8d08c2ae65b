// Package overlay paints face boxes on a transparent canvas that sits over
// the visible image or video.
package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
)

// ErrNotSized is returned when drawing on a canvas whose size was never set
var ErrNotSized = errors.New("overlay canvas has no size")

var labelFont *truetype.Font

func init() {
	var err error
	labelFont, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Options controls how boxes are drawn
type Options struct {
	BoxColor      color.Color
	LandmarkColor color.Color
	LineWidth     float64
	FontSize      float64
	DrawLandmarks bool
	DrawLabels    bool
}

// DefaultOptions matches the face-api draw defaults: blue boxes with the score
func DefaultOptions() Options {
	return Options{
		BoxColor:      color.NRGBA{R: 0, G: 0, B: 255, A: 255},
		LandmarkColor: color.NRGBA{R: 255, G: 0, B: 0, A: 255},
		LineWidth:     2,
		FontSize:      14,
		DrawLabels:    true,
	}
}

// Canvas is a transparent RGBA surface sized to a visual source's native
// dimensions. One writer renders; any number of readers may encode it.
type Canvas struct {
	name string
	opts Options

	mu     sync.RWMutex
	dc     *gg.Context
	face   font.Face
	width  int
	height int
	boxes  []domain.FaceBox
}

// New returns an unsized canvas. name identifies it in logs and the API.
func New(name string, opts Options) *Canvas {
	return &Canvas{
		name: name,
		opts: opts,
		face: truetype.NewFace(labelFont, &truetype.Options{Size: opts.FontSize}),
	}
}

func (c *Canvas) Name() string {
	return c.name
}

// Resize sets the native size and clears the canvas. Boxes passed to Render
// must already be in this coordinate space.
func (c *Canvas) Resize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.boxes = nil
	if width <= 0 || height <= 0 {
		c.dc, c.width, c.height = nil, 0, 0
		return
	}
	if c.dc != nil && c.width == width && c.height == height {
		c.clearLocked()
		return
	}
	c.dc = gg.NewContext(width, height)
	c.width, c.height = width, height
}

// Render clears the canvas and draws exactly the given boxes.
func (c *Canvas) Render(boxes []domain.FaceBox) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dc == nil {
		return ErrNotSized
	}

	c.clearLocked()
	c.boxes = append(c.boxes[:0], boxes...)

	for _, box := range boxes {
		c.drawBox(box)
	}
	return nil
}

func (c *Canvas) drawBox(box domain.FaceBox) {
	dc := c.dc

	dc.SetColor(c.opts.BoxColor)
	dc.SetLineWidth(c.opts.LineWidth)
	dc.DrawRectangle(box.X, box.Y, box.Width, box.Height)
	dc.Stroke()

	if c.opts.DrawLabels {
		dc.SetFontFace(c.face)
		label := fmt.Sprintf("%.2f", box.Confidence)
		y := box.Y - c.opts.LineWidth - 1
		if y < c.opts.FontSize {
			y = box.Y + c.opts.FontSize
		}
		dc.DrawString(label, box.X+c.opts.LineWidth, y)
	}

	if c.opts.DrawLandmarks {
		dc.SetColor(c.opts.LandmarkColor)
		for _, p := range box.Landmarks {
			dc.DrawCircle(p.X, p.Y, c.opts.LineWidth+1)
			dc.Fill()
		}
	}
}

// Clear removes every box but keeps the size. Clearing an unsized canvas is a no-op.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boxes = nil
	if c.dc != nil {
		c.clearLocked()
	}
}

func (c *Canvas) clearLocked() {
	c.dc.SetColor(color.Transparent)
	c.dc.Clear()
}

// Size returns the native canvas size
func (c *Canvas) Size() (int, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.width, c.height
}

// BoxCount returns how many boxes the last Render drew
func (c *Canvas) BoxCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.boxes)
}

// Boxes returns a copy of the boxes currently drawn
func (c *Canvas) Boxes() []domain.FaceBox {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.FaceBox, len(c.boxes))
	copy(out, c.boxes)
	return out
}

// Snapshot returns a copy of the pixels
func (c *Canvas) Snapshot() (*image.RGBA, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.dc == nil {
		return nil, ErrNotSized
	}
	src, ok := c.dc.Image().(*image.RGBA)
	if !ok {
		return nil, fmt.Errorf("unexpected canvas image type %T", c.dc.Image())
	}
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst, nil
}

// PNG encodes the overlay with its transparency
func (c *Canvas) PNG(w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.dc == nil {
		return ErrNotSized
	}
	return c.dc.EncodePNG(w)
}
