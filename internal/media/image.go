package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
)

// maxPixels bounds decoded uploads to keep a single request from exhausting memory.
const maxPixels = 50_000_000

var errEmptyImage = errors.New("empty image")

// LoadStaticImage decodes uploaded bytes into a source sized to the image's
// natural dimensions.
func LoadStaticImage(data []byte) (*domain.VisualSource, string, error) {
	if len(data) == 0 {
		return nil, "", domain.ErrDecode.WithError(errEmptyImage)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", domain.ErrDecode.WithError(fmt.Errorf("decode config: %w", err))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, format, domain.ErrDecode.WithError(fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height))
	}
	if cfg.Width*cfg.Height > maxPixels {
		return nil, format, domain.ErrDecode.WithError(fmt.Errorf("image too large: %dx%d", cfg.Width, cfg.Height))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, domain.ErrDecode.WithError(fmt.Errorf("decode %s: %w", format, err))
	}

	return domain.NewVisualSource(domain.SourceStaticImage, img, data), format, nil
}
