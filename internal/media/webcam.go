package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/pion/mediadevices"
	mediadevicescamera "github.com/pion/mediadevices/pkg/driver/camera"
	"github.com/pion/mediadevices/pkg/prop"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
)

var initDrivers sync.Once

// Webcam opens the first local video device through mediadevices.
type Webcam struct {
	logger *slog.Logger
}

// NewWebcam creates a webcam-backed Camera.
func NewWebcam(logger *slog.Logger) *Webcam {
	return &Webcam{
		logger: logger.With(slog.String("component", "webcam")),
	}
}

// makeConstraints turns the requested resolution into ideal ranges. The
// device picks the closest mode it supports.
func makeConstraints(c Constraints) mediadevices.MediaStreamConstraints {
	return mediadevices.MediaStreamConstraints{
		Video: func(constraint *mediadevices.MediaTrackConstraints) {
			constraint.Width = prop.IntRanged{Min: 0, Ideal: c.Width, Max: 4096}
			constraint.Height = prop.IntRanged{Min: 0, Ideal: c.Height, Max: 2160}
		},
	}
}

type openResult struct {
	stream mediadevices.MediaStream
	err    error
}

// Open acquires the camera. Cancelling ctx abandons the acquisition and
// releases the tracks as soon as the driver hands them back.
func (w *Webcam) Open(ctx context.Context, c Constraints) (*Stream, error) {
	initDrivers.Do(mediadevicescamera.Initialize)

	w.logger.Debug("requesting camera",
		slog.Int("ideal_width", c.Width),
		slog.Int("ideal_height", c.Height),
		slog.String("facing", string(c.Facing)),
	)

	resCh := make(chan openResult, 1)
	go func() {
		s, err := mediadevices.GetUserMedia(makeConstraints(c))
		resCh <- openResult{stream: s, err: err}
	}()

	var res openResult
	select {
	case res = <-resCh:
	case <-ctx.Done():
		go func() {
			if late := <-resCh; late.err == nil {
				_ = closeTracks(late.stream)
			}
		}()
		return nil, ctx.Err()
	}

	if res.err != nil {
		return nil, classifyOpenError(res.err)
	}

	tracks := res.stream.GetVideoTracks()
	if len(tracks) == 0 {
		_ = closeTracks(res.stream)
		return nil, domain.ErrDeviceUnavailable.WithError(errors.New("stream has no video track"))
	}

	track, ok := tracks[0].(*mediadevices.VideoTrack)
	if !ok {
		_ = closeTracks(res.stream)
		return nil, domain.ErrDeviceUnavailable.WithError(fmt.Errorf("unexpected track type %T", tracks[0]))
	}

	stream := res.stream
	return NewStream(track.NewReader(false), func() error {
		return closeTracks(stream)
	}, w.logger.With(slog.String("track_id", track.ID()))), nil
}

func closeTracks(s mediadevices.MediaStream) error {
	var errs []error
	for _, t := range s.GetTracks() {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// classifyOpenError maps driver failures onto the camera error taxonomy.
func classifyOpenError(err error) error {
	if errors.Is(err, os.ErrPermission) ||
		errors.Is(err, syscall.EACCES) ||
		errors.Is(err, syscall.EPERM) ||
		strings.Contains(strings.ToLower(err.Error()), "permission denied") {
		return domain.ErrPermissionDenied.WithError(err)
	}
	return domain.ErrDeviceUnavailable.WithError(err)
}
