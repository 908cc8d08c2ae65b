package media

import (
	"context"
	"errors"
	"image"
)

// Facing is the requested camera orientation.
type Facing string

const (
	FacingUser        Facing = "user"
	FacingEnvironment Facing = "environment"
)

var (
	// ErrFrameNotReady is returned while the stream has no decodable frame yet.
	ErrFrameNotReady = errors.New("media: frame not ready")
	// ErrStreamStopped is returned once the stream tracks are stopped or ended.
	ErrStreamStopped = errors.New("media: stream stopped")
)

// Constraints are hints for the camera; the negotiated size may differ.
type Constraints struct {
	Width  int
	Height int
	Facing Facing
}

// DefaultConstraints requests a front-facing 640x480 stream.
func DefaultConstraints() Constraints {
	return Constraints{
		Width:  640,
		Height: 480,
		Facing: FacingUser,
	}
}

// Metadata holds the dimensions the device actually negotiated.
type Metadata struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Camera acquires a live stream from a device.
type Camera interface {
	Open(ctx context.Context, constraints Constraints) (*Stream, error)
}

// FrameReader matches the mediadevices video reader contract. The release
// func, when non-nil, must be called once the image is no longer used.
type FrameReader interface {
	Read() (img image.Image, release func(), err error)
}
