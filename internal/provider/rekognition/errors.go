package rekognition

import "errors"

var (
	// ErrInvalidCredentials indicates that AWS credentials are invalid or missing
	ErrInvalidCredentials = errors.New("invalid or missing AWS credentials")

	// ErrInvalidImage indicates that Rekognition rejected the image bytes
	ErrInvalidImage = errors.New("invalid image for rekognition")

	// ErrThrottled indicates the request rate exceeded the account limits
	ErrThrottled = errors.New("rekognition request throttled")

	// ErrNotLoaded indicates DetectFaces was called before LoadModels
	ErrNotLoaded = errors.New("rekognition client not initialized")
)
