package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so wrapped copies made
// by WithError still compare equal to the predefined value.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded, please try again later",
		StatusCode: 429,
	}

	// Model lifecycle errors
	ErrModelLoadFailure = &AppError{
		Code:       "MODEL_LOAD_FAILURE",
		Message:    "Detection models failed to load",
		StatusCode: 503,
	}

	ErrModelNotReady = &AppError{
		Code:       "MODEL_NOT_READY",
		Message:    "Models still loading",
		StatusCode: 409,
	}

	// Media errors
	ErrDecode = &AppError{
		Code:       "DECODE_ERROR",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	ErrPermissionDenied = &AppError{
		Code:       "PERMISSION_DENIED",
		Message:    "Camera access was denied",
		StatusCode: 403,
	}

	ErrDeviceUnavailable = &AppError{
		Code:       "DEVICE_UNAVAILABLE",
		Message:    "No camera device available",
		StatusCode: 503,
	}

	// Detection errors
	ErrTransientDetection = &AppError{
		Code:       "TRANSIENT_DETECTION_ERROR",
		Message:    "Face detection failed",
		StatusCode: 502,
	}
)
