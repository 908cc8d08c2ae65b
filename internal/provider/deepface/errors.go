package deepface

import "errors"

var (
	ErrDeepFaceUnavailable = errors.New("deepface service unavailable")
	ErrInvalidResponse     = errors.New("invalid response from deepface")
	ErrNotLoaded           = errors.New("deepface provider not loaded")
)
