package pigo

import "errors"

var (
	ErrModelFetch      = errors.New("pigo cascade fetch failed")
	ErrModelParse      = errors.New("pigo cascade is malformed")
	ErrModelsNotLoaded = errors.New("pigo cascades not loaded")
)
