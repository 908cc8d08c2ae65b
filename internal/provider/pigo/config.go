package pigo

import "time"

// Config holds the configuration for the pigo detector
type Config struct {
	// BaseURL is the HTTPS origin serving the cascade files
	BaseURL string
	// FaceFinder and Puploc are the artifact names under BaseURL
	FaceFinder string
	Puploc     string
	// Timeout bounds each artifact download
	Timeout time.Duration

	// MaxDimension caps the long edge of frames before inference
	MaxDimension int

	MinSize      int
	MaxSize      int
	ShiftFactor  float64
	ScaleFactor  float64
	IoUThreshold float64

	// Landmarks enables eye localization with the puploc cascade
	Landmarks bool
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://raw.githubusercontent.com/esimov/pigo/master/cascade",
		FaceFinder:   "facefinder",
		Puploc:       "puploc",
		Timeout:      30 * time.Second,
		MaxDimension: 640,
		MinSize:      20,
		MaxSize:      1000,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		Landmarks:    true,
	}
}
