package rekognition

// Config holds configuration for AWS Rekognition provider
type Config struct {
	// Region is the AWS region where Rekognition service will be used (e.g., "us-east-1")
	Region string

	// Landmarks requests facial landmarks along with bounding boxes
	Landmarks bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Region:    "us-east-1",
		Landmarks: true,
	}
}
