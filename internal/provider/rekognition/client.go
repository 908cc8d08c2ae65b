package rekognition

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/smithy-go"
)

const (
	errCodeAccessDenied         = "AccessDeniedException"
	errCodeInvalidParameter     = "InvalidParameterException"
	errCodeInvalidImageFormat   = "InvalidImageFormatException"
	errCodeImageTooLarge        = "ImageTooLargeException"
	errCodeThrottling           = "ThrottlingException"
	errCodeProvisionedThroughut = "ProvisionedThroughputExceededException"
	errCodeUnrecognizedClient   = "UnrecognizedClientException"
)

// RekognitionAPI is the subset of the AWS client used for detection
type RekognitionAPI interface {
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
}

// NewClient creates a Rekognition client using the AWS default credential
// chain. Credentials are resolved eagerly so a missing chain fails at load time.
func NewClient(ctx context.Context, cfg Config) (RekognitionAPI, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if _, err := awsCfg.Credentials.Retrieve(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	return rekognition.NewFromConfig(awsCfg), nil
}

// parseAPIError maps AWS error codes onto provider sentinel errors
func parseAPIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case errCodeAccessDenied, errCodeUnrecognizedClient:
			return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.ErrorMessage())
		case errCodeInvalidParameter, errCodeInvalidImageFormat, errCodeImageTooLarge:
			return fmt.Errorf("%w: %s", ErrInvalidImage, apiErr.ErrorMessage())
		case errCodeThrottling, errCodeProvisionedThroughut:
			return fmt.Errorf("%w: %s", ErrThrottled, apiErr.ErrorMessage())
		}
	}

	return err
}
