package rekognition

import (
	"context"
	"errors"
	"image"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/audit"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/provider"
)

// TestProviderImplementsInterface verifies that Provider implements FaceDetector
func TestProviderImplementsInterface(t *testing.T) {
	var _ provider.FaceDetector = (*Provider)(nil)
}

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "us-east-1", cfg.Region)
	assert.True(t, cfg.Landmarks)
}

func ptr[T any](v T) *T {
	return &v
}

// fakeImageData returns fake image bytes above the minimum valid size
func fakeImageData() []byte {
	data := make([]byte, 150)
	for i := range data {
		data[i] = byte(i % 256)
	}
	return data
}

func testSource(raw []byte) *domain.VisualSource {
	return domain.NewVisualSource(domain.SourceStaticImage, image.NewRGBA(image.Rect(0, 0, 200, 100)), raw)
}

type recordingAudit struct {
	events []audit.Event
}

func (r *recordingAudit) Log(_ context.Context, event audit.Event) error {
	r.events = append(r.events, event)
	return nil
}

func loadedProvider(t *testing.T, api RekognitionAPI, opts ...ProviderOption) *Provider {
	t.Helper()

	p := NewProvider(DefaultConfig(), append([]ProviderOption{WithAPI(api)}, opts...)...)
	require.NoError(t, p.LoadModels(context.Background()))
	return p
}

func TestDetectFaces_Success(t *testing.T) {
	mock := &mockRekognitionAPI{
		detectFacesFunc: func(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error) {
			assert.Equal(t, []types.Attribute{types.AttributeDefault}, params.Attributes)
			return &rekognition.DetectFacesOutput{
				FaceDetails: []types.FaceDetail{
					{
						BoundingBox: &types.BoundingBox{
							Left:   ptr(float32(0.1)),
							Top:    ptr(float32(0.2)),
							Width:  ptr(float32(0.3)),
							Height: ptr(float32(0.4)),
						},
						Confidence: ptr(float32(99.5)),
						Landmarks: []types.Landmark{
							{Type: types.LandmarkTypeEyeLeft, X: ptr(float32(0.2)), Y: ptr(float32(0.3))},
							{Type: types.LandmarkTypeEyeRight, X: ptr(float32(0.3)), Y: ptr(float32(0.3))},
							{Type: types.LandmarkTypeChinBottom, X: ptr(float32(0.25)), Y: ptr(float32(0.6))},
						},
					},
				},
			}, nil
		},
	}
	recorder := &recordingAudit{}
	p := loadedProvider(t, mock, WithAuditLogger(recorder))

	res, err := p.DetectFaces(context.Background(), testSource(fakeImageData()))

	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Width)
	assert.Equal(t, 1.0, res.Height)
	require.Len(t, res.Faces, 1)

	face := res.Faces[0]
	assert.InDelta(t, 0.1, face.BoundingBox.X, 0.001)
	assert.InDelta(t, 0.2, face.BoundingBox.Y, 0.001)
	assert.InDelta(t, 0.3, face.BoundingBox.Width, 0.001)
	assert.InDelta(t, 0.4, face.BoundingBox.Height, 0.001)
	assert.InDelta(t, 0.995, face.Confidence, 0.001)

	require.Len(t, face.Landmarks, 2)
	assert.Equal(t, "left_eye", face.Landmarks[0].Type)
	assert.Equal(t, "right_eye", face.Landmarks[1].Type)

	require.Len(t, recorder.events, 1)
	assert.Equal(t, audit.EventFaceDetected, recorder.events[0].EventType)
	assert.True(t, recorder.events[0].Success)
	assert.Equal(t, "1", recorder.events[0].Metadata["faces_count"])
}

func TestDetectFaces_NoFaces(t *testing.T) {
	p := loadedProvider(t, &mockRekognitionAPI{})

	res, err := p.DetectFaces(context.Background(), testSource(fakeImageData()))

	require.NoError(t, err)
	assert.Empty(t, res.Faces)
}

func TestDetectFaces_EncodesFrames(t *testing.T) {
	var sent []byte
	mock := &mockRekognitionAPI{
		detectFacesFunc: func(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error) {
			sent = params.Image.Bytes
			return &rekognition.DetectFacesOutput{}, nil
		},
	}
	p := loadedProvider(t, mock)

	src := domain.NewVisualSource(domain.SourceVideoFrame, image.NewRGBA(image.Rect(0, 0, 64, 48)), nil)
	_, err := p.DetectFaces(context.Background(), src)

	require.NoError(t, err)
	require.Greater(t, len(sent), 2)
	// JPEG SOI marker
	assert.Equal(t, []byte{0xFF, 0xD8}, sent[:2])
}

func TestDetectFaces_Errors(t *testing.T) {
	tests := []struct {
		name      string
		apiErr    error
		image     []byte
		wantErr   error
		wantCalls int
	}{
		{
			name:      "image too small",
			image:     []byte("tiny"),
			wantErr:   ErrInvalidImage,
			wantCalls: 0,
		},
		{
			name:      "image too large",
			image:     make([]byte, maxImageSize+1),
			wantErr:   ErrInvalidImage,
			wantCalls: 0,
		},
		{
			name:      "access denied",
			apiErr:    &smithy.GenericAPIError{Code: errCodeAccessDenied, Message: "denied"},
			image:     fakeImageData(),
			wantErr:   ErrInvalidCredentials,
			wantCalls: 1,
		},
		{
			name:      "throttled",
			apiErr:    &smithy.GenericAPIError{Code: errCodeThrottling, Message: "slow down"},
			image:     fakeImageData(),
			wantErr:   ErrThrottled,
			wantCalls: 1,
		},
		{
			name:      "bad format",
			apiErr:    &smithy.GenericAPIError{Code: errCodeInvalidImageFormat, Message: "bad"},
			image:     fakeImageData(),
			wantErr:   ErrInvalidImage,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockRekognitionAPI{
				detectFacesFunc: func(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error) {
					return nil, tt.apiErr
				},
			}
			recorder := &recordingAudit{}
			p := loadedProvider(t, mock, WithAuditLogger(recorder))

			res, err := p.DetectFaces(context.Background(), testSource(tt.image))

			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCalls, mock.calls)
			require.Len(t, recorder.events, 1)
			assert.False(t, recorder.events[0].Success)
		})
	}
}

func TestDetectFaces_NotLoaded(t *testing.T) {
	p := NewProvider(DefaultConfig(), WithAPI(&mockRekognitionAPI{}))

	_, err := p.DetectFaces(context.Background(), testSource(fakeImageData()))

	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestLoadModels_ClientError(t *testing.T) {
	p := NewProvider(DefaultConfig())
	p.newClient = func(context.Context, Config) (RekognitionAPI, error) {
		return nil, ErrInvalidCredentials
	}

	err := p.LoadModels(context.Background())

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseAPIError(t *testing.T) {
	assert.NoError(t, parseAPIError(nil))

	plain := errors.New("connection reset")
	assert.Equal(t, plain, parseAPIError(plain))

	unknown := &smithy.GenericAPIError{Code: "InternalServerError", Message: "boom"}
	assert.Equal(t, error(unknown), parseAPIError(unknown))
}

func TestIntegration_LoadModels(t *testing.T) {
	if os.Getenv("AWS_ACCESS_KEY_ID") == "" {
		t.Skip("Skipping integration test: AWS_ACCESS_KEY_ID not set")
	}

	p := NewProvider(DefaultConfig())
	require.NoError(t, p.LoadModels(context.Background()))
}
