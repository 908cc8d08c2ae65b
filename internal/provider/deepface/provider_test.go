package deepface

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/provider"
)

// TestProviderImplementsInterface verifies that Provider implements FaceDetector
func TestProviderImplementsInterface(t *testing.T) {
	var _ provider.FaceDetector = (*Provider)(nil)
}

func ptr[T any](v T) *T {
	return &v
}

func testSource() *domain.VisualSource {
	return domain.NewVisualSource(domain.SourceStaticImage, image.NewRGBA(image.Rect(0, 0, 320, 240)), []byte("test-image"))
}

func newTestServer(t *testing.T, status int, resp RepresentResponse) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			_, _ = w.Write([]byte("Welcome to DeepFace API!"))
			return
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestProvider_LoadModels(t *testing.T) {
	server := newTestServer(t, http.StatusOK, RepresentResponse{})
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL
	config.RetryCount = 0

	p := NewProvider(config)
	require.NoError(t, p.LoadModels(context.Background()))
	assert.Equal(t, "deepface", p.Name())
}

func TestProvider_LoadModels_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL
	config.RetryCount = 0

	p := NewProvider(config)
	err := p.LoadModels(context.Background())

	assert.ErrorIs(t, err, ErrDeepFaceUnavailable)

	_, err = p.DetectFaces(context.Background(), testSource())
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestProvider_DetectFaces(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse RepresentResponse
		serverStatus   int
		wantCount      int
		wantErr        bool
		validate       func(t *testing.T, res *provider.Result)
	}{
		{
			name: "single face with detector score",
			serverResponse: RepresentResponse{
				Results: []RepresentResult{
					{
						FacialArea: FacialArea{
							X: 10, Y: 20, W: 200, H: 200,
							LeftEye:  []int{60, 80},
							RightEye: []int{150, 82},
						},
						FaceConfidence: ptr(0.97),
					},
				},
			},
			serverStatus: http.StatusOK,
			wantCount:    1,
			validate: func(t *testing.T, res *provider.Result) {
				face := res.Faces[0]
				assert.Equal(t, provider.BoundingBox{X: 10, Y: 20, Width: 200, Height: 200}, face.BoundingBox)
				assert.InDelta(t, 0.97, face.Confidence, 0.0001)
				require.Len(t, face.Landmarks, 2)
				assert.Equal(t, provider.Landmark{Type: "left_eye", X: 60, Y: 80}, face.Landmarks[0])
			},
		},
		{
			name: "score estimated from area",
			serverResponse: RepresentResponse{
				Results: []RepresentResult{
					{FacialArea: FacialArea{X: 10, Y: 10, W: 100, H: 100}},
					{FacialArea: FacialArea{X: 200, Y: 10, W: 100, H: 100}},
				},
			},
			serverStatus: http.StatusOK,
			wantCount:    2,
			validate: func(t *testing.T, res *provider.Result) {
				assert.Greater(t, res.Faces[0].Confidence, 0.7)
				assert.Empty(t, res.Faces[0].Landmarks)
			},
		},
		{
			name: "degenerate area skipped",
			serverResponse: RepresentResponse{
				Results: []RepresentResult{
					{FacialArea: FacialArea{X: 0, Y: 0, W: 0, H: 0}},
				},
			},
			serverStatus: http.StatusOK,
			wantCount:    0,
		},
		{
			name:           "no faces detected",
			serverResponse: RepresentResponse{Results: []RepresentResult{}},
			serverStatus:   http.StatusOK,
			wantCount:      0,
		},
		{
			name:         "server error",
			serverStatus: http.StatusInternalServerError,
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, tt.serverStatus, tt.serverResponse)
			defer server.Close()

			config := DefaultConfig()
			config.BaseURL = server.URL
			config.RetryCount = 0

			p := NewProvider(config)
			require.NoError(t, p.LoadModels(context.Background()))

			res, err := p.DetectFaces(context.Background(), testSource())

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, 320.0, res.Width)
			assert.Equal(t, 240.0, res.Height)
			assert.Len(t, res.Faces, tt.wantCount)
			if tt.validate != nil {
				tt.validate(t, res)
			}
		})
	}
}

func TestCalculateConfidence(t *testing.T) {
	tests := []struct {
		name     string
		faceArea float64
		wantMin  float64
		wantMax  float64
	}{
		{
			name:     "very small face",
			faceArea: 1000, // 31x31 pixels
			wantMin:  0.49,
			wantMax:  0.51,
		},
		{
			name:     "minimum face area",
			faceArea: minFaceArea,
			wantMin:  0.69,
			wantMax:  0.71,
		},
		{
			name:     "medium face",
			faceArea: 40000, // 200x200 pixels
			wantMin:  0.73,
			wantMax:  0.77,
		},
		{
			name:     "large face",
			faceArea: maxFaceArea,
			wantMin:  0.98,
			wantMax:  1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confidence := calculateConfidence(tt.faceArea)
			assert.GreaterOrEqual(t, confidence, tt.wantMin)
			assert.LessOrEqual(t, confidence, tt.wantMax)
		})
	}
}
