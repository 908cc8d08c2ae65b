package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/live"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/overlay"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/service"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/status"
)

// MockImageDetector is a mock implementation of ImageDetector
type MockImageDetector struct {
	mock.Mock
}

func (m *MockImageDetector) DetectImage(ctx context.Context, data []byte) (*service.ImageResult, error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ImageResult), args.Error(1)
}

// MockLiveController is a mock implementation of LiveController
type MockLiveController struct {
	mock.Mock
}

func (m *MockLiveController) Start(ctx context.Context) (live.Snapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(live.Snapshot), args.Error(1)
}

func (m *MockLiveController) Stop() live.Snapshot {
	args := m.Called()
	return args.Get(0).(live.Snapshot)
}

func (m *MockLiveController) Snapshot() live.Snapshot {
	args := m.Called()
	return args.Get(0).(live.Snapshot)
}

type stubModels struct {
	state domain.ModelState
	err   error
}

func (s stubModels) State() domain.ModelState { return s.state }
func (s stubModels) Err() error               { return s.err }

type stubStatus struct{ snap status.Snapshot }

func (s stubStatus) Snapshot() status.Snapshot { return s.snap }

type stubView struct{ mode domain.ViewMode }

func (s stubView) Mode() domain.ViewMode { return s.mode }

// testLogger returns a logger that discards all output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(testLogger())})
}

func createMultipartRequest(imageContent []byte, contentType string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if imageContent != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="test.png"`)
		h.Set("Content-Type", contentType)

		part, err := writer.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(imageContent); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

func decodeErrorCode(t *testing.T, body io.Reader) string {
	t.Helper()
	var resp middleware.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp.Error.Code
}

func TestImageHandler_Detect(t *testing.T) {
	tests := []struct {
		name        string
		image       []byte
		contentType string
		setupMock   func(m *MockImageDetector)
		wantStatus  int
		wantCode    string
	}{
		{
			name:        "two faces",
			image:       []byte("png-bytes"),
			contentType: "image/png",
			setupMock: func(m *MockImageDetector) {
				m.On("DetectImage", mock.Anything, []byte("png-bytes")).Return(&service.ImageResult{
					Faces:  []domain.FaceBox{{X: 1, Y: 1, Width: 10, Height: 10, Confidence: 0.9}, {X: 20, Y: 20, Width: 10, Height: 10, Confidence: 0.8}},
					Count:  2,
					Width:  500,
					Height: 400,
					Status: "2 face(s) detected!",
				}, nil)
			},
			wantStatus: fiber.StatusOK,
		},
		{
			name:        "models not ready",
			image:       []byte("png-bytes"),
			contentType: "image/png",
			setupMock: func(m *MockImageDetector) {
				m.On("DetectImage", mock.Anything, mock.Anything).Return(nil, domain.ErrModelNotReady)
			},
			wantStatus: fiber.StatusConflict,
			wantCode:   "MODEL_NOT_READY",
		},
		{
			name:        "decode error",
			image:       []byte("garbage"),
			contentType: "image/jpeg",
			setupMock: func(m *MockImageDetector) {
				m.On("DetectImage", mock.Anything, mock.Anything).Return(nil, domain.ErrDecode.WithError(errors.New("bad header")))
			},
			wantStatus: fiber.StatusUnprocessableEntity,
			wantCode:   "DECODE_ERROR",
		},
		{
			name:        "missing file",
			image:       nil,
			setupMock:   func(m *MockImageDetector) {},
			wantStatus:  fiber.StatusUnprocessableEntity,
			wantCode:    "VALIDATION_FAILED",
			contentType: "image/png",
		},
		{
			name:        "unsupported content type",
			image:       []byte("%PDF"),
			contentType: "application/pdf",
			setupMock:   func(m *MockImageDetector) {},
			wantStatus:  fiber.StatusUnprocessableEntity,
			wantCode:    "VALIDATION_FAILED",
		},
		{
			name:        "empty file",
			image:       []byte{},
			contentType: "image/png",
			setupMock:   func(m *MockImageDetector) {},
			wantStatus:  fiber.StatusUnprocessableEntity,
			wantCode:    "DECODE_ERROR",
		},
		{
			name:        "too large",
			image:       bytes.Repeat([]byte{1}, 2048),
			contentType: "image/png",
			setupMock:   func(m *MockImageDetector) {},
			wantStatus:  fiber.StatusUnprocessableEntity,
			wantCode:    "VALIDATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detector := new(MockImageDetector)
			tt.setupMock(detector)

			h := NewImageHandler(detector, overlay.New("image", overlay.DefaultOptions()), 1024, testLogger())
			app := newTestApp()
			app.Post("/v1/images", h.Detect)

			body, ct, err := createMultipartRequest(tt.image, tt.contentType)
			require.NoError(t, err)

			req := httptest.NewRequest("POST", "/v1/images", body)
			req.Header.Set("Content-Type", ct)
			resp, err := app.Test(req, -1)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeErrorCode(t, resp.Body))
			} else {
				var result service.ImageResult
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
				assert.Equal(t, 2, result.Count)
				assert.Equal(t, "2 face(s) detected!", result.Status)
			}
			detector.AssertExpectations(t)
		})
	}
}

func TestImageHandler_Overlay(t *testing.T) {
	canvas := overlay.New("image", overlay.DefaultOptions())
	h := NewImageHandler(new(MockImageDetector), canvas, 0, testLogger())
	app := newTestApp()
	app.Get("/v1/images/overlay", h.Overlay)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/images/overlay", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	canvas.Resize(50, 40)
	require.NoError(t, canvas.Render([]domain.FaceBox{{X: 5, Y: 5, Width: 20, Height: 20, Confidence: 0.9}}))

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/images/overlay", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestStreamHandler(t *testing.T) {
	running := live.Snapshot{State: domain.LiveRunning, SessionID: "abc", Width: 640, Height: 480}
	idle := live.Snapshot{State: domain.LiveIdle}

	tests := []struct {
		name       string
		method     string
		path       string
		setupMock  func(m *MockLiveController)
		wantStatus int
		wantCode   string
		wantState  domain.LiveState
	}{
		{
			name:   "start",
			method: "POST", path: "/v1/stream/start",
			setupMock: func(m *MockLiveController) {
				m.On("Start", mock.Anything).Return(running, nil)
			},
			wantStatus: fiber.StatusOK,
			wantState:  domain.LiveRunning,
		},
		{
			name:   "start before models",
			method: "POST", path: "/v1/stream/start",
			setupMock: func(m *MockLiveController) {
				m.On("Start", mock.Anything).Return(idle, domain.ErrModelNotReady)
			},
			wantStatus: fiber.StatusConflict,
			wantCode:   "MODEL_NOT_READY",
		},
		{
			name:   "permission denied",
			method: "POST", path: "/v1/stream/start",
			setupMock: func(m *MockLiveController) {
				m.On("Start", mock.Anything).Return(live.Snapshot{State: domain.LiveError}, domain.ErrPermissionDenied.WithError(errors.New("EACCES")))
			},
			wantStatus: fiber.StatusForbidden,
			wantCode:   "PERMISSION_DENIED",
		},
		{
			name:   "start canceled",
			method: "POST", path: "/v1/stream/start",
			setupMock: func(m *MockLiveController) {
				m.On("Start", mock.Anything).Return(idle, live.ErrStartCanceled)
			},
			wantStatus: fiber.StatusConflict,
			wantCode:   "HTTP_ERROR",
		},
		{
			name:   "stop when idle",
			method: "POST", path: "/v1/stream/stop",
			setupMock: func(m *MockLiveController) {
				m.On("Stop").Return(idle)
			},
			wantStatus: fiber.StatusOK,
			wantState:  domain.LiveIdle,
		},
		{
			name:   "get",
			method: "GET", path: "/v1/stream",
			setupMock: func(m *MockLiveController) {
				m.On("Snapshot").Return(running)
			},
			wantStatus: fiber.StatusOK,
			wantState:  domain.LiveRunning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := new(MockLiveController)
			tt.setupMock(ctrl)

			h := NewStreamHandler(ctrl, overlay.New("video", overlay.DefaultOptions()), testLogger())
			app := newTestApp()
			app.Post("/v1/stream/start", h.Start)
			app.Post("/v1/stream/stop", h.Stop)
			app.Get("/v1/stream", h.Get)

			resp, err := app.Test(httptest.NewRequest(tt.method, tt.path, nil))
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeErrorCode(t, resp.Body))
			} else {
				var snap live.Snapshot
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
				assert.Equal(t, tt.wantState, snap.State)
			}
			ctrl.AssertExpectations(t)
		})
	}
}

func TestStatusHandler_Get(t *testing.T) {
	updated := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ctrl := new(MockLiveController)
	ctrl.On("Snapshot").Return(live.Snapshot{State: domain.LiveIdle})

	h := NewStatusHandler(
		stubStatus{snap: status.Snapshot{Message: status.MsgModelsFailed, UpdatedAt: updated}},
		stubModels{state: domain.ModelFailed, err: domain.ErrModelLoadFailure.WithError(errors.New("404"))},
		ctrl,
		stubView{mode: domain.ViewImage},
	)
	app := newTestApp()
	app.Get("/v1/status", h.Get)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/status", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, status.MsgModelsFailed, got.Message)
	assert.Equal(t, domain.ModelFailed, got.ModelState)
	assert.Contains(t, got.ModelError, "404")
	assert.Equal(t, domain.ViewImage, got.ViewMode)
	assert.Equal(t, domain.LiveIdle, got.Live.State)
	require.NotNil(t, got.UpdatedAt)
	assert.True(t, updated.Equal(*got.UpdatedAt))
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		state      domain.ModelState
		wantStatus int
		wantBody   string
	}{
		{domain.ModelReady, fiber.StatusOK, "ready"},
		{domain.ModelLoading, fiber.StatusServiceUnavailable, "not_ready"},
		{domain.ModelFailed, fiber.StatusServiceUnavailable, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			h := NewHealthHandler(stubModels{state: tt.state})
			app := newTestApp()
			app.Get("/health", h.Health)
			app.Get("/ready", h.Ready)

			resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)

			resp, err = app.Test(httptest.NewRequest("GET", "/ready", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body HealthResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantBody, body.Status)
			assert.Equal(t, tt.state, body.ModelState)
		})
	}
}
