package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/nadasuara/server/adapters"
	"github.com/nadasuara/server/domain/entities"
	"github.com/nadasuara/server/internal/audio"
	"github.com/nadasuara/server/internal/auth"
	"github.com/nadasuara/server/internal/session"
	"github.com/nadasuara/server/internal/websocket"
)

type fixedRecognizer struct {
	text string
	err  error
}

func (r *fixedRecognizer) Transcribe(ctx context.Context, samples []int16, language string) (string, error) {
	return r.text, r.err
}

type testEnv struct {
	e       *echo.Echo
	devices *adapters.MemoryDeviceRepository
	archive *adapters.MemoryTranscriptArchive
	authn   *auth.Authenticator
}

func setupTestServer(t *testing.T, recognizerText string) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	devices := adapters.NewMemoryDeviceRepository()
	archive := adapters.NewMemoryTranscriptArchive()
	authn, err := auth.NewAuthenticator("test-secret", 0)
	if err != nil {
		t.Fatalf("NewAuthenticator failed: %v", err)
	}
	recognizer := &fixedRecognizer{text: recognizerText}

	hub := websocket.NewHub(session.NewRegistry(), recognizer, archive, session.Config{}, logger)
	go hub.Run()

	e := echo.New()
	NewServer(hub, devices, archive, recognizer, authn, audio.SampleRate, logger).InitRoutes(e)

	return &testEnv{e: e, devices: devices, archive: archive, authn: authn}
}

func (env *testEnv) registerDevice(t *testing.T) *entities.Device {
	t.Helper()
	device := &entities.Device{SerialNumber: "SN-001", SecretKey: "secret", Model: "mic-v2"}
	if err := env.devices.Register(device); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return device
}

func (env *testEnv) deviceToken(t *testing.T, deviceID string) string {
	t.Helper()
	token, err := env.authn.GenerateDeviceToken(deviceID)
	if err != nil {
		t.Fatalf("GenerateDeviceToken failed: %v", err)
	}
	return token
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("Unexpected health body: %s", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "nadasuara_active_sessions") {
		t.Error("Expected engine collectors in metrics output")
	}
}

func TestDeviceAuth(t *testing.T) {
	env := setupTestServer(t, "")
	device := env.registerDevice(t)

	body := `{"serial_number":"SN-001","secret_key":"secret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/device/auth", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp DeviceAuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if resp.Token == "" {
		t.Error("Expected a token")
	}
	if resp.DeviceID != device.ID {
		t.Errorf("Expected device ID %s, got %s", device.ID, resp.DeviceID)
	}

	claims, err := env.authn.ValidateToken(resp.Token)
	if err != nil {
		t.Fatalf("Issued token does not validate: %v", err)
	}
	if claims.DeviceID != device.ID {
		t.Errorf("Token claims device %s, expected %s", claims.DeviceID, device.ID)
	}
}

func TestDeviceAuth_Rejections(t *testing.T) {
	env := setupTestServer(t, "")
	env.registerDevice(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"wrong secret", `{"serial_number":"SN-001","secret_key":"nope"}`, http.StatusUnauthorized},
		{"unknown serial", `{"serial_number":"SN-999","secret_key":"secret"}`, http.StatusUnauthorized},
		{"missing fields", `{"serial_number":"SN-001"}`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/device/auth", strings.NewReader(tc.body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		env.e.ServeHTTP(rec, req)

		if rec.Code != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
}

func TestListTranscripts(t *testing.T) {
	env := setupTestServer(t, "")
	device := env.registerDevice(t)
	token := env.deviceToken(t, device.ID)

	env.archive.Save(context.Background(), &entities.Transcript{
		SessionID: "sess-1",
		DeviceID:  device.ID,
		StartedAt: time.Now(),
		EndedAt:   time.Now(),
		FullText:  "archived words",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transcripts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp TranscriptListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(resp.Transcripts) != 1 {
		t.Fatalf("Expected 1 transcript, got %d", len(resp.Transcripts))
	}
	if resp.Transcripts[0].FullText != "archived words" {
		t.Errorf("Unexpected transcript text: %s", resp.Transcripts[0].FullText)
	}
}

func TestListTranscripts_RequiresToken(t *testing.T) {
	env := setupTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transcripts", nil)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}
}

func TestTranscribe_SingleShot(t *testing.T) {
	env := setupTestServer(t, "the whole clip at once")
	device := env.registerDevice(t)
	token := env.deviceToken(t, device.ID)

	samples := make([]int16, audio.SampleRate) // 1 second
	wav := audio.EncodeWAV(samples, audio.SampleRate)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcribe?language=en", bytes.NewReader(wav))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp TranscribeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if resp.Text != "the whole clip at once" {
		t.Errorf("Unexpected text: %s", resp.Text)
	}
	if resp.Duration != 1.0 {
		t.Errorf("Expected duration 1.0, got %f", resp.Duration)
	}
}

func TestTranscribe_BadPayloads(t *testing.T) {
	env := setupTestServer(t, "")
	device := env.registerDevice(t)
	token := env.deviceToken(t, device.ID)

	cases := []struct {
		name string
		body []byte
		want int
	}{
		{"empty body", nil, http.StatusBadRequest},
		{"odd byte count", []byte{1, 2, 3}, http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transcribe", bytes.NewReader(tc.body))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		env.e.ServeHTTP(rec, req)

		if rec.Code != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
}

func TestWebSocketRoute_RequiresToken(t *testing.T) {
	env := setupTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}
}
