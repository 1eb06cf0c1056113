package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/fingerprint-core/internal/capture"
	"github.com/nerrad567/fingerprint-core/internal/device"
	"github.com/nerrad567/fingerprint-core/internal/infrastructure/config"
	"github.com/nerrad567/fingerprint-core/internal/infrastructure/database"
	"github.com/nerrad567/fingerprint-core/internal/infrastructure/logging"
	_ "github.com/nerrad567/fingerprint-core/migrations"
)

// testSDK is a controllable reader driver for handler tests.
type testSDK struct {
	acquireCode device.Code
	lightCalls  int
}

func (f *testSDK) Init() int                             { return 1 }
func (f *testSDK) Terminate() device.Code                { return device.CodeOK }
func (f *testSDK) CloseDevice(device.Handle) device.Code { return device.CodeOK }
func (f *testSDK) DBFree(device.Handle) device.Code      { return device.CodeOK }

func (f *testSDK) OpenDevice(int) (device.Handle, device.Code) {
	return device.Handle(1), device.CodeOK
}

func (f *testSDK) SerialNumber(device.Handle) (string, device.Code) {
	return "ZK900", device.CodeOK
}

func (f *testSDK) ImageDimensions(device.Handle) (int, int, device.Code) {
	return 300, 400, device.CodeOK
}

func (f *testSDK) DBInit() (device.Handle, device.Code) {
	return device.Handle(2), device.CodeOK
}

func (f *testSDK) AcquireTemplate(device.Handle) ([]byte, []byte, device.Code) {
	if !f.acquireCode.Success() {
		return nil, nil, f.acquireCode
	}
	return []byte("tpl"), make([]byte, 300*400), device.CodeOK
}

func (f *testSDK) AcquireImage(device.Handle) ([]byte, device.Code) {
	if !f.acquireCode.Success() {
		return nil, f.acquireCode
	}
	return make([]byte, 300*400), device.CodeOK
}

func (f *testSDK) Light(_ device.Handle, _ device.LightColor, _ float64) device.Code {
	f.lightCalls++
	return device.CodeOK
}

func testAPIConfig() config.APIConfig {
	return config.APIConfig{
		Host:        "127.0.0.1",
		Port:        0,
		Title:       "Fingerprint Core",
		Description: "Biometric capture service",
		Version:     "1.0.0",
	}
}

// newTestServer builds a server over a migrated temp database. When sdk
// is nil the server runs in degraded mode without a device session.
func newTestServer(t *testing.T, sdk device.SDK) (*Server, http.Handler, *database.DB) {
	t.Helper()

	logger := &logging.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	repo := capture.NewRepository(db)

	var session *device.Session
	var captures *capture.Service
	if sdk != nil {
		session = device.NewSession(sdk, logger, time.Second)
		t.Cleanup(func() {
			_ = session.Close()
		})
		if err := session.Initialize(0); err != nil {
			t.Fatalf("initializing session: %v", err)
		}
		captures = capture.NewService(session, repo, logger, capture.FormatPNG)
	}

	srv, err := New(Deps{
		Config:   testAPIConfig(),
		Device:   config.DeviceConfig{LightDuration: 0.5},
		Logger:   logger,
		Session:  session,
		Captures: captures,
		Store:    repo,
		DB:       db,
		Version:  "1.0.0",
	})
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	return srv, srv.buildRouter(), db
}

func doRequest(t *testing.T, router http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response body: %v\nbody: %s", err, rr.Body.String())
	}
	return body
}

func captureCount(t *testing.T, db *database.DB) int {
	t.Helper()
	var n int
	if err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM captures",
	).Scan(&n); err != nil {
		t.Fatalf("counting captures: %v", err)
	}
	return n
}

func TestRoot(t *testing.T) {
	_, router, _ := newTestServer(t, &testSDK{})

	rr := doRequest(t, router, http.MethodGet, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["title"] != "Fingerprint Core" {
		t.Errorf("title = %v", body["title"])
	}
}

func TestHealth(t *testing.T) {
	_, router, _ := newTestServer(t, &testSDK{})

	rr := doRequest(t, router, http.MethodGet, "/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["device_ready"] != true {
		t.Errorf("device_ready = %v, want true", body["device_ready"])
	}
	if body["database_ok"] != true {
		t.Errorf("database_ok = %v, want true", body["database_ok"])
	}
}

func TestDeviceStatus(t *testing.T) {
	_, router, _ := newTestServer(t, &testSDK{})

	rr := doRequest(t, router, http.MethodGet, "/device/status")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["is_connected"] != true {
		t.Errorf("is_connected = %v, want true", body["is_connected"])
	}
	if body["serial_number"] != "ZK900" {
		t.Errorf("serial_number = %v", body["serial_number"])
	}
	if body["image_width"] != float64(300) || body["image_height"] != float64(400) {
		t.Errorf("dimensions = %vx%v", body["image_width"], body["image_height"])
	}
}

func TestDeviceStatus_Degraded(t *testing.T) {
	_, router, _ := newTestServer(t, nil)

	rr := doRequest(t, router, http.MethodGet, "/device/status")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even without hardware", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["is_connected"] != false {
		t.Errorf("is_connected = %v, want false", body["is_connected"])
	}
	if body["device_count"] != float64(0) {
		t.Errorf("device_count = %v, want 0", body["device_count"])
	}
}

func TestCapture(t *testing.T) {
	_, router, db := newTestServer(t, &testSDK{})

	rr := doRequest(t, router, http.MethodGet, "/fingerprint/capture")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rr.Code, rr.Body.String())
	}

	body := decodeBody(t, rr)
	if body["device_serial"] != "ZK900" {
		t.Errorf("device_serial = %v", body["device_serial"])
	}
	if body["image_width"] != float64(300) || body["image_height"] != float64(400) {
		t.Errorf("dimensions = %vx%v, want 300x400", body["image_width"], body["image_height"])
	}

	// Stored payload decodes back to the capture dimensions.
	w, h, err := capture.DecodeImage(body["image_base64"].(string))
	if err != nil {
		t.Fatalf("decoding stored image: %v", err)
	}
	if w != 300 || h != 400 {
		t.Errorf("image round-trip = %dx%d, want 300x400", w, h)
	}

	if n := captureCount(t, db); n != 1 {
		t.Errorf("captures count = %d, want 1", n)
	}

	// The capture shows up as the latest record.
	rr = doRequest(t, router, http.MethodGet, "/fingerprint/latest")
	if rr.Code != http.StatusOK {
		t.Fatalf("latest status = %d, want 200", rr.Code)
	}
}

func TestCapture_NoFinger(t *testing.T) {
	sdk := &testSDK{acquireCode: device.CodeCaptureImageFailed}
	_, router, db := newTestServer(t, sdk)

	rr := doRequest(t, router, http.MethodGet, "/fingerprint/capture")
	if rr.Code != http.StatusRequestTimeout {
		t.Fatalf("status = %d, want 408", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["code"] != ErrCodeNoSample {
		t.Errorf("code = %v, want %s", body["code"], ErrCodeNoSample)
	}
	if n := captureCount(t, db); n != 0 {
		t.Errorf("captures count = %d, want 0 (no record on empty capture)", n)
	}
}

func TestCapture_Degraded(t *testing.T) {
	_, router, _ := newTestServer(t, nil)

	rr := doRequest(t, router, http.MethodGet, "/fingerprint/capture")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}

func TestCapture_HardFailure(t *testing.T) {
	sdk := &testSDK{acquireCode: device.CodeAborted}
	_, router, _ := newTestServer(t, sdk)

	rr := doRequest(t, router, http.MethodGet, "/fingerprint/capture")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}

func TestLatest_Empty(t *testing.T) {
	_, router, _ := newTestServer(t, &testSDK{})

	rr := doRequest(t, router, http.MethodGet, "/fingerprint/latest")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestHistory(t *testing.T) {
	_, router, _ := newTestServer(t, &testSDK{})

	for i := 0; i < 3; i++ {
		if rr := doRequest(t, router, http.MethodGet, "/fingerprint/capture"); rr.Code != http.StatusOK {
			t.Fatalf("capture %d status = %d", i, rr.Code)
		}
	}

	tests := []struct {
		name      string
		path      string
		wantCode  int
		wantCount float64
	}{
		{"default limit", "/fingerprint/history", http.StatusOK, 3},
		{"zero limit", "/fingerprint/history?limit=0", http.StatusOK, 0},
		{"partial", "/fingerprint/history?limit=2", http.StatusOK, 2},
		{"beyond stored count", "/fingerprint/history?limit=100", http.StatusOK, 3},
		{"invalid limit", "/fingerprint/history?limit=abc", http.StatusBadRequest, -1},
		{"negative limit", "/fingerprint/history?limit=-1", http.StatusBadRequest, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, router, http.MethodGet, tt.path)
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			if tt.wantCount >= 0 {
				body := decodeBody(t, rr)
				if body["count"] != tt.wantCount {
					t.Errorf("count = %v, want %v", body["count"], tt.wantCount)
				}
			}
		})
	}
}

func TestStats(t *testing.T) {
	_, router, _ := newTestServer(t, &testSDK{})

	if rr := doRequest(t, router, http.MethodGet, "/fingerprint/capture"); rr.Code != http.StatusOK {
		t.Fatalf("capture status = %d", rr.Code)
	}

	rr := doRequest(t, router, http.MethodGet, "/fingerprint/stats")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["total_captures"] != float64(1) {
		t.Errorf("total_captures = %v, want 1", body["total_captures"])
	}
	if body["device_count"] != float64(1) {
		t.Errorf("device_count = %v, want 1", body["device_count"])
	}
}

func TestDeviceInfo(t *testing.T) {
	_, router, _ := newTestServer(t, &testSDK{})

	rr := doRequest(t, router, http.MethodGet, "/device/info/ZK900")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status before capture = %d, want 404", rr.Code)
	}

	if rr := doRequest(t, router, http.MethodGet, "/fingerprint/capture"); rr.Code != http.StatusOK {
		t.Fatalf("capture status = %d", rr.Code)
	}

	rr = doRequest(t, router, http.MethodGet, "/device/info/ZK900")
	if rr.Code != http.StatusOK {
		t.Fatalf("status after capture = %d, want 200", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["device_serial"] != "ZK900" {
		t.Errorf("device_serial = %v", body["device_serial"])
	}
	if body["is_active"] != true {
		t.Errorf("is_active = %v, want true", body["is_active"])
	}
}

func TestLight(t *testing.T) {
	sdk := &testSDK{}
	_, router, _ := newTestServer(t, sdk)
	callsAfterInit := sdk.lightCalls

	rr := doRequest(t, router, http.MethodPost, "/fingerprint/light/green")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rr.Code, rr.Body.String())
	}
	if sdk.lightCalls != callsAfterInit+1 {
		t.Errorf("light calls = %d, want %d", sdk.lightCalls, callsAfterInit+1)
	}

	body := decodeBody(t, rr)
	if body["color"] != "green" {
		t.Errorf("color = %v, want green", body["color"])
	}
	if body["duration"] != 0.5 {
		t.Errorf("duration = %v, want default 0.5", body["duration"])
	}
}

func TestLight_InvalidColor(t *testing.T) {
	sdk := &testSDK{}
	_, router, _ := newTestServer(t, sdk)
	callsAfterInit := sdk.lightCalls

	rr := doRequest(t, router, http.MethodPost, "/fingerprint/light/purple")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if sdk.lightCalls != callsAfterInit {
		t.Error("invalid colour must never reach the device")
	}
}

func TestLight_CustomDuration(t *testing.T) {
	_, router, _ := newTestServer(t, &testSDK{})

	rr := doRequest(t, router, http.MethodPost, "/fingerprint/light/red?duration=2.5")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["duration"] != 2.5 {
		t.Errorf("duration = %v, want 2.5", body["duration"])
	}

	rr = doRequest(t, router, http.MethodPost, "/fingerprint/light/red?duration=-1")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status for negative duration = %d, want 400", rr.Code)
	}
}

func TestLight_Degraded(t *testing.T) {
	_, router, _ := newTestServer(t, nil)

	rr := doRequest(t, router, http.MethodPost, "/fingerprint/light/green")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	_, router, _ := newTestServer(t, &testSDK{})

	rr := doRequest(t, router, http.MethodGet, "/health")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated X-Request-ID header")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "client-id-1")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != "client-id-1" {
		t.Errorf("X-Request-ID = %q, want client-id-1", got)
	}
}
