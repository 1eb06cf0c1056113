package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/nerrad567/fingerprint-core/internal/device"
	"github.com/nerrad567/fingerprint-core/internal/infrastructure/logging"
)

type fakeSession struct {
	template []byte
	image    []byte
	err      error
	serial   string
	width    int
	height   int
}

func (f *fakeSession) Capture(context.Context) ([]byte, []byte, error) {
	return f.template, f.image, f.err
}

func (f *fakeSession) Serial() string         { return f.serial }
func (f *fakeSession) Dimensions() (int, int) { return f.width, f.height }

type fakeStore struct {
	Store

	stored []*Record
	err    error
}

func (f *fakeStore) StoreCapture(_ context.Context, rec *Record) error {
	if f.err != nil {
		return f.err
	}
	rec.ID = int64(len(f.stored) + 1)
	f.stored = append(f.stored, rec)
	return nil
}

type fakePublisher struct {
	published []*Record
	err       error
}

func (f *fakePublisher) PublishCapture(_ context.Context, rec *Record) error {
	f.published = append(f.published, rec)
	return f.err
}

type fakeTelemetry struct {
	written []*Record
}

func (f *fakeTelemetry) WriteCaptureMetric(rec *Record) {
	f.written = append(f.written, rec)
}

func discardLogger() *logging.Logger {
	return &logging.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func healthySession() *fakeSession {
	raw := make([]byte, 300*400)
	for i := range raw {
		raw[i] = byte(i % 255)
	}
	return &fakeSession{
		template: []byte("template-bytes"),
		image:    raw,
		serial:   "ZK001",
		width:    300,
		height:   400,
	}
}

func TestCaptureAndStore(t *testing.T) {
	session := healthySession()
	store := &fakeStore{}
	svc := NewService(session, store, discardLogger(), FormatPNG)

	rec, err := svc.CaptureAndStore(context.Background())
	if err != nil {
		t.Fatalf("CaptureAndStore() error = %v", err)
	}

	if len(store.stored) != 1 {
		t.Fatalf("stored %d records, want 1", len(store.stored))
	}
	if rec.ID != 1 {
		t.Errorf("ID = %d, want 1", rec.ID)
	}
	if rec.DeviceSerial != "ZK001" {
		t.Errorf("DeviceSerial = %q, want ZK001", rec.DeviceSerial)
	}
	if rec.ImageWidth != 300 || rec.ImageHeight != 400 {
		t.Errorf("dimensions = %dx%d, want 300x400", rec.ImageWidth, rec.ImageHeight)
	}
	if rec.CapturedAt.IsZero() {
		t.Error("expected populated CapturedAt")
	}

	// Stored payload must decode back to the capture dimensions.
	w, h, err := DecodeImage(rec.ImageBase64)
	if err != nil {
		t.Fatalf("DecodeImage() error = %v", err)
	}
	if w != 300 || h != 400 {
		t.Errorf("image round-trip = %dx%d, want 300x400", w, h)
	}
}

func TestCaptureAndStore_NoFingerPassesThrough(t *testing.T) {
	session := healthySession()
	session.err = device.ErrNoFinger
	store := &fakeStore{}
	svc := NewService(session, store, discardLogger(), FormatPNG)

	_, err := svc.CaptureAndStore(context.Background())
	if !errors.Is(err, device.ErrNoFinger) {
		t.Fatalf("CaptureAndStore() error = %v, want ErrNoFinger", err)
	}
	if len(store.stored) != 0 {
		t.Error("no record must be written on a no-finger outcome")
	}
}

func TestCaptureAndStore_EncodeFailureSkipsStore(t *testing.T) {
	session := healthySession()
	session.image = []byte("wrong size")
	store := &fakeStore{}
	svc := NewService(session, store, discardLogger(), FormatPNG)

	if _, err := svc.CaptureAndStore(context.Background()); err == nil {
		t.Fatal("expected encode error")
	}
	if len(store.stored) != 0 {
		t.Error("no record must be written when encoding fails")
	}
}

func TestCaptureAndStore_StoreFailurePropagates(t *testing.T) {
	session := healthySession()
	store := &fakeStore{err: errors.New("disk full")}
	svc := NewService(session, store, discardLogger(), FormatPNG)

	_, err := svc.CaptureAndStore(context.Background())
	if err == nil || !errors.Is(err, store.err) {
		t.Fatalf("CaptureAndStore() error = %v, want wrapped store error", err)
	}
}

func TestCaptureAndStore_Notifications(t *testing.T) {
	session := healthySession()
	store := &fakeStore{}
	pub := &fakePublisher{}
	tel := &fakeTelemetry{}
	svc := NewService(session, store, discardLogger(), FormatPNG,
		WithPublisher(pub), WithTelemetry(tel))

	rec, err := svc.CaptureAndStore(context.Background())
	if err != nil {
		t.Fatalf("CaptureAndStore() error = %v", err)
	}
	if len(pub.published) != 1 || pub.published[0] != rec {
		t.Error("expected capture published once")
	}
	if len(tel.written) != 1 || tel.written[0] != rec {
		t.Error("expected telemetry written once")
	}
}

func TestCaptureAndStore_PublishFailureIsNonFatal(t *testing.T) {
	session := healthySession()
	store := &fakeStore{}
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewService(session, store, discardLogger(), FormatPNG, WithPublisher(pub))

	if _, err := svc.CaptureAndStore(context.Background()); err != nil {
		t.Fatalf("CaptureAndStore() error = %v, publish failures must not fail the capture", err)
	}
	if len(store.stored) != 1 {
		t.Errorf("stored %d records, want 1", len(store.stored))
	}
}
