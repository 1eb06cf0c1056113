package influxdb

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/fingerprint-core/internal/capture"
	"github.com/nerrad567/fingerprint-core/internal/infrastructure/config"
)

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	c := &Client{}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestWriteCaptureMetric_DisconnectedIsNoop(t *testing.T) {
	// A disconnected client must drop points silently rather than panic
	// on the nil write API.
	c := &Client{}
	c.WriteCaptureMetric(&capture.Record{
		ID:           1,
		DeviceSerial: "ZK001",
		ImageWidth:   300,
		ImageHeight:  400,
	})
	c.WriteDeviceStatus("ZK001", false)
	c.WritePoint("custom", nil, map[string]interface{}{"v": 1})
}

func TestClose_NilClient(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v", err)
	}
}

func TestFlush_Disconnected(t *testing.T) {
	c := &Client{}
	c.Flush() // must not panic
}
