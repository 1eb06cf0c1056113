package mqtt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/fingerprint-core/internal/capture"
	"github.com/nerrad567/fingerprint-core/internal/infrastructure/config"
)

func testMQTTConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "localhost",
			Port:     1883,
			ClientID: "fingerprint-core-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     60,
		},
	}
}

func TestTopics(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"system status", Topics{}.SystemStatus(), "fingerprint/system/status"},
		{"capture event", Topics{}.CaptureEvent(), "fingerprint/events/capture"},
		{"device status", Topics{}.DeviceStatus("ZK001"), "fingerprint/device/ZK001/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("topic = %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testMQTTConfig()
	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 {
		t.Fatalf("expected 1 broker, got %d", len(opts.Servers))
	}
	if got := opts.Servers[0].String(); got != "tcp://localhost:1883" {
		t.Errorf("broker URL = %q, want tcp://localhost:1883", got)
	}
	if opts.ClientID != "fingerprint-core-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if !opts.AutoReconnect {
		t.Error("expected auto-reconnect enabled")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testMQTTConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883
	opts := buildClientOptions(cfg)

	if got := opts.Servers[0].Scheme; got != "ssl" {
		t.Errorf("scheme = %q, want ssl", got)
	}
	if opts.TLSConfig == nil {
		t.Fatal("expected TLS config")
	}
}

func TestBuildClientOptions_Auth(t *testing.T) {
	cfg := testMQTTConfig()
	cfg.Auth.Username = "svc"
	cfg.Auth.Password = "secret"
	opts := buildClientOptions(cfg)

	if opts.Username != "svc" || opts.Password != "secret" {
		t.Error("expected credentials applied")
	}
}

func TestConfigureLWT(t *testing.T) {
	cfg := testMQTTConfig()
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)

	if !opts.WillEnabled {
		t.Fatal("expected LWT enabled")
	}
	if opts.WillTopic != "fingerprint/system/status" {
		t.Errorf("will topic = %q", opts.WillTopic)
	}
	if !opts.WillRetained {
		t.Error("expected retained LWT")
	}
	if !strings.Contains(string(opts.WillPayload), `"status":"offline"`) {
		t.Errorf("will payload = %q, want offline status", opts.WillPayload)
	}
}

func TestPublish_Validation(t *testing.T) {
	c := &Client{cfg: testMQTTConfig()}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"invalid qos", "fingerprint/events/capture", []byte("x"), 3, ErrInvalidQoS},
		{"oversized payload", "fingerprint/events/capture", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "fingerprint/events/capture", []byte("x"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	c := &Client{cfg: testMQTTConfig()}

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() with cancelled context error = %v", err)
	}
}

func TestPublishDeviceStatus_NotConnected(t *testing.T) {
	c := &Client{cfg: testMQTTConfig()}

	if err := c.PublishDeviceStatus("ZK001", true); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishDeviceStatus() error = %v, want ErrNotConnected", err)
	}
}

func TestCapturePublisher_NotConnected(t *testing.T) {
	pub := NewCapturePublisher(&Client{cfg: testMQTTConfig()}, 1)

	err := pub.PublishCapture(context.Background(), &capture.Record{
		ID:           1,
		DeviceSerial: "ZK001",
		ImageWidth:   300,
		ImageHeight:  400,
	})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishCapture() error = %v, want ErrNotConnected", err)
	}
}
