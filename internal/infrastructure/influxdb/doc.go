// Package influxdb records capture telemetry in an InfluxDB v2 instance.
//
// Telemetry is optional. When disabled in config Connect returns
// ErrDisabled and the service runs without it; when enabled, writes are
// batched and non-blocking so the capture path never waits on the
// time-series store. Points carry capture metadata (serial, dimensions,
// payload sizes) for dashboarding reader activity; biometric payloads
// never reach this package.
package influxdb
