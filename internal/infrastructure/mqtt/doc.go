// Package mqtt publishes capture service events to an MQTT broker.
//
// The broker is an optional collaborator: when disabled in config the
// service runs without it, and a publish failure never fails a capture.
// The client maintains one connection with automatic reconnection, a
// retained online/offline status on fingerprint/system/status (backed
// by a Last Will for crash detection), and a per-capture event on
// fingerprint/events/capture.
//
// Capture events carry metadata only. Image and template payloads are
// biometric data and never leave the database through this package.
package mqtt
