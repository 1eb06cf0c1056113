// Package device owns the lifecycle of one fingerprint capture device.
//
// The vendor runtime is not reentrant: it supports exactly one open
// session per process, and the hardware link tolerates a single
// in-flight operation. Session enforces both invariants, serializing
// every call behind one mutex and guarding the process-wide slot.
//
// The vendor driver is abstracted behind the SDK interface so tests and
// hardware-free deployments can substitute a simulated driver (see the
// sim subpackage). Vendor return codes are translated into typed errors
// via CodeError; the distinguished no-finger outcome surfaces as the
// ErrNoFinger sentinel rather than a fault.
package device
