// Package capture persists fingerprint acquisitions and orchestrates the
// capture-and-store cycle.
//
// The Repository owns the relational history: an append-only captures
// table and a per-serial device_info table refreshed on every successful
// capture. The Service glues the device session, the transport codec and
// the store together, writing the capture row and the device info upsert
// in one transaction so a failed cycle leaves no partial state.
package capture
