// Package sim provides a software implementation of the vendor driver
// for development and testing without hardware attached.
package sim

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/nerrad567/fingerprint-core/internal/device"
)

// Default native dimensions of the simulated sensor.
const (
	DefaultWidth  = 300
	DefaultHeight = 400
)

const (
	deviceHandle = device.Handle(1)
	dbHandle     = device.Handle(2)
)

// Driver is a simulated fingerprint sensor. Every acquisition succeeds
// and returns a synthetic ridge pattern; the pattern varies per capture
// so consecutive records are distinguishable.
type Driver struct {
	// Width and Height override the native dimensions when non-zero.
	Width  int
	Height int

	// Serial reported by the simulated device.
	Serial string

	captures atomic.Uint64
}

// New returns a simulated driver with default dimensions.
func New() *Driver {
	return &Driver{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		Serial: "SIM0001",
	}
}

// Init reports a single connected device.
func (d *Driver) Init() int { return 1 }

// Terminate is a no-op.
func (d *Driver) Terminate() device.Code { return device.CodeOK }

// OpenDevice accepts index 0 only, matching a single attached sensor.
func (d *Driver) OpenDevice(index int) (device.Handle, device.Code) {
	if index != 0 {
		return 0, device.CodeInvalidParameter
	}
	return deviceHandle, device.CodeOK
}

// CloseDevice is a no-op.
func (d *Driver) CloseDevice(device.Handle) device.Code { return device.CodeOK }

// SerialNumber returns the configured serial.
func (d *Driver) SerialNumber(device.Handle) (string, device.Code) {
	return d.Serial, device.CodeOK
}

// ImageDimensions returns the simulated sensor dimensions.
func (d *Driver) ImageDimensions(device.Handle) (int, int, device.Code) {
	return d.Width, d.Height, device.CodeOK
}

// DBInit returns a fixed template database handle.
func (d *Driver) DBInit() (device.Handle, device.Code) { return dbHandle, device.CodeOK }

// DBFree is a no-op.
func (d *Driver) DBFree(device.Handle) device.Code { return device.CodeOK }

// AcquireTemplate returns a synthetic template and ridge image.
func (d *Driver) AcquireTemplate(device.Handle) ([]byte, []byte, device.Code) {
	n := d.captures.Add(1)
	return d.template(n), d.ridgeImage(n), device.CodeOK
}

// AcquireImage returns a synthetic ridge image.
func (d *Driver) AcquireImage(device.Handle) ([]byte, device.Code) {
	n := d.captures.Add(1)
	return d.ridgeImage(n), device.CodeOK
}

// Light always succeeds.
func (d *Driver) Light(_ device.Handle, _ device.LightColor, _ float64) device.Code {
	return device.CodeOK
}

// ridgeImage renders concentric sinusoidal ridges resembling a
// fingerprint whorl, phase-shifted per capture.
func (d *Driver) ridgeImage(seq uint64) []byte {
	w, h := d.Width, d.Height
	img := make([]byte, w*h)

	cx := float64(w) / 2
	cy := float64(h) / 2
	phase := float64(seq) * 0.7

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			r := math.Sqrt(dx*dx + dy*dy)
			v := math.Sin(r/4 + phase)
			img[y*w+x] = byte(128 + 100*v)
		}
	}
	return img
}

// template fabricates an opaque payload tagged with the capture sequence.
func (d *Driver) template(seq uint64) []byte {
	buf := make([]byte, 512)
	copy(buf, []byte(fmt.Sprintf("SIMTPL:%s:", d.Serial)))
	binary.BigEndian.PutUint64(buf[len(buf)-8:], seq)
	return buf
}
