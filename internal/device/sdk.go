package device

// Handle is an opaque reference to a vendor resource (device or template
// database). The zero value is never a valid handle.
type Handle uintptr

// LightColor identifies one of the device's indicator lights.
type LightColor string

// Supported indicator colours. The device exposes exactly these three.
const (
	LightWhite LightColor = "white"
	LightGreen LightColor = "green"
	LightRed   LightColor = "red"
)

// Valid reports whether the colour is one the device supports.
func (c LightColor) Valid() bool {
	switch c {
	case LightWhite, LightGreen, LightRed:
		return true
	}
	return false
}

// ParseLightColor validates a caller-supplied colour string.
func ParseLightColor(s string) (LightColor, error) {
	c := LightColor(s)
	if !c.Valid() {
		return "", ErrInvalidLightColor
	}
	return c, nil
}

// SDK abstracts the vendor fingerprint driver. All methods return a raw
// vendor Code which callers translate through CodeError; acquisition
// methods additionally return payloads valid only when the code is a
// success.
//
// Implementations are not required to be safe for concurrent use. The
// Session serializes every call.
type SDK interface {
	// Init starts the vendor runtime and returns the number of connected
	// devices. A negative value is a vendor error code.
	Init() int

	// Terminate shuts down the vendor runtime.
	Terminate() Code

	// OpenDevice opens the device at the given index and returns its handle.
	OpenDevice(index int) (Handle, Code)

	// CloseDevice closes a previously opened device handle.
	CloseDevice(h Handle) Code

	// SerialNumber reads the hardware serial of an open device.
	SerialNumber(h Handle) (string, Code)

	// ImageDimensions reads the native capture width and height in pixels.
	ImageDimensions(h Handle) (width, height int, code Code)

	// DBInit allocates the template comparison database handle.
	DBInit() (Handle, Code)

	// DBFree releases a template comparison database handle.
	DBFree(h Handle) Code

	// AcquireTemplate performs one blocking acquisition returning both the
	// proprietary template and the raw 8-bit grayscale image.
	AcquireTemplate(h Handle) (template, image []byte, code Code)

	// AcquireImage performs one blocking acquisition filling a raw 8-bit
	// grayscale image buffer of the device's native dimensions.
	AcquireImage(h Handle) (image []byte, code Code)

	// Light flashes the indicated light for the given duration in seconds.
	Light(h Handle, color LightColor, seconds float64) Code
}
