package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/bmp"
)

// Transport formats for the image payload. PNG is the primary lossless
// encoding; BMP is the fallback when the primary encoder fails.
const (
	FormatPNG = "png"
	FormatBMP = "bmp"
)

// EncodeImage converts a raw 8-bit grayscale frame into a base64 transport
// string. The preferred format is tried first; if its encoder fails the
// other lossless format takes over, so both paths produce a decodable
// image with the original pixel dimensions.
func EncodeImage(raw []byte, width, height int, format string) (string, error) {
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("invalid image dimensions %dx%d", width, height)
	}
	if len(raw) != width*height {
		return "", fmt.Errorf("image payload is %d bytes, want %d for %dx%d",
			len(raw), width*height, width, height)
	}

	img := &image.Gray{
		Pix:    raw,
		Stride: width,
		Rect:   image.Rect(0, 0, width, height),
	}

	primary, fallback := png.Encode, bmp.Encode
	if format == FormatBMP {
		primary, fallback = bmp.Encode, png.Encode
	}

	var buf bytes.Buffer
	if err := primary(&buf, img); err != nil {
		buf.Reset()
		if fbErr := fallback(&buf, img); fbErr != nil {
			return "", fmt.Errorf("encoding image: %w (fallback: %v)", err, fbErr)
		}
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// EncodeTemplate converts the proprietary template bytes into their
// base64 transport string. The payload is opaque and never re-encoded.
func EncodeTemplate(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeImage decodes a transport string back into pixel dimensions.
// Used to verify round-trip integrity of stored payloads.
func DecodeImage(encoded string) (width, height int, err error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return 0, 0, fmt.Errorf("decoding base64: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decoding image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
