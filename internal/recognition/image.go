package recognition

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	_ "image/jpeg"
	_ "image/png"
)

// DefaultMaxPixels bounds decoded frames when the configuration does
// not set a cap. 4096x4096 covers every sensor the fleet ships.
const DefaultMaxPixels = 4096 * 4096

var (
	// ErrEmptyImage is returned when the request carried no image data
	ErrEmptyImage = errors.New("image data is required")

	// ErrImageTooLarge is returned when the decoded frame exceeds the
	// configured pixel cap
	ErrImageTooLarge = errors.New("image exceeds pixel limit")
)

// DecodeImage decodes a base64 frame, optionally wrapped in a data URL
// (data:image/jpeg;base64,...). The dimensions are checked against
// maxPixels before full decode so an oversized upload cannot balloon
// memory.
func DecodeImage(encoded string, maxPixels int) (image.Image, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrEmptyImage
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	// Strip a data URL prefix if present
	if strings.HasPrefix(encoded, "data:") {
		idx := strings.Index(encoded, ",")
		if idx < 0 {
			return nil, errors.New("malformed data URL")
		}
		encoded = encoded[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unsupported image format: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPixels {
		return nil, ErrImageTooLarge
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return img, nil
}
