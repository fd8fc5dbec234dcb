// Package output writes composed action shots to disk and stamps optional
// labels onto them.
package output

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"

	"github.com/bryanchriswhite/ActionShot/internal/logger"
)

// Encoder saves images choosing the format from the file extension.
type Encoder struct {
	// JPEGQuality in 1..100, used for .jpg/.jpeg output.
	JPEGQuality int
	// WebPQuality in 1..100, used for .webp output.
	WebPQuality int
}

// NewEncoder returns an encoder with sensible quality defaults.
func NewEncoder() *Encoder {
	return &Encoder{
		JPEGQuality: 90,
		WebPQuality: 90,
	}
}

// Save writes img to path. Supported extensions: .jpg/.jpeg, .png, .webp.
func (e *Encoder) Save(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: e.JPEGQuality})
	case ".png":
		err = png.Encode(f, img)
	case ".webp":
		err = webp.Encode(f, img, &webp.Options{Quality: float32(e.WebPQuality)})
	default:
		err = fmt.Errorf("unsupported output format %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	logger.WithComponent("output").Info().
		Str("path", path).
		Msg("Composite saved")
	return nil
}
