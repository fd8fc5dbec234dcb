package pipeline

import (
	"image"

	"github.com/disintegration/imaging"
)

// Normalize crops the frame to a centered square (side = min(width, height))
// and resizes it to size×size, the resolution the segmentation model expects.
func Normalize(img image.Image, size int) *image.NRGBA {
	bounds := img.Bounds()
	side := bounds.Dx()
	if bounds.Dy() < side {
		side = bounds.Dy()
	}

	square := imaging.CropCenter(img, side, side)
	return imaging.Resize(square, size, size, imaging.Linear)
}
