package pipeline

import (
	"image"
	"image/color"
	"testing"
)

func TestNormalizeLandscape(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 640, 480))
	out := Normalize(src, 448)

	if out.Bounds().Dx() != 448 || out.Bounds().Dy() != 448 {
		t.Errorf("bounds = %v, want 448x448", out.Bounds())
	}
}

func TestNormalizePortrait(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 480, 640))
	out := Normalize(src, 32)

	if out.Bounds().Dx() != 32 || out.Bounds().Dy() != 32 {
		t.Errorf("bounds = %v, want 32x32", out.Bounds())
	}
}

func TestNormalizeCropIsCentered(t *testing.T) {
	// 96x32 image: left third red, middle third green, right third blue.
	// The centered 32x32 square crop must keep only the green band.
	src := image.NewRGBA(image.Rect(0, 0, 96, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 96; x++ {
			switch {
			case x < 32:
				src.Set(x, y, color.RGBA{R: 255, A: 255})
			case x < 64:
				src.Set(x, y, color.RGBA{G: 255, A: 255})
			default:
				src.Set(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}

	out := Normalize(src, 32)
	for _, x := range []int{0, 16, 31} {
		px := out.NRGBAAt(x, 16)
		if px.G < 200 || px.R > 50 || px.B > 50 {
			t.Errorf("pixel at (%d, 16) = %+v, want the green center band", x, px)
		}
	}
}

func TestNormalizeSquarePassThrough(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))
	out := Normalize(src, 100)

	if out.Bounds().Dx() != 100 || out.Bounds().Dy() != 100 {
		t.Errorf("bounds = %v, want 100x100", out.Bounds())
	}
}
