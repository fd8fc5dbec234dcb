package output

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	labelPadding  = 5
	labelFontSize = 13 // basicfont size
)

// Annotate returns a copy of img with a small label box drawn in the
// bottom-left corner.
func Annotate(img *image.NRGBA, text string) *image.NRGBA {
	out := image.NewNRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	if text == "" {
		return out
	}

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(color.NRGBA{255, 255, 255, 255}),
		Face: face,
	}
	textWidthPx := int(d.MeasureString(text) >> 6)

	boxW := textWidthPx + labelPadding*2
	boxH := labelFontSize + labelPadding*2
	boxX := out.Bounds().Min.X + labelPadding
	boxY := out.Bounds().Max.Y - boxH - labelPadding

	bg := image.Rect(boxX, boxY, boxX+boxW, boxY+boxH)
	draw.Draw(out, bg, &image.Uniform{color.NRGBA{0, 0, 0, 180}}, image.Point{}, draw.Over)

	d.Dot = fixed.Point26_6{
		X: fixed.I(boxX + labelPadding),
		Y: fixed.I(boxY + labelPadding + labelFontSize - 2),
	}
	d.DrawString(text)

	return out
}
