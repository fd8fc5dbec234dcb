package geometry

import (
	"image"
	"image/color"
	"math"
	"testing"
)

// maskWithRect creates a w×h mask with a filled rectangle of non-zero pixels
func maskWithRect(w, h int, rect image.Rectangle) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, w, h))
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			m.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return m
}

func TestBoundingBoxEmptyMask(t *testing.T) {
	m := image.NewGray(image.Rect(0, 0, 16, 16))

	if _, ok := BoundingBox(m); ok {
		t.Error("expected no bounding box for an all-zero mask")
	}
}

func TestBoundingBoxSinglePixel(t *testing.T) {
	m := image.NewGray(image.Rect(0, 0, 10, 10))
	m.SetGray(3, 7, color.Gray{Y: 255})

	box, ok := BoundingBox(m)
	if !ok {
		t.Fatal("expected a bounding box")
	}
	want := Box{X: 3, Y: 7, W: 1, H: 1}
	if box != want {
		t.Errorf("got %+v, want %+v", box, want)
	}
}

func TestBoundingBoxRect(t *testing.T) {
	m := maskWithRect(32, 32, image.Rect(4, 6, 12, 20))

	box, ok := BoundingBox(m)
	if !ok {
		t.Fatal("expected a bounding box")
	}
	want := Box{X: 4, Y: 6, W: 8, H: 14}
	if box != want {
		t.Errorf("got %+v, want %+v", box, want)
	}
}

func TestBoundingBoxScatteredPixels(t *testing.T) {
	m := image.NewGray(image.Rect(0, 0, 20, 20))
	m.SetGray(2, 15, color.Gray{Y: 255})
	m.SetGray(18, 3, color.Gray{Y: 255})

	box, ok := BoundingBox(m)
	if !ok {
		t.Fatal("expected a bounding box")
	}
	want := Box{X: 2, Y: 3, W: 17, H: 13}
	if box != want {
		t.Errorf("got %+v, want %+v", box, want)
	}
}

func TestBoxCenter(t *testing.T) {
	box := Box{X: 2, Y: 4, W: 6, H: 8}
	c := box.Center()
	if c.X != 5 || c.Y != 8 {
		t.Errorf("got center (%v, %v), want (5, 8)", c.X, c.Y)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Vector
		want Vector
	}{
		{"zero maps to zero", Vector{}, Vector{}},
		{"unit x unchanged", Vector{X: 1}, Vector{X: 1}},
		{"negative x", Vector{X: -10}, Vector{X: -1}},
		{"diagonal", Vector{X: 3, Y: 4}, Vector{X: 0.6, Y: 0.8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			if math.Abs(got.X-tt.want.X) > 1e-9 || math.Abs(got.Y-tt.want.Y) > 1e-9 {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalizeLength(t *testing.T) {
	v := Vector{X: -7.3, Y: 2.1}.Normalize()
	length := math.Hypot(v.X, v.Y)
	if math.Abs(length-1) > 1e-9 {
		t.Errorf("normalized length = %v, want 1", length)
	}
}
