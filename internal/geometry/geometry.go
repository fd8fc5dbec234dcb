// Package geometry provides the bounding-box and vector math used by the
// frame selector: minimal enclosing rectangles over segmentation masks,
// rectangle centers, and direction normalization.
package geometry

import (
	"image"
	"math"
)

// Point is a 2D point in mask coordinates.
type Point struct {
	X float64
	Y float64
}

// Vector is a 2D displacement.
type Vector struct {
	X float64
	Y float64
}

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Vector {
	return Vector{X: p.X - q.X, Y: p.Y - q.Y}
}

// Normalize returns the unit vector in the same direction.
// The zero vector maps to the zero vector.
func (v Vector) Normalize() Vector {
	length := math.Hypot(v.X, v.Y)
	if length == 0 {
		return Vector{}
	}
	return Vector{X: v.X / length, Y: v.Y / length}
}

// Box is an axis-aligned rectangle enclosing the non-zero pixels of a mask.
type Box struct {
	X int
	Y int
	W int
	H int
}

// Center returns the box center.
func (b Box) Center() Point {
	return Point{
		X: float64(b.X) + float64(b.W)/2,
		Y: float64(b.Y) + float64(b.H)/2,
	}
}

// BoundingBox scans the mask for the minimal rectangle enclosing all
// non-zero pixels. Returns false when the mask is entirely zero.
func BoundingBox(mask *image.Gray) (Box, bool) {
	bounds := mask.Bounds()
	minX, minY := bounds.Max.X, bounds.Max.Y
	maxX, maxY := bounds.Min.X-1, bounds.Min.Y-1

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := mask.Pix[(y-bounds.Min.Y)*mask.Stride : (y-bounds.Min.Y)*mask.Stride+bounds.Dx()]
		for x, v := range row {
			if v == 0 {
				continue
			}
			px := bounds.Min.X + x
			if px < minX {
				minX = px
			}
			if px > maxX {
				maxX = px
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if maxX < minX {
		return Box{}, false
	}
	return Box{
		X: minX,
		Y: minY,
		W: maxX - minX + 1,
		H: maxY - minY + 1,
	}, true
}
