// Package selector implements the best-frame selection algorithm: it infers
// the subject's dominant direction of motion from the mask sequence, walks
// the sequence backward picking frames whose subjects are spread out along
// that axis, and composites the picks into a single action-shot image.
package selector

import (
	"image"
	"math"

	"github.com/bryanchriswhite/ActionShot/internal/geometry"
)

// oversizedRatio rejects masks whose bounding box covers this fraction or
// more of the mask on either axis. Such masks are segmentation false
// positives that captured the whole frame.
const oversizedRatio = 0.7

// spacingFactor scales the minimum center spacing between consecutive picks.
const spacingFactor = 0.5

// maskBox wraps a mask's bounding box, absent for all-zero masks.
type maskBox struct {
	box geometry.Box
	ok  bool
}

func boxes(masks []*image.Gray) []maskBox {
	out := make([]maskBox, len(masks))
	for i, m := range masks {
		out[i].box, out[i].ok = geometry.BoundingBox(m)
	}
	return out
}

// valid reports whether the box exists and is strictly under the oversized
// threshold on both axes.
func (mb maskBox) valid(maskW, maskH int) bool {
	if !mb.ok {
		return false
	}
	return float64(mb.box.W) < oversizedRatio*float64(maskW) &&
		float64(mb.box.H) < oversizedRatio*float64(maskH)
}

// DominantDirection infers the principal axis of subject displacement from
// the mask sequence. The first mask with any bounding box supplies the start
// center; the last valid mask supplies the end center. The result is the
// normalized start-minus-end vector, or the zero vector when either end is
// missing or the centers coincide.
func DominantDirection(masks []*image.Gray) geometry.Vector {
	return dominantDirection(masks, boxes(masks))
}

func dominantDirection(masks []*image.Gray, bs []maskBox) geometry.Vector {
	var start, end geometry.Point
	haveStart, haveEnd := false, false

	for _, mb := range bs {
		if mb.ok {
			start = mb.box.Center()
			haveStart = true
			break
		}
	}
	for i := len(bs) - 1; i >= 0; i-- {
		b := masks[i].Bounds()
		if bs[i].valid(b.Dx(), b.Dy()) {
			end = bs[i].box.Center()
			haveEnd = true
			break
		}
	}

	if !haveStart || !haveEnd || start == end {
		return geometry.Vector{}
	}
	return start.Sub(end).Normalize()
}

// SelectFrames returns the indices of the frames to composite, in
// chronological order. The walk runs backward from the most recent mask:
// the first qualifying mask is always selected; each earlier qualifying mask
// is selected only when its center is spaced from the previous pick by more
// than half the mean half-size of the two boxes along the motion axis.
func SelectFrames(masks []*image.Gray) []int {
	bs := boxes(masks)
	direction := dominantDirection(masks, bs)

	// Axis with the larger direction magnitude; ties (and the zero
	// vector) fall to x.
	useX := math.Abs(direction.X) >= math.Abs(direction.Y)

	var selected []int
	var prev geometry.Box
	havePrev := false

	for i := len(masks) - 1; i >= 0; i-- {
		b := masks[i].Bounds()
		if !bs[i].valid(b.Dx(), b.Dy()) {
			continue
		}
		cur := bs[i].box

		if !havePrev {
			selected = append(selected, i)
			prev = cur
			havePrev = true
			continue
		}

		var distance, bound float64
		if useX {
			distance = math.Abs(prev.Center().X - cur.Center().X)
			bound = float64(prev.W+cur.W) / 4
		} else {
			distance = math.Abs(prev.Center().Y - cur.Center().Y)
			bound = float64(prev.H+cur.H) / 4
		}

		// Strict inequality: a pick exactly at the bound is rejected.
		if distance > bound*spacingFactor {
			selected = append(selected, i)
			prev = cur
		}
	}

	// Restore chronological order.
	for i, j := 0, len(selected)-1; i < j; i, j = i+1, j-1 {
		selected[i], selected[j] = selected[j], selected[i]
	}
	return selected
}
