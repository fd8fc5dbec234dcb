package selector

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/bryanchriswhite/ActionShot/internal/logger"
)

// Status describes the outcome of a composition.
type Status string

const (
	// StatusSuccess means at least one frame passed the selection filters.
	StatusSuccess Status = "success"
	// StatusDegraded means no frame qualified and the most recent
	// processed frame was returned as a fallback.
	StatusDegraded Status = "degraded"
)

// Result is the outcome of Composite.
type Result struct {
	Image    *image.NRGBA
	Status   Status
	Selected []int
}

// Composite selects frames via SelectFrames and paints the subject of every
// selected frame onto a single image. The background is the frame at the
// last selected index; subjects are painted in chronological order so later
// positions overwrite earlier ones where they overlap.
//
// An empty selection falls back to the most recent processed frame with a
// degraded status. Frames and masks are index-aligned; masks may be the
// shorter sequence and only the masked prefix participates in selection.
func Composite(frames []*image.NRGBA, masks []*image.Gray) (Result, error) {
	if len(frames) == 0 {
		return Result{}, fmt.Errorf("no processed frames to composite")
	}
	if len(masks) > len(frames) {
		return Result{}, fmt.Errorf("mask count %d exceeds frame count %d", len(masks), len(frames))
	}

	selected := SelectFrames(masks)
	if len(selected) == 0 {
		logger.WithComponent("selector").Warn().
			Int("frames", len(frames)).
			Int("masks", len(masks)).
			Msg("No frame passed selection, falling back to most recent")
		return Result{
			Image:  imaging.Clone(frames[len(frames)-1]),
			Status: StatusDegraded,
		}, nil
	}

	last := selected[len(selected)-1]
	out := imaging.Clone(frames[last])

	for _, idx := range selected {
		paintSubject(out, frames[idx], masks[idx])
	}

	logger.WithComponent("selector").Info().
		Int("selected", len(selected)).
		Int("masks", len(masks)).
		Msg("Composited action shot")

	return Result{
		Image:    out,
		Status:   StatusSuccess,
		Selected: selected,
	}, nil
}

// paintSubject copies src pixels onto dst wherever the mask is non-zero.
// All three images share the processing resolution.
func paintSubject(dst, src *image.NRGBA, mask *image.Gray) {
	b := mask.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask.GrayAt(x, y).Y == 0 {
				continue
			}
			dst.SetNRGBA(x, y, src.NRGBAAt(x, y))
		}
	}
}
