// Package segment defines the external foreground-segmentation collaborator:
// given a processed square RGB frame, it returns a single-channel mask of the
// same resolution where non-zero pixels mark the subject.
package segment

import (
	"context"
	"errors"
	"image"
)

// ErrMalformedMask indicates the model returned a result that cannot be
// turned into a mask matching the input frame (wrong dimensions, truncated
// payload, or undecodable body).
var ErrMalformedMask = errors.New("malformed segmentation result")

// Segmenter produces a foreground mask for a processed frame.
// Implementations must return a mask with the same bounds as the input,
// wrapping ErrMalformedMask when the model result is unusable.
type Segmenter interface {
	Segment(ctx context.Context, frame *image.NRGBA) (*image.Gray, error)
}
