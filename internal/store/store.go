// Package store holds the shared state of a capture session: the queue of
// raw frames waiting for processing, the processed frames, the segmentation
// masks, and the processing flag. A single mutex serializes every operation
// so no caller can observe a partially applied update.
package store

import (
	"image"
	"sync"
	"time"
)

// Frame is a raw frame as delivered by a capture source.
// Ownership transfers to the store on Submit.
type Frame struct {
	Image     image.Image
	Timestamp time.Time
}

// Store owns the three ordered sequences of a capture session plus the
// processing flag. All methods are safe for concurrent use.
//
// The epoch identifies the current session: Reset bumps it, and appends
// carrying a stale epoch are discarded. This is how late segmentation
// results from before a reset are kept out of the new session.
type Store struct {
	mu sync.Mutex

	pending   []Frame
	processed []*image.NRGBA
	masks     []*image.Gray

	processing bool
	epoch      uint64
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Submit appends a raw frame to the pending queue.
func (s *Store) Submit(frame Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, frame)
}

// TakeNext removes and returns the oldest pending frame. Returns false when
// the queue is empty or epoch no longer matches the current session, so a
// pass left over from before a reset never consumes new-session frames.
func (s *Store) TakeNext(epoch uint64) (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch || len(s.pending) == 0 {
		return Frame{}, false
	}
	frame := s.pending[0]
	s.pending = s.pending[1:]
	return frame, true
}

// FrameAvailable reports whether a pending frame is queued.
func (s *Store) FrameAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

// AppendProcessed appends a processed frame. The append is discarded and
// false returned when epoch no longer matches the current session.
func (s *Store) AppendProcessed(epoch uint64, img *image.NRGBA) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return false
	}
	s.processed = append(s.processed, img)
	return true
}

// AppendMask appends a segmentation mask. The append is discarded and false
// returned when epoch no longer matches the current session.
func (s *Store) AppendMask(epoch uint64, mask *image.Gray) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return false
	}
	s.masks = append(s.masks, mask)
	return true
}

// BeginProcessing attempts to claim the single processing slot.
// Returns false when a pass is already in flight.
func (s *Store) BeginProcessing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.processing {
		return false
	}
	s.processing = true
	return true
}

// EndProcessing releases the processing slot.
func (s *Store) EndProcessing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = false
}

// Processing reports whether a pass is in flight.
func (s *Store) Processing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

// Epoch returns the current session epoch.
func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Counts returns the number of processed frames, masks, and pending frames.
func (s *Store) Counts() (processed, masks, pending int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.processed), len(s.masks), len(s.pending)
}

// Snapshot returns copies of the processed frame and mask sequences.
// The returned slices are safe to read without holding the lock; the
// images themselves are append-only and never mutated after storage.
func (s *Store) Snapshot() ([]*image.NRGBA, []*image.Gray) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := make([]*image.NRGBA, len(s.processed))
	copy(frames, s.processed)
	masks := make([]*image.Gray, len(s.masks))
	copy(masks, s.masks)
	return frames, masks
}

// Reset clears all three sequences and bumps the session epoch.
// The processing flag is left alone: an in-flight pass observes the stale
// epoch on its next append and retires on its own.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = nil
	s.processed = nil
	s.masks = nil
	s.epoch++
}
