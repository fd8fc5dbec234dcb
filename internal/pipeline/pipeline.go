// Package pipeline wires the frame store, the normalizer, and the external
// segmentation collaborator into the one-worker-at-a-time processing loop,
// and delivers progress notifications to a single observer in order.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/bryanchriswhite/ActionShot/internal/logger"
	"github.com/bryanchriswhite/ActionShot/internal/segment"
	"github.com/bryanchriswhite/ActionShot/internal/selector"
	"github.com/bryanchriswhite/ActionShot/internal/store"
)

// FrameStatus is the outcome reported for one processed frame.
type FrameStatus string

const (
	FrameSuccess FrameStatus = "success"
	FrameFailure FrameStatus = "failure"
)

// Observer receives pipeline notifications. Both callbacks run on a single
// dispatch goroutine, so consecutive reports arrive in order and
// implementations need no locking of their own.
type Observer interface {
	// FrameProcessed fires once per consumed frame.
	FrameProcessed(status FrameStatus, processed, remaining int)
	// CompositionFinished fires once per CompositeFrames call.
	CompositionFinished(status selector.Status, img *image.NRGBA)
}

type event struct {
	frame       bool
	frameStatus FrameStatus
	processed   int
	remaining   int

	compStatus selector.Status
	compImage  *image.NRGBA
}

// Pipeline owns a capture session: raw frames in, processed frames and
// masks stored, composites out.
type Pipeline struct {
	store      *store.Store
	segmenter  segment.Segmenter
	observer   Observer
	targetSize int

	events    chan event
	quit      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTargetSize overrides the processing resolution (default 448).
func WithTargetSize(size int) Option {
	return func(p *Pipeline) { p.targetSize = size }
}

// WithObserver registers the notification receiver.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// New creates a pipeline around the given segmenter and starts the
// notification dispatcher. Close must be called to stop it.
func New(segmenter segment.Segmenter, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:      store.New(),
		segmenter:  segmenter,
		targetSize: 448,
		events:     make(chan event, 64),
		quit:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(1)
	go p.dispatch()
	return p
}

// SubmitFrame enqueues a raw frame and triggers a processing pass.
// Submissions during an in-flight pass are drained by that pass, or by the
// follow-up pass it starts when a frame arrives as it retires.
func (p *Pipeline) SubmitFrame(frame store.Frame) {
	p.store.Submit(frame)
	p.ProcessFrames()
}

// ProcessFrames is the idempotent processing trigger: it starts a worker
// when none is running and does nothing otherwise.
func (p *Pipeline) ProcessFrames() {
	if !p.store.BeginProcessing() {
		return
	}
	epoch := p.store.Epoch()
	go p.run(epoch)
}

// run drains the pending queue: normalize, store, segment, store, notify.
// It retires on an empty queue, on a segmentation failure (fail-stop), or
// when the session epoch changed under it.
func (p *Pipeline) run(epoch uint64) {
	failed := false
	defer func() {
		p.store.EndProcessing()
		// A submit can land between the empty-queue check and the slot
		// release above; its trigger is a no-op because the slot is
		// still held. Re-check once the slot is free so that frame is
		// not stranded. Failed passes stay fail-stop: their queue
		// waits for the next explicit trigger.
		if !failed && p.store.FrameAvailable() {
			p.ProcessFrames()
		}
	}()
	log := logger.WithComponent("pipeline")

	for {
		frame, ok := p.store.TakeNext(epoch)
		if !ok {
			return
		}

		processed := Normalize(frame.Image, p.targetSize)
		if !p.store.AppendProcessed(epoch, processed) {
			// Session was reset while this pass was running.
			log.Debug().Uint64("epoch", epoch).Msg("Discarding frame from a reset session")
			return
		}

		mask, err := p.segmenter.Segment(context.Background(), processed)
		if err != nil {
			failed = true
			processedCount, _, pending := p.store.Counts()
			log.Error().Err(err).
				Int("processed", processedCount).
				Int("pending", pending).
				Msg("Segmentation failed, stopping pass")
			p.emit(event{frame: true, frameStatus: FrameFailure, processed: processedCount, remaining: pending})
			return
		}

		if !p.store.AppendMask(epoch, mask) {
			log.Debug().Uint64("epoch", epoch).Msg("Discarding late mask from a reset session")
			return
		}

		processedCount, _, pending := p.store.Counts()
		log.Debug().
			Int("processed", processedCount).
			Int("pending", pending).
			Msg("Frame segmented")
		p.emit(event{frame: true, frameStatus: FrameSuccess, processed: processedCount, remaining: pending})
	}
}

// Reset clears the session. An in-flight segmentation call is not
// cancelled; its late result is discarded by the epoch check.
func (p *Pipeline) Reset() {
	p.store.Reset()
	logger.WithComponent("pipeline").Info().Msg("Session reset")
}

// CompositeFrames runs the frame selector over the stored masks and returns
// the composed action shot, notifying the observer with the outcome.
func (p *Pipeline) CompositeFrames() (selector.Result, error) {
	frames, masks := p.store.Snapshot()

	result, err := selector.Composite(frames, masks)
	if err != nil {
		p.emit(event{compStatus: selector.StatusDegraded})
		return selector.Result{}, fmt.Errorf("composition failed: %w", err)
	}

	p.emit(event{compStatus: result.Status, compImage: result.Image})
	return result, nil
}

// Counts returns the processed frame, mask, and pending frame counts.
func (p *Pipeline) Counts() (processed, masks, pending int) {
	return p.store.Counts()
}

// Processing reports whether a pass is in flight.
func (p *Pipeline) Processing() bool {
	return p.store.Processing()
}

// Close stops the notification dispatcher after delivering queued events.
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() {
		close(p.quit)
	})
	p.wg.Wait()
}

func (p *Pipeline) emit(e event) {
	select {
	case p.events <- e:
	case <-p.quit:
	}
}

func (p *Pipeline) dispatch() {
	defer p.wg.Done()
	for {
		select {
		case e := <-p.events:
			p.deliver(e)
		case <-p.quit:
			// Drain whatever is already queued, then stop.
			for {
				select {
				case e := <-p.events:
					p.deliver(e)
				default:
					return
				}
			}
		}
	}
}

func (p *Pipeline) deliver(e event) {
	if p.observer == nil {
		return
	}
	if e.frame {
		p.observer.FrameProcessed(e.frameStatus, e.processed, e.remaining)
		return
	}
	p.observer.CompositionFinished(e.compStatus, e.compImage)
}
