package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/bryanchriswhite/ActionShot/internal/selector"
	"github.com/bryanchriswhite/ActionShot/internal/store"
)

const testSize = 16

// segmentResult is one scripted answer from the fake segmenter.
type segmentResult struct {
	mask *image.Gray
	err  error
}

// fakeSegmenter blocks each Segment call until a result is scripted on the
// results channel, and signals each call on the calls channel. This makes
// the asynchronous pass deterministic in tests.
type fakeSegmenter struct {
	calls   chan struct{}
	results chan segmentResult
}

func newFakeSegmenter() *fakeSegmenter {
	return &fakeSegmenter{
		calls:   make(chan struct{}, 16),
		results: make(chan segmentResult, 16),
	}
}

func (f *fakeSegmenter) Segment(_ context.Context, _ *image.NRGBA) (*image.Gray, error) {
	f.calls <- struct{}{}
	r := <-f.results
	return r.mask, r.err
}

func subjectMask(cx, cy int) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, testSize, testSize))
	for y := cy - 2; y < cy+2; y++ {
		for x := cx - 2; x < cx+2; x++ {
			m.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return m
}

type frameNote struct {
	status    FrameStatus
	processed int
	remaining int
}

type compNote struct {
	status selector.Status
	img    *image.NRGBA
}

type testObserver struct {
	frames chan frameNote
	comps  chan compNote
}

func newTestObserver() *testObserver {
	return &testObserver{
		frames: make(chan frameNote, 16),
		comps:  make(chan compNote, 16),
	}
}

func (o *testObserver) FrameProcessed(status FrameStatus, processed, remaining int) {
	o.frames <- frameNote{status, processed, remaining}
}

func (o *testObserver) CompositionFinished(status selector.Status, img *image.NRGBA) {
	o.comps <- compNote{status, img}
}

func waitFrameNote(t *testing.T, o *testObserver) frameNote {
	t.Helper()
	select {
	case n := <-o.frames:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame notification")
		return frameNote{}
	}
}

func waitCompNote(t *testing.T, o *testObserver) compNote {
	t.Helper()
	select {
	case n := <-o.comps:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a composition notification")
		return compNote{}
	}
}

func waitCall(t *testing.T, f *fakeSegmenter) {
	t.Helper()
	select {
	case <-f.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a segmentation call")
	}
}

func waitIdle(t *testing.T, p *Pipeline) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for p.Processing() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the pipeline to go idle")
		}
		time.Sleep(time.Millisecond)
	}
}

func rawFrame() store.Frame {
	return store.Frame{
		Image:     image.NewRGBA(image.Rect(0, 0, 64, 48)),
		Timestamp: time.Now(),
	}
}

func TestProcessFramesSuccess(t *testing.T) {
	seg := newFakeSegmenter()
	obs := newTestObserver()
	p := New(seg, WithTargetSize(testSize), WithObserver(obs))
	defer p.Close()

	p.SubmitFrame(rawFrame())
	p.SubmitFrame(rawFrame())

	waitCall(t, seg)
	seg.results <- segmentResult{mask: subjectMask(4, 8)}
	waitCall(t, seg)
	seg.results <- segmentResult{mask: subjectMask(12, 8)}

	first := waitFrameNote(t, obs)
	if first.status != FrameSuccess || first.processed != 1 {
		t.Errorf("first notification = %+v, want success with 1 processed", first)
	}
	second := waitFrameNote(t, obs)
	if second.status != FrameSuccess || second.processed != 2 || second.remaining != 0 {
		t.Errorf("second notification = %+v, want success with 2 processed, 0 remaining", second)
	}

	waitIdle(t, p)
	processed, masks, pending := p.Counts()
	if processed != 2 || masks != 2 || pending != 0 {
		t.Errorf("counts = (%d, %d, %d), want (2, 2, 0)", processed, masks, pending)
	}
}

func TestSegmentationFailureIsFailStop(t *testing.T) {
	seg := newFakeSegmenter()
	obs := newTestObserver()
	p := New(seg, WithTargetSize(testSize), WithObserver(obs))
	defer p.Close()

	p.SubmitFrame(rawFrame())
	waitCall(t, seg)
	// Queue a second frame while the first is in flight, then fail it.
	p.SubmitFrame(rawFrame())
	seg.results <- segmentResult{err: errors.New("model exploded")}

	note := waitFrameNote(t, obs)
	if note.status != FrameFailure {
		t.Errorf("notification = %+v, want a failure", note)
	}
	if note.remaining != 1 {
		t.Errorf("remaining = %d, want the queued frame to stay pending", note.remaining)
	}

	waitIdle(t, p)
	processed, masks, pending := p.Counts()
	if processed != 1 || masks != 0 || pending != 1 {
		t.Errorf("counts = (%d, %d, %d), want (1, 0, 1)", processed, masks, pending)
	}

	// A new trigger resumes from the queue.
	p.ProcessFrames()
	waitCall(t, seg)
	seg.results <- segmentResult{mask: subjectMask(8, 8)}

	note = waitFrameNote(t, obs)
	if note.status != FrameSuccess {
		t.Errorf("notification after retry = %+v, want success", note)
	}
	waitIdle(t, p)
	processed, masks, pending = p.Counts()
	if processed != 2 || masks != 1 || pending != 0 {
		t.Errorf("counts after retry = (%d, %d, %d), want (2, 1, 0)", processed, masks, pending)
	}
}

func TestProcessFramesIdempotentTrigger(t *testing.T) {
	seg := newFakeSegmenter()
	p := New(seg, WithTargetSize(testSize))
	defer p.Close()

	p.SubmitFrame(rawFrame())
	waitCall(t, seg)

	// Hammer the trigger while the pass is blocked in segmentation.
	for i := 0; i < 10; i++ {
		p.ProcessFrames()
	}

	select {
	case <-seg.calls:
		t.Fatal("a second segmentation call started while one was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	if !p.Processing() {
		t.Error("pipeline should still be processing")
	}

	seg.results <- segmentResult{mask: subjectMask(8, 8)}
	waitIdle(t, p)

	processed, masks, _ := p.Counts()
	if processed != 1 || masks != 1 {
		t.Errorf("counts = (%d, %d), want exactly one frame consumed", processed, masks)
	}
}

func TestResetDiscardsLateResult(t *testing.T) {
	seg := newFakeSegmenter()
	obs := newTestObserver()
	p := New(seg, WithTargetSize(testSize), WithObserver(obs))
	defer p.Close()

	p.SubmitFrame(rawFrame())
	waitCall(t, seg)

	// Reset while the segmentation call is in flight, then let it finish.
	p.Reset()
	seg.results <- segmentResult{mask: subjectMask(8, 8)}
	waitIdle(t, p)

	processed, masks, pending := p.Counts()
	if processed != 0 || masks != 0 || pending != 0 {
		t.Errorf("counts = (%d, %d, %d) after reset, want all zero", processed, masks, pending)
	}

	select {
	case n := <-obs.frames:
		t.Errorf("got notification %+v for a discarded late result", n)
	case <-time.After(50 * time.Millisecond):
	}
}

// instantSegmenter answers every call immediately with a fixed mask.
type instantSegmenter struct{}

func (instantSegmenter) Segment(_ context.Context, _ *image.NRGBA) (*image.Gray, error) {
	return subjectMask(8, 8), nil
}

func waitCounts(t *testing.T, p *Pipeline, processed, masks, pending int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		gotProcessed, gotMasks, gotPending := p.Counts()
		if gotProcessed == processed && gotMasks == masks && gotPending == pending && !p.Processing() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("counts = (%d, %d, %d), want (%d, %d, %d) with the pipeline idle",
				gotProcessed, gotMasks, gotPending, processed, masks, pending)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSubmitWhileOldPassRetiresIsDrained(t *testing.T) {
	seg := newFakeSegmenter()
	obs := newTestObserver()
	p := New(seg, WithTargetSize(testSize), WithObserver(obs))
	defer p.Close()

	p.SubmitFrame(rawFrame())
	waitCall(t, seg)

	// Reset while the pass is blocked in segmentation, then submit into
	// the new session. The submit's trigger is a no-op because the old
	// pass still holds the processing slot.
	p.Reset()
	p.SubmitFrame(rawFrame())

	// Let the old pass finish. Its late mask is discarded and on
	// retirement it must hand the queued new-session frame to a fresh
	// pass rather than strand it.
	seg.results <- segmentResult{mask: subjectMask(8, 8)}

	waitCall(t, seg)
	seg.results <- segmentResult{mask: subjectMask(8, 8)}

	note := waitFrameNote(t, obs)
	if note.status != FrameSuccess {
		t.Errorf("notification = %+v, want success for the new-session frame", note)
	}
	waitCounts(t, p, 1, 1, 0)
}

func TestSubmitRacingRetirementIsDrained(t *testing.T) {
	p := New(instantSegmenter{}, WithTargetSize(testSize))
	defer p.Close()

	// Two submitters race the worker's retirement so submits keep landing
	// in the window between its empty-queue check and the slot release.
	const n = 100
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < n; i++ {
			p.SubmitFrame(rawFrame())
		}
	}()
	for i := 0; i < n; i++ {
		p.SubmitFrame(rawFrame())
	}
	<-done

	// Every submitted frame must be consumed with no further triggers.
	waitCounts(t, p, 2*n, 2*n, 0)
}

func TestCompositeFramesNotifies(t *testing.T) {
	seg := newFakeSegmenter()
	obs := newTestObserver()
	p := New(seg, WithTargetSize(testSize), WithObserver(obs))
	defer p.Close()

	p.SubmitFrame(rawFrame())
	waitCall(t, seg)
	seg.results <- segmentResult{mask: subjectMask(8, 8)}
	waitFrameNote(t, obs)
	waitIdle(t, p)

	result, err := p.CompositeFrames()
	if err != nil {
		t.Fatalf("CompositeFrames failed: %v", err)
	}
	if result.Status != selector.StatusSuccess {
		t.Errorf("status = %s, want success", result.Status)
	}

	note := waitCompNote(t, obs)
	if note.status != selector.StatusSuccess || note.img == nil {
		t.Errorf("notification = (%s, img==nil: %v), want success with an image", note.status, note.img == nil)
	}
}

func TestCompositeFramesWithNothingProcessed(t *testing.T) {
	seg := newFakeSegmenter()
	obs := newTestObserver()
	p := New(seg, WithTargetSize(testSize), WithObserver(obs))
	defer p.Close()

	if _, err := p.CompositeFrames(); err == nil {
		t.Error("expected an error with nothing processed")
	}

	note := waitCompNote(t, obs)
	if note.status != selector.StatusDegraded || note.img != nil {
		t.Errorf("notification = (%s, %v), want degraded with no image", note.status, note.img)
	}
}
