package capture

import (
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/bryanchriswhite/ActionShot/internal/store"
)

func writeFrameFiles(t *testing.T, dir string, widths []int) {
	t.Helper()
	for i, w := range widths {
		img := image.NewRGBA(image.Rect(0, 0, w, 8))
		path := filepath.Join(dir, filenameFor(i))
		if err := imaging.Save(img, path); err != nil {
			t.Fatalf("failed to write frame file: %v", err)
		}
	}
}

func filenameFor(i int) string {
	return "frame_" + string(rune('a'+i)) + ".png"
}

func collectFrames(t *testing.T, src *DirectorySource) []store.Frame {
	t.Helper()
	var mu sync.Mutex
	var frames []store.Frame

	if err := src.Start(func(f store.Frame) {
		mu.Lock()
		frames = append(frames, f)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	src.Wait()

	mu.Lock()
	defer mu.Unlock()
	return frames
}

func TestDirectorySourceDeliversInOrder(t *testing.T) {
	dir := t.TempDir()
	widths := []int{10, 20, 30}
	writeFrameFiles(t, dir, widths)

	src := NewDirectorySource(dir, 0)
	frames := collectFrames(t, src)

	if len(frames) != len(widths) {
		t.Fatalf("delivered %d frames, want %d", len(frames), len(widths))
	}
	for i, f := range frames {
		if f.Image.Bounds().Dx() != widths[i] {
			t.Errorf("frame %d has width %d, want %d (lexical order)", i, f.Image.Bounds().Dx(), widths[i])
		}
		if f.Timestamp.IsZero() {
			t.Errorf("frame %d has no timestamp", i)
		}
	}
}

func TestDirectorySourceSkipsNonImages(t *testing.T) {
	dir := t.TempDir()
	writeFrameFiles(t, dir, []int{10})
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a frame"), 0644); err != nil {
		t.Fatal(err)
	}

	src := NewDirectorySource(dir, 0)
	frames := collectFrames(t, src)

	if len(frames) != 1 {
		t.Errorf("delivered %d frames, want 1", len(frames))
	}
}

func TestDirectorySourceEmptyDir(t *testing.T) {
	src := NewDirectorySource(t.TempDir(), 0)
	if err := src.Start(func(store.Frame) {}); err == nil {
		t.Error("expected an error for a directory with no frames")
	}
}

func TestDirectorySourceStop(t *testing.T) {
	dir := t.TempDir()
	writeFrameFiles(t, dir, []int{10, 20, 30, 40})

	// Heavy throttle so Stop lands mid-sequence.
	src := NewDirectorySource(dir, 2)

	delivered := make(chan struct{}, 16)
	if err := src.Start(func(store.Frame) { delivered <- struct{}{} }); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("no frame delivered")
	}

	if err := src.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	// Stop again is a no-op.
	if err := src.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
}
