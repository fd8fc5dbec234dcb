package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/bryanchriswhite/ActionShot/internal/logger"
	"github.com/bryanchriswhite/ActionShot/internal/store"
)

// DirectorySource replays the image files of a directory as a frame
// sequence, in lexical filename order, throttled to MaxFPS. It stands in
// for a live camera when composing offline.
type DirectorySource struct {
	dir    string
	maxFPS int

	mu      sync.Mutex
	running bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

// NewDirectorySource creates a source over dir, delivering at most maxFPS
// frames per second (0 means unthrottled).
func NewDirectorySource(dir string, maxFPS int) *DirectorySource {
	return &DirectorySource{
		dir:    dir,
		maxFPS: maxFPS,
	}
}

// Name returns a human-readable name for this source
func (d *DirectorySource) Name() string {
	return fmt.Sprintf("directory (%s)", d.dir)
}

// Start lists the directory and begins pushing frames to the handler.
func (d *DirectorySource) Start(handler Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("directory source already running")
	}

	files, err := listImageFiles(d.dir)
	if err != nil {
		return fmt.Errorf("failed to list frame files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no frame images found in %s", d.dir)
	}

	d.quit = make(chan struct{})
	d.running = true
	d.wg.Add(1)
	go d.deliver(files, handler)

	logger.WithComponent("capture").Info().
		Str("dir", d.dir).
		Int("frames", len(files)).
		Int("max_fps", d.maxFPS).
		Msg("Directory source started")
	return nil
}

// Stop halts delivery. Safe to call more than once.
func (d *DirectorySource) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	close(d.quit)
	d.mu.Unlock()

	d.wg.Wait()
	return nil
}

// Wait blocks until every frame has been delivered or Stop was called.
func (d *DirectorySource) Wait() {
	d.wg.Wait()
}

func (d *DirectorySource) deliver(files []string, handler Handler) {
	defer d.wg.Done()
	log := logger.WithComponent("capture")

	var throttle <-chan time.Time
	if d.maxFPS > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(d.maxFPS))
		defer ticker.Stop()
		throttle = ticker.C
	}

	for _, path := range files {
		img, err := imaging.Open(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable frame file")
			continue
		}

		handler(store.Frame{Image: img, Timestamp: time.Now()})

		if throttle != nil {
			select {
			case <-throttle:
			case <-d.quit:
				return
			}
		} else {
			select {
			case <-d.quit:
				return
			default:
			}
		}
	}
}

func listImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
