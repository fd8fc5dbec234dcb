package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/ActionShot/internal/capture"
	"github.com/bryanchriswhite/ActionShot/internal/config"
	"github.com/bryanchriswhite/ActionShot/internal/logger"
	"github.com/bryanchriswhite/ActionShot/internal/output"
	"github.com/bryanchriswhite/ActionShot/internal/pipeline"
	"github.com/bryanchriswhite/ActionShot/internal/segment"
	"github.com/bryanchriswhite/ActionShot/internal/selector"
)

var (
	composeInputDir  string
	composeOutput    string
	composeAnnotate  bool
	composeTimeoutMs int
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Compose an action shot from a directory of frames",
	Long: `Compose an action shot offline.

Reads image files from a directory in filename order, runs each through the
segmentation model, selects evenly spaced subject positions along the
dominant direction of motion, and writes the composed image to disk.`,
	Example: `  # Compose from ./frames into action-shot.jpg
  actionshot compose --input ./frames

  # Choose the output path and stamp a label on the result
  actionshot compose --input ./frames --output jump.png --annotate`,
	RunE: runCompose,
}

func init() {
	composeCmd.Flags().StringVarP(&composeInputDir, "input", "i", "", "directory of frame images (required)")
	composeCmd.Flags().StringVarP(&composeOutput, "output", "o", "", "output file path (default: <output.dir>/action-shot.<output.format>)")
	composeCmd.Flags().BoolVar(&composeAnnotate, "annotate", false, "stamp a timestamp label on the result")
	composeCmd.Flags().IntVar(&composeTimeoutMs, "timeout", 120000, "max milliseconds to wait for segmentation to finish")
	composeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(composeCmd)
}

func runCompose(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}
	if viper.IsSet("log_level") {
		if level := viper.GetString("log_level"); level != "" {
			configMgr.SetLogLevel(level)
		}
	}

	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, true)
	log := logger.WithComponent("compose")

	segmenter, err := segment.NewClient(cfg.Segmenter.URL, cfg.Segmenter.Model)
	if err != nil {
		return fmt.Errorf("failed to initialize segmentation client: %w", err)
	}

	pipe := pipeline.New(segmenter, pipeline.WithTargetSize(cfg.Pipeline.TargetSize))
	defer pipe.Close()

	source := capture.NewDirectorySource(composeInputDir, cfg.Capture.MaxFPS)
	if err := source.Start(pipe.SubmitFrame); err != nil {
		return fmt.Errorf("failed to start frame source: %w", err)
	}
	source.Wait()

	if err := waitForIdle(pipe, time.Duration(composeTimeoutMs)*time.Millisecond); err != nil {
		return err
	}

	processed, masks, _ := pipe.Counts()
	log.Info().Int("processed", processed).Int("masks", masks).Msg("All frames segmented")

	result, err := pipe.CompositeFrames()
	if err != nil {
		return fmt.Errorf("failed to compose: %w", err)
	}
	if result.Status == selector.StatusDegraded {
		log.Warn().Msg("No movement detected, falling back to the most recent frame")
	}

	img := result.Image
	if composeAnnotate || cfg.Output.Annotate {
		img = output.Annotate(img, fmt.Sprintf("%d frames", len(result.Selected)))
	}

	outPath := composeOutput
	if outPath == "" {
		outPath = filepath.Join(cfg.Output.Dir, "action-shot."+cfg.Output.Format)
	}

	enc := output.NewEncoder()
	if cfg.Output.JPEGQuality > 0 {
		enc.JPEGQuality = cfg.Output.JPEGQuality
	}
	if err := enc.Save(img, outPath); err != nil {
		return err
	}

	log.Info().
		Str("path", outPath).
		Str("status", string(result.Status)).
		Int("selected", len(result.Selected)).
		Msg("Action shot composed")
	return nil
}

// waitForIdle polls until the pipeline has drained its pending queue and no
// processing pass is in flight.
func waitForIdle(pipe *pipeline.Pipeline, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		_, _, pending := pipe.Counts()
		if pending == 0 && !pipe.Processing() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for segmentation after %s", timeout)
		}
	}
	return nil
}
