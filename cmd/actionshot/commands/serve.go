package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/ActionShot/internal/api"
	"github.com/bryanchriswhite/ActionShot/internal/config"
	"github.com/bryanchriswhite/ActionShot/internal/logger"
	"github.com/bryanchriswhite/ActionShot/internal/pipeline"
	"github.com/bryanchriswhite/ActionShot/internal/segment"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ActionShot server",
	Long: `Start the ActionShot HTTP server.

Frames are submitted over the REST API, segmented by the configured model
server, and composed on demand. Progress events stream over a websocket.`,
	Example: `  # Start server on default port (8080)
  actionshot serve

  # Start server on custom port
  actionshot serve --port 9090

  # Start with debug logging
  actionshot serve --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	// Override port from flag if provided
	if viper.IsSet("server_port") {
		if port := viper.GetInt("server_port"); port > 0 {
			configMgr.SetPort(port)
		}
	}
	if viper.IsSet("log_level") {
		if level := viper.GetString("log_level"); level != "" {
			configMgr.SetLogLevel(level)
		}
	}

	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, true)
	log := logger.WithComponent("serve")

	segmenter, err := segment.NewClient(cfg.Segmenter.URL, cfg.Segmenter.Model)
	if err != nil {
		return fmt.Errorf("failed to initialize segmentation client: %w", err)
	}

	hub := api.NewHub()
	pipe := pipeline.New(segmenter,
		pipeline.WithTargetSize(cfg.Pipeline.TargetSize),
		pipeline.WithObserver(hub),
	)
	defer pipe.Close()

	server := api.NewServer(pipe, hub)
	go func() {
		if err := server.Start(cfg.ServerPort); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	log.Info().
		Int("port", cfg.ServerPort).
		Str("segmenter", cfg.Segmenter.URL).
		Str("model", cfg.Segmenter.Model).
		Msg("ActionShot is running, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down gracefully")
	return nil
}
