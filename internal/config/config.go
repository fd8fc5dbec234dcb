package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/ActionShot/internal/logger"
)

// PipelineConfig controls frame normalization.
type PipelineConfig struct {
	// TargetSize is the square processing resolution handed to the
	// segmentation model.
	TargetSize int `json:"target_size" yaml:"target_size"`
}

// SegmenterConfig points at the external segmentation model server.
type SegmenterConfig struct {
	URL   string `json:"url" yaml:"url"`
	Model string `json:"model" yaml:"model"`
}

// CaptureConfig throttles frame delivery.
type CaptureConfig struct {
	MaxFPS int `json:"max_fps" yaml:"max_fps"`
}

// OutputConfig controls where and how composites are written.
type OutputConfig struct {
	Dir         string `json:"dir" yaml:"dir"`
	Format      string `json:"format" yaml:"format"`
	JPEGQuality int    `json:"jpeg_quality" yaml:"jpeg_quality"`
	Annotate    bool   `json:"annotate" yaml:"annotate"`
}

// Config represents the application configuration
type Config struct {
	ServerPort int    `json:"server_port" yaml:"server_port"`
	LogLevel   string `json:"log_level" yaml:"log_level"`

	Pipeline  PipelineConfig  `json:"pipeline" yaml:"pipeline"`
	Segmenter SegmenterConfig `json:"segmenter" yaml:"segmenter"`
	Capture   CaptureConfig   `json:"capture" yaml:"capture"`
	Output    OutputConfig    `json:"output" yaml:"output"`
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a new configuration manager. An empty configFile uses
// the default path under the user config directory.
func NewManager(configFile string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "actionshot")
	actualConfigPath := filepath.Join(configDir, "config.yaml")
	if configFile != "" {
		actualConfigPath = configFile
	}

	if err := os.MkdirAll(filepath.Dir(actualConfigPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{configPath: actualConfigPath}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = m.getDefaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Msg("Config loaded")
	return m, nil
}

// getDefaults returns default configuration
func (m *Manager) getDefaults() *Config {
	return &Config{
		ServerPort: 8080,
		LogLevel:   "info",
		Pipeline: PipelineConfig{
			TargetSize: 448,
		},
		Segmenter: SegmenterConfig{
			URL:   "http://localhost:8188",
			Model: "u2net",
		},
		Capture: CaptureConfig{
			MaxFPS: 10,
		},
		Output: OutputConfig{
			Dir:         ".",
			Format:      "jpg",
			JPEGQuality: 90,
			Annotate:    false,
		},
	}
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := *m.getDefaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	m.mu.Lock()
	m.config = &cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return m.getDefaults()
	}
	cfg := *m.config
	return &cfg
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = m.getDefaults()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// SetPort sets the server port
func (m *Manager) SetPort(port int) error {
	m.mu.Lock()
	m.config.ServerPort = port
	m.mu.Unlock()
	return m.Save()
}

// SetLogLevel sets the log level
func (m *Manager) SetLogLevel(level string) error {
	m.mu.Lock()
	m.config.LogLevel = level
	m.mu.Unlock()
	return m.Save()
}

// Set updates a single configuration value by key and persists it.
func (m *Manager) Set(key, value string) error {
	m.mu.Lock()
	err := m.setLocked(key, value)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.Save()
}

func (m *Manager) setLocked(key, value string) error {
	switch key {
	case "server_port":
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid port number: %s", value)
		}
		m.config.ServerPort = port
	case "log_level":
		switch value {
		case "trace", "debug", "info", "warn", "error":
			m.config.LogLevel = value
		default:
			return fmt.Errorf("invalid log level: %s (use: trace, debug, info, warn, error)", value)
		}
	case "pipeline.target_size":
		size, err := strconv.Atoi(value)
		if err != nil || size <= 0 {
			return fmt.Errorf("invalid target size: %s", value)
		}
		m.config.Pipeline.TargetSize = size
	case "segmenter.url":
		m.config.Segmenter.URL = value
	case "segmenter.model":
		m.config.Segmenter.Model = value
	case "capture.max_fps":
		fps, err := strconv.Atoi(value)
		if err != nil || fps < 0 {
			return fmt.Errorf("invalid max fps: %s", value)
		}
		m.config.Capture.MaxFPS = fps
	case "output.dir":
		m.config.Output.Dir = value
	case "output.format":
		switch value {
		case "jpg", "jpeg", "png", "webp":
			m.config.Output.Format = value
		default:
			return fmt.Errorf("unsupported output format: %s (use: jpg, png, webp)", value)
		}
	case "output.jpeg_quality":
		q, err := strconv.Atoi(value)
		if err != nil || q < 1 || q > 100 {
			return fmt.Errorf("invalid jpeg quality: %s (use 1-100)", value)
		}
		m.config.Output.JPEGQuality = q
	case "output.annotate":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s (use: true or false)", value)
		}
		m.config.Output.Annotate = b
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
