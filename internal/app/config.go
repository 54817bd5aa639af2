package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/vk/stagegraph/internal/layout"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePath string // .hcl, .yaml, .yml or .json file or directory
	// ExecutionPath, when set, points to an execution status document (JSON)
	// that is rendered as a stage diagram instead of the editable tree.
	ExecutionPath string

	Rollback  bool
	ReadOnly  bool
	ShowEdges bool
	// Style overrides the layout metrics. Zero fields fall back to the
	// pipeline's style block and then to layout.DefaultStyle.
	Style layout.Style

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	PublishURL       string
	PublishNamespace string

	// WatchDebounce coalesces bursts of file events in watch mode.
	WatchDebounce time.Duration
}

// DefaultWatchDebounce is used when Config.WatchDebounce is zero.
const DefaultWatchDebounce = 200 * time.Millisecond

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" && cfg.ExecutionPath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	if cfg.WatchDebounce <= 0 {
		cfg.WatchDebounce = DefaultWatchDebounce
	}
	if cfg.Style.Negative() {
		return nil, errors.New("invalid style: metrics must not be negative")
	}
	return &cfg, nil
}
