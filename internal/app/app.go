package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/stagegraph/internal/config"
	"github.com/vk/stagegraph/internal/ctxlog"
	"github.com/vk/stagegraph/internal/diagram"
)

// Publisher receives every rendered model.
type Publisher interface {
	Publish(m *diagram.Model) error
	Close() error
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	loader     config.Loader
	publisher  Publisher
	registry   *prometheus.Registry
	metrics    *metrics
	httpServer *http.Server
}

// Option customizes an App.
type Option func(*App)

// WithLogWriter sends logs to w instead of the output writer.
func WithLogWriter(w io.Writer) Option {
	return func(a *App) {
		a.logger = newLogger(a.config.LogLevel, a.config.LogFormat, w)
	}
}

// WithPublisher sets the publisher instead of dialing Config.PublishURL.
func WithPublisher(p Publisher) Option {
	return func(a *App) { a.publisher = p }
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and metrics registry.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, opts ...Option) *App {
	reg := prometheus.NewRegistry()
	a := &App{
		outW:     outW,
		logger:   newLogger(cfg.LogLevel, cfg.LogFormat, outW),
		config:   cfg,
		loader:   loader,
		registry: reg,
		metrics:  newMetrics(reg),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger.Debug("App configured.", "pipeline", cfg.PipelinePath, "execution", cfg.ExecutionPath)
	return a
}

// Logger returns the application's logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Registry returns the metrics registry served on /metrics.
func (a *App) Registry() *prometheus.Registry { return a.registry }

func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
