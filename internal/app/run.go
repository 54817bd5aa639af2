package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/vk/stagegraph/internal/canvas"
	"github.com/vk/stagegraph/internal/config"
	"github.com/vk/stagegraph/internal/diagram"
	"github.com/vk/stagegraph/internal/execution"
	"github.com/vk/stagegraph/internal/publish"
	"github.com/vk/stagegraph/internal/stepstree"
	"github.com/vk/stagegraph/internal/termview"
)

// Render loads the configured pipeline (or execution), lays it out, prints it
// and publishes it once.
func (a *App) Render(ctx context.Context) error {
	ctx = a.context(ctx)
	a.logger.Debug("App.Render started.")
	if err := a.connectPublisher(ctx); err != nil {
		return err
	}
	defer a.closePublisher()
	return a.renderOnce(ctx)
}

func (a *App) mode() string {
	if a.config.ExecutionPath != "" {
		return "execution"
	}
	return "tree"
}

func (a *App) renderOnce(ctx context.Context) error {
	mode := a.mode()
	start := time.Now()

	var (
		m     *diagram.Model
		title string
		err   error
	)
	if mode == "execution" {
		m, title, err = a.buildExecution(ctx)
	} else {
		m, title, err = a.buildTree(ctx)
	}
	a.metrics.renders.WithLabelValues(mode, outcome(err)).Inc()
	if err != nil {
		return err
	}
	a.metrics.renderDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	a.metrics.graphNodes.Set(float64(len(m.Nodes())))
	a.metrics.graphEdges.Set(float64(len(m.Edges())))

	if err := termview.Render(a.outW, m, termview.Options{Title: title, Edges: a.config.ShowEdges}); err != nil {
		return fmt.Errorf("failed to print diagram: %w", err)
	}
	if a.publisher != nil {
		if err := a.publisher.Publish(m); err != nil {
			return fmt.Errorf("failed to publish diagram: %w", err)
		}
	}
	a.logger.Info("Diagram rendered.", "mode", mode, "nodes", len(m.Nodes()), "edges", len(m.Edges()), "elapsed", time.Since(start))
	return nil
}

// load reads the pipeline and normalizes it.
func (a *App) load(ctx context.Context) (*config.Document, error) {
	doc, err := a.loader.Load(ctx, a.config.PipelinePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline: %w", err)
	}
	if n := stepstree.Normalize(&doc.Tree); n > 0 {
		a.logger.Warn("Pipeline held degenerate parallels; flattened them.", "count", n)
	}
	return doc, nil
}

func (a *App) buildTree(ctx context.Context) (*diagram.Model, string, error) {
	doc, err := a.load(ctx)
	if err != nil {
		return nil, "", err
	}

	m := diagram.NewModel()
	g := canvas.NewExecutionGraph(ctx, m, canvas.Callbacks{}, canvas.GraphOptions{
		ReadOnly: a.config.ReadOnly,
		Style:    a.config.Style.Fill(doc.Style),
	})
	if err := g.SetTree(&doc.Tree, doc.Services, &doc.Tree, doc.Services); err != nil {
		return nil, "", fmt.Errorf("failed to lay out pipeline: %w", err)
	}
	if a.config.Rollback {
		if err := g.ToggleRollbackView(); err != nil {
			return nil, "", fmt.Errorf("failed to lay out rollback steps: %w", err)
		}
	}

	title := doc.Name
	if title == "" {
		title = a.config.PipelinePath
	}
	if a.config.Rollback {
		title += " (rollback)"
	}
	return m, title, nil
}

func (a *App) buildExecution(ctx context.Context) (*diagram.Model, string, error) {
	raw, err := os.ReadFile(a.config.ExecutionPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read execution: %w", err)
	}
	var p execution.Pipeline
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, "", fmt.Errorf("failed to decode execution %s: %w", a.config.ExecutionPath, err)
	}

	m := diagram.NewModel()
	d := canvas.NewStageDiagram(ctx, m, canvas.StageOptions{Style: a.config.Style})
	if err := d.Render(&p); err != nil {
		return nil, "", fmt.Errorf("failed to lay out execution: %w", err)
	}
	title := p.Identifier
	if title == "" {
		title = a.config.ExecutionPath
	}
	return m, title, nil
}

func (a *App) connectPublisher(ctx context.Context) error {
	if a.publisher != nil || a.config.PublishURL == "" {
		return nil
	}
	p, err := publish.Dial(ctx, publish.Options{URL: a.config.PublishURL, Namespace: a.config.PublishNamespace})
	if err != nil {
		return fmt.Errorf("failed to connect publisher: %w", err)
	}
	a.publisher = p
	return nil
}

func (a *App) closePublisher() {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("Publisher close failed.", "error", err)
	}
}
