package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/stagegraph/internal/config"
	"github.com/vk/stagegraph/internal/pipeline"
	"github.com/vk/stagegraph/internal/stepstree"
	"github.com/vk/stagegraph/internal/yamlconfig"
)

// ErrDuplicateIdentifier is returned when an inserted step reuses an
// identifier already present in the tree.
var ErrDuplicateIdentifier = errors.New("identifier already in use")

// InsertRequest describes a step to add and where.
type InsertRequest struct {
	Anchor   stepstree.Anchor
	Step     pipeline.Step
	Parallel bool
	Rollback bool
}

// Remove deletes a step, group or service and writes the resulting document.
func (a *App) Remove(ctx context.Context, id string, format yamlconfig.Format) error {
	return a.mutate(ctx, "remove", format, func(doc *config.Document) error {
		if !stepstree.Remove(&doc.Tree, &doc.Services, id, false) {
			return fmt.Errorf("%q: %w", id, stepstree.ErrNotFound)
		}
		return nil
	})
}

// Insert adds a step at the request's anchor and writes the resulting document.
func (a *App) Insert(ctx context.Context, req InsertRequest, format yamlconfig.Format) error {
	return a.mutate(ctx, "insert", format, func(doc *config.Document) error {
		step := req.Step
		if step.Identifier == "" {
			return errors.New("step identifier is required")
		}
		if stepstree.Locate(&doc.Tree, step.Identifier, stepstree.Options{}).Found() {
			return fmt.Errorf("%q: %w", step.Identifier, ErrDuplicateIdentifier)
		}
		if step.Name == "" {
			step.Name = step.Identifier
		}
		if !stepstree.Insert(req.Anchor, &doc.Tree, pipeline.NewStep(&step), req.Parallel, req.Rollback) {
			return fmt.Errorf("anchor %+v: %w", req.Anchor, stepstree.ErrNotFound)
		}
		return nil
	})
}

// Move drags a node onto an anchor and writes the resulting document.
func (a *App) Move(ctx context.Context, dragged string, anchor stepstree.Anchor, rollback bool, format yamlconfig.Format) error {
	return a.mutate(ctx, "move", format, func(doc *config.Document) error {
		return stepstree.Move(&doc.Tree, doc.Services, dragged, anchor, rollback)
	})
}

func (a *App) mutate(ctx context.Context, op string, format yamlconfig.Format, fn func(*config.Document) error) error {
	ctx = a.context(ctx)
	doc, err := a.load(ctx)
	if err == nil {
		err = fn(doc)
	}
	a.metrics.mutations.WithLabelValues(op, outcome(err)).Inc()
	if err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	a.logger.Info("Tree mutated.", "op", op, "steps", len(pipeline.Identifiers(&doc.Tree)))
	return yamlconfig.Write(a.outW, doc, format)
}
