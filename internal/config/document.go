package config

import (
	"github.com/vk/stagegraph/internal/layout"
	"github.com/vk/stagegraph/internal/pipeline"
)

// Document is a loaded pipeline.
type Document struct {
	// Name is the pipeline's display name. It may be empty.
	Name string
	// Sources lists the files the document was read from, in load order.
	Sources  []string
	Tree     pipeline.Tree
	Services []*pipeline.Service
	// Style holds the layout metrics the document sets. Zero fields are
	// left to the caller.
	Style layout.Style
}

// Merge appends the steps, rollback steps and services of other to d. The
// first non-empty name wins, and so does the first non-zero value of each
// style metric.
func (d *Document) Merge(other *Document) {
	if other == nil {
		return
	}
	if d.Name == "" {
		d.Name = other.Name
	}
	d.Sources = append(d.Sources, other.Sources...)
	d.Tree.Steps = append(d.Tree.Steps, other.Tree.Steps...)
	d.Tree.RollbackSteps = append(d.Tree.RollbackSteps, other.Tree.RollbackSteps...)
	d.Services = append(d.Services, other.Services...)
	d.Style = d.Style.Fill(other.Style)
}
