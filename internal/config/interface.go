package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vk/stagegraph/internal/ctxlog"
	"github.com/vk/stagegraph/internal/fsutil"
)

// ErrNoLoader is returned when no loader handles a file's extension.
var ErrNoLoader = errors.New("no loader for file extension")

// Loader is the interface for a format-specific pipeline loader.
type Loader interface {
	// Load reads every given file or directory and merges what it finds into
	// one Document.
	Load(ctx context.Context, paths ...string) (*Document, error)
	// Extensions lists the file extensions the loader reads, dot included.
	Extensions() []string
}

// Registry picks a loader by file extension. Directories are expanded to
// every file some registered loader understands.
type Registry struct {
	byExt map[string]Loader
	exts  []string
}

// NewRegistry returns a registry holding loaders. A later loader wins an
// extension claimed twice.
func NewRegistry(loaders ...Loader) *Registry {
	r := &Registry{byExt: map[string]Loader{}}
	for _, l := range loaders {
		for _, ext := range l.Extensions() {
			ext = strings.ToLower(ext)
			if _, ok := r.byExt[ext]; !ok {
				r.exts = append(r.exts, ext)
			}
			r.byExt[ext] = l
		}
	}
	return r
}

// Extensions returns every extension some loader handles.
func (r *Registry) Extensions() []string { return r.exts }

// Load implements Loader.
func (r *Registry) Load(ctx context.Context, paths ...string) (*Document, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, p := range paths {
		found, err := fsutil.FindFiles(p, r.exts...)
		if err != nil {
			return nil, fmt.Errorf("failed to find pipeline files in %s: %w", p, err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		logger.Warn("No pipeline files found, returning empty document.", "paths", paths)
		return &Document{}, nil
	}

	doc := &Document{}
	for _, f := range files {
		l, ok := r.byExt[strings.ToLower(filepath.Ext(f))]
		if !ok {
			return nil, fmt.Errorf("%s: %w", f, ErrNoLoader)
		}
		part, err := l.Load(ctx, f)
		if err != nil {
			return nil, err
		}
		doc.Merge(part)
	}
	logger.Debug("Pipeline loaded.", "files", len(files), "steps", len(doc.Tree.Steps), "services", len(doc.Services))
	return doc, nil
}
