package yamlconfig

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/stagegraph/internal/config"
	"github.com/vk/stagegraph/internal/ctxlog"
	"github.com/vk/stagegraph/internal/fsutil"
	"github.com/vk/stagegraph/internal/layout"
	"github.com/vk/stagegraph/internal/pipeline"
	"gopkg.in/yaml.v3"
)

// Format is a wire format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf picks the format from a file name. Anything but .json is YAML.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// file is the on-disk document.
type file struct {
	Name          string               `yaml:"name,omitempty" json:"name,omitempty"`
	Services      []*pipeline.Service  `yaml:"services,omitempty" json:"services,omitempty"`
	Steps         []*pipeline.StepNode `yaml:"steps" json:"steps"`
	RollbackSteps []*pipeline.StepNode `yaml:"rollbackSteps,omitempty" json:"rollbackSteps,omitempty"`
	Style         *layout.Style        `yaml:"style,omitempty" json:"style,omitempty"`
}

// Loader is the YAML/JSON implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new YAML/JSON loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string { return []string{".yaml", ".yml", ".json"} }

// Load reads every YAML or JSON file under paths and merges them, in
// lexical file order, into one document.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Document, error) {
	logger := ctxlog.FromContext(ctx)

	doc := &config.Document{}
	for _, p := range paths {
		files, err := fsutil.FindFiles(p, l.Extensions()...)
		if err != nil {
			return nil, fmt.Errorf("failed to find pipeline files in %s: %w", p, err)
		}
		for _, f := range files {
			logger.Debug("Parsing pipeline file.", "path", f, "format", FormatOf(f))
			src, err := os.ReadFile(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", f, err)
			}
			part, err := Parse(src, FormatOf(f))
			if err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", f, err)
			}
			part.Sources = []string{f}
			doc.Merge(part)
		}
	}
	return doc, nil
}

// Parse decodes one document. Unknown top-level fields are rejected.
func Parse(src []byte, format Format) (*config.Document, error) {
	var f file
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(src))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, err
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(src))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	}
	doc := &config.Document{
		Name:     f.Name,
		Services: f.Services,
		Tree:     pipeline.Tree{Steps: f.Steps, RollbackSteps: f.RollbackSteps},
	}
	if f.Style != nil {
		if f.Style.Negative() {
			return nil, errors.New("style metrics must not be negative")
		}
		doc.Style = *f.Style
	}
	return doc, nil
}

// Write encodes doc to w.
func Write(w io.Writer, doc *config.Document, format Format) error {
	f := file{
		Name:          doc.Name,
		Services:      doc.Services,
		Steps:         doc.Tree.Steps,
		RollbackSteps: doc.Tree.RollbackSteps,
	}
	if f.Steps == nil {
		f.Steps = []*pipeline.StepNode{}
	}
	if doc.Style != (layout.Style{}) {
		style := doc.Style
		f.Style = &style
	}

	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(f)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}
