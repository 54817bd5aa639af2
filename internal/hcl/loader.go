package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/stagegraph/internal/config"
	"github.com/vk/stagegraph/internal/ctxlog"
	"github.com/vk/stagegraph/internal/fsutil"
)

// Extension is the file extension the loader reads.
const Extension = ".hcl"

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string { return []string{Extension} }

// Load parses every .hcl file under paths and merges them, in lexical file
// order, into one document.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Document, error) {
	logger := ctxlog.FromContext(ctx)
	parser := hclparse.NewParser()

	doc := &config.Document{}
	for _, p := range paths {
		files, err := fsutil.FindFiles(p, Extension)
		if err != nil {
			return nil, fmt.Errorf("failed to find HCL files in %s: %w", p, err)
		}
		for _, f := range files {
			logger.Debug("Parsing HCL file.", "path", f)
			part, err := l.loadFile(parser, f)
			if err != nil {
				return nil, err
			}
			doc.Merge(part)
		}
	}
	return doc, nil
}

// Parse decodes a single HCL source held in memory. filename is only used in
// diagnostics.
func (l *Loader) Parse(src []byte, filename string) (*config.Document, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return l.decodeFile(file, filename)
}

func (l *Loader) loadFile(parser *hclparse.Parser, path string) (*config.Document, error) {
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	return l.decodeFile(file, path)
}

func (l *Loader) decodeFile(file *hcl.File, path string) (*config.Document, error) {
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("failed to decode HCL file %s: not native HCL syntax", path)
	}

	d := newDecoder()
	doc, diags := d.file(body)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}
	doc.Sources = []string{path}
	return doc, nil
}
