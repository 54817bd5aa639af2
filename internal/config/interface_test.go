package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/stagegraph/internal/config"
	"github.com/vk/stagegraph/internal/layout"
	"github.com/vk/stagegraph/internal/pipeline"
)

// stubLoader returns one step per file, named after the file.
type stubLoader struct {
	exts  []string
	calls []string
}

func (s *stubLoader) Extensions() []string { return s.exts }

func (s *stubLoader) Load(_ context.Context, paths ...string) (*config.Document, error) {
	doc := &config.Document{}
	for _, p := range paths {
		s.calls = append(s.calls, p)
		doc.Merge(&config.Document{
			Sources: []string{p},
			Tree: pipeline.Tree{Steps: []*pipeline.StepNode{
				pipeline.NewStep(&pipeline.Step{Identifier: filepath.Base(p)}),
			}},
		})
	}
	return doc, nil
}

func write(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, nil, 0o600))
}

func TestRegistry_Load(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.hcl"))
	write(t, filepath.Join(dir, "b.yaml"))
	write(t, filepath.Join(dir, "c.txt"))

	hclLoader := &stubLoader{exts: []string{".hcl"}}
	yamlLoader := &stubLoader{exts: []string{".yaml", ".YML"}}
	reg := config.NewRegistry(hclLoader, yamlLoader)

	doc, err := reg.Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.hcl", "b.yaml"}, pipeline.Identifiers(&doc.Tree))
	assert.Len(t, hclLoader.calls, 1)
	assert.Len(t, yamlLoader.calls, 1)
	assert.Equal(t, []string{".hcl", ".yaml", ".yml"}, reg.Extensions())
}

func TestRegistry_UnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.toml")
	write(t, path)

	_, err := config.NewRegistry(&stubLoader{exts: []string{".hcl"}}).Load(context.Background(), path)

	assert.ErrorIs(t, err, config.ErrNoLoader)
}

func TestRegistry_EmptyDirectory(t *testing.T) {
	doc, err := config.NewRegistry(&stubLoader{exts: []string{".hcl"}}).Load(context.Background(), t.TempDir())

	require.NoError(t, err)
	assert.Empty(t, doc.Tree.Steps)
}

func TestDocument_Merge(t *testing.T) {
	doc := &config.Document{}
	doc.Merge(&config.Document{
		Name:     "first",
		Services: []*pipeline.Service{{Identifier: "db"}},
		Style:    layout.Style{Gap: 16},
	})
	doc.Merge(&config.Document{Name: "second", Style: layout.Style{Gap: 48, NodeWidth: 200}})
	doc.Merge(nil)

	assert.Equal(t, "first", doc.Name)
	assert.Len(t, doc.Services, 1)
	assert.Equal(t, layout.Style{Gap: 16, NodeWidth: 200}, doc.Style)
}
