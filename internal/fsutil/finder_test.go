package fsutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/stagegraph/internal/fsutil"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o600))
}

func TestFindFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.hcl"))
	touch(t, filepath.Join(root, "a.YAML"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "nested", "c.hcl"))
	touch(t, filepath.Join(root, ".git", "d.hcl"))

	files, err := fsutil.FindFiles(root, ".hcl", ".yaml")
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "a.YAML"),
		filepath.Join(root, "b.hcl"),
		filepath.Join(root, "nested", "c.hcl"),
	}, files)
}

func TestFindFiles_SingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.txt")
	touch(t, path)

	files, err := fsutil.FindFiles(path, ".hcl")

	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}

func TestFindFiles_Errors(t *testing.T) {
	_, err := fsutil.FindFiles(filepath.Join(t.TempDir(), "missing"), ".hcl")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = fsutil.FindFiles(t.TempDir())
	assert.Error(t, err)
}
