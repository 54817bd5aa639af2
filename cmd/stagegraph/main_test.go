package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/stagegraph/internal/cli"
)

func TestRun_Help(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}

	err := run(context.Background(), out, &bytes.Buffer{}, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error for help")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"render", "--this-is-not-a-valid-flag"})

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, err.Error(), "unknown flag: --this-is-not-a-valid-flag")
}

func TestRun_LoadError(t *testing.T) {
	t.Parallel()

	// An unterminated block fails in the HCL parser.
	invalidHCL := `
		step "build" {
			type = "ShellScript"
	`
	filePath := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(invalidHCL), 0o600), "failed to set up test file")

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"render", filePath})

	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to load pipeline")
}

func TestRun_Render(t *testing.T) {
	t.Parallel()

	filePath := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(`step "build" { type = "ShellScript" }`), 0o600))
	out := &bytes.Buffer{}

	require.NoError(t, run(context.Background(), out, &bytes.Buffer{}, []string{"render", filePath}))
	require.Contains(t, out.String(), "build")
}
