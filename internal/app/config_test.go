package app_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/stagegraph/internal/app"
	"github.com/vk/stagegraph/internal/layout"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name    string
		in      app.Config
		wantErr string
	}{
		{name: "missing paths", in: app.Config{}, wantErr: "PipelinePath is a required"},
		{name: "bad format", in: app.Config{PipelinePath: "p.yaml", LogFormat: "xml"}, wantErr: "invalid log format"},
		{name: "bad level", in: app.Config{PipelinePath: "p.yaml", LogLevel: "trace"}, wantErr: "invalid log level"},
		{name: "bad port", in: app.Config{PipelinePath: "p.yaml", HealthcheckPort: 70000}, wantErr: "invalid healthcheck port"},
		{name: "negative style", in: app.Config{PipelinePath: "p.yaml", Style: layout.Style{Gap: -1}}, wantErr: "invalid style"},
		{name: "execution only", in: app.Config{ExecutionPath: "e.json"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := app.NewConfig(tc.in)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := app.NewConfig(app.Config{PipelinePath: "p.hcl"})
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, app.DefaultWatchDebounce, cfg.WatchDebounce)
	assert.Zero(t, cfg.Style, "style overrides stay unset so the pipeline's style block applies")
}
