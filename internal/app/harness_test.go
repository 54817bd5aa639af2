package app_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/stagegraph/internal/app"
	"github.com/vk/stagegraph/internal/config"
	"github.com/vk/stagegraph/internal/diagram"
	"github.com/vk/stagegraph/internal/hcl"
	"github.com/vk/stagegraph/internal/testutil"
	"github.com/vk/stagegraph/internal/yamlconfig"
)

const deployYAML = `name: deploy
services:
  - identifier: db
    name: Postgres
    type: postgres
steps:
  - step: {identifier: build, name: Build, type: ShellScript}
  - parallel:
      - step: {identifier: lint, name: Lint, type: ShellScript}
      - step: {identifier: test, name: Test, type: ShellScript}
  - stepGroup:
      identifier: release
      name: Release
      steps:
        - step: {identifier: push, name: Push, type: ShellScript}
rollbackSteps:
  - step: {identifier: cleanup, name: Cleanup, type: ShellScript}
`

type recordingPublisher struct {
	mu        sync.Mutex
	published []*diagram.Model
	closed    bool
}

func (p *recordingPublisher) Publish(m *diagram.Model) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, m)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

// harness is an App wired to the real loaders with output and logs captured
// separately.
type harness struct {
	App  *app.App
	Out  *testutil.SafeBuffer
	Logs *testutil.SafeBuffer
	Pub  *recordingPublisher
}

func newHarness(t *testing.T, cfg app.Config) *harness {
	t.Helper()

	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	validated, err := app.NewConfig(cfg)
	require.NoError(t, err)

	h := &harness{Out: &testutil.SafeBuffer{}, Logs: &testutil.SafeBuffer{}, Pub: &recordingPublisher{}}
	loader := config.NewRegistry(hcl.NewLoader(), yamlconfig.NewLoader())
	h.App = app.NewApp(h.Out, validated, loader, app.WithLogWriter(h.Logs), app.WithPublisher(h.Pub))
	t.Cleanup(func() {
		if t.Failed() {
			t.Logf("--- logs for %s ---\n%s", t.Name(), h.Logs.String())
		}
	})
	return h
}
