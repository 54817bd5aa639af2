package app

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/vk/stagegraph/internal/canvas"
)

// Watch renders once, then re-renders whenever a watched file changes until
// ctx is cancelled. When HealthcheckPort is set the health and metrics
// endpoints are served alongside.
func (a *App) Watch(ctx context.Context) error {
	ctx = a.context(ctx)
	if err := a.connectPublisher(ctx); err != nil {
		return err
	}
	defer a.closePublisher()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	filter, err := a.addWatches(watcher)
	if err != nil {
		return err
	}

	if err := a.renderOnce(ctx); err != nil {
		a.logger.Error("Initial render failed.", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if a.config.HealthcheckPort > 0 {
		g.Go(func() error { return a.serveHealthcheck(gctx) })
	}
	g.Go(func() error { return a.watchLoop(gctx, watcher, filter) })
	return g.Wait()
}

func (a *App) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, relevant func(string) bool) error {
	debouncer := canvas.NewDebouncer(a.config.WatchDebounce)
	defer debouncer.Cancel()

	reload := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			a.logger.Debug("Watcher stopping.")
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := watcher.Add(ev.Name); err != nil {
						a.logger.Warn("Failed to watch new directory.", "dir", ev.Name, "error", err)
					}
					continue
				}
			}
			if ev.Op == fsnotify.Chmod || !relevant(ev.Name) {
				continue
			}
			a.logger.Debug("Change detected.", "file", ev.Name, "op", ev.Op.String())
			debouncer.Trigger(func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("Watcher error.", "error", err)
		case <-reload:
			a.metrics.reloads.Inc()
			if err := a.renderOnce(ctx); err != nil {
				a.logger.Error("Render failed.", "error", err)
			}
		}
	}
}

// addWatches registers the configured paths. fsnotify watches directories,
// so a file is watched through its parent. The returned filter keeps events
// for watched files and, below watched directories, for loadable extensions.
func (a *App) addWatches(watcher *fsnotify.Watcher) (func(string) bool, error) {
	files := map[string]bool{}
	var (
		dirs []string
		tree bool
	)

	for _, p := range []string{a.config.PipelinePath, a.config.ExecutionPath} {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to watch %s: %w", p, err)
		}
		if !info.IsDir() {
			files[abs] = true
			dirs = append(dirs, filepath.Dir(abs))
			continue
		}
		tree = true
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != abs && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				dirs = append(dirs, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}

	slices.Sort(dirs)
	for _, dir := range slices.Compact(dirs) {
		if err := watcher.Add(dir); err != nil {
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		a.logger.Debug("Watching directory.", "dir", dir)
	}

	exts := a.loader.Extensions()
	return func(name string) bool {
		abs, err := filepath.Abs(name)
		if err != nil {
			return false
		}
		if files[abs] {
			return true
		}
		return tree && slices.Contains(exts, strings.ToLower(filepath.Ext(abs)))
	}, nil
}
