package testsuite

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"rolegate/internal/target"
	"rolegate/internal/targets/runtime"
)

// Watcher reruns a test target whenever project sources change. Events are
// debounced so editor save bursts trigger a single run.
type Watcher struct {
	target   *Target
	debounce time.Duration
}

// NewWatcher wraps a test target in watch mode.
func NewWatcher(t *Target) *Watcher {
	return &Watcher{target: t, debounce: 500 * time.Millisecond}
}

// Watch blocks, rerunning the target on source changes, until the context is
// cancelled. The initial run happens immediately.
func (w *Watcher) Watch(ctx *target.Context) error {
	if err := runtime.ValidateContext(w.target.Info().ID, ctx); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := addSourceDirs(watcher, ctx.Config.ProjectDir); err != nil {
		return err
	}

	w.runOnce(ctx)

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Context().Done():
			return ctx.Context().Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(event) {
				continue
			}
			// New directories need to be picked up for future events.
			if event.Op.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			ctx.Log.Warn("watch error", zap.Error(err))
		case <-fire:
			timer = nil
			w.runOnce(ctx)
		}
	}
}

func (w *Watcher) runOnce(ctx *target.Context) {
	runtime.Progressf(ctx, "running %s", w.target.Info().ID)
	result, err := w.target.Run(ctx)
	if err != nil {
		runtime.Progressf(ctx, "%s: %v", w.target.Info().ID, err)
		return
	}
	runtime.Progressf(ctx, "%s: %s %s", w.target.Info().ID, result.Status, result.Message)
}

func addSourceDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		name := entry.Name()
		if path != root && (strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules") {
			return fs.SkipDir
		}
		return watcher.Add(path)
	})
}

func relevantEvent(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch filepath.Ext(name) {
	case ".go", ".py", ".yaml", ".yml", ".po", ".pot":
		return true
	}
	return false
}
