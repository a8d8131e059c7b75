package daemon

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

// DefaultDebounce is the quiet window used when none is configured.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors directory trees and calls onChange once a burst of file
// events has been quiet for the debounce window.
type Watcher struct {
	roots    []string
	excluded []string
	onChange func(reason string)
	debounce time.Duration
	watcher  *fsnotify.Watcher

	mu       sync.Mutex
	timer    *time.Timer
	lastPath string
	stopOnce sync.Once
}

// NewWatcher creates a watcher over roots. Empty roots are ignored.
func NewWatcher(roots []string, debounce time.Duration, onChange func(reason string)) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.ValidationError("change callback is required").Build()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.RuntimeError("failed to create file watcher").WithCause(err).Build()
	}

	w := &Watcher{onChange: onChange, debounce: debounce, watcher: fw}
	for _, root := range roots {
		if root == "" {
			continue
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			_ = fw.Close()
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to resolve watch path").
				WithContext("path", root).
				Build()
		}
		w.roots = append(w.roots, abs)
	}
	return w, nil
}

// Exclude drops events below the given paths, such as a build output
// directory nested inside a watched root. Call it before Start.
func (w *Watcher) Exclude(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to resolve excluded path").
				WithContext("path", p).
				Build()
		}
		w.excluded = append(w.excluded, abs)
	}
	return nil
}

// Start registers every directory below the roots and begins delivering
// events. It returns once the watches are in place.
func (w *Watcher) Start(ctx context.Context) error {
	for _, root := range w.roots {
		if err := w.addTree(root); err != nil {
			return err
		}
		slog.Info("Watching for changes", logfields.Path(root))
	}
	go w.watchLoop(ctx)
	return nil
}

// Stop releases the underlying watcher and cancels a pending callback.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to walk watch path").
				WithContext("path", p).
				Build()
		}
		if !d.IsDir() {
			return nil
		}
		if (p != root && ignored(d.Name())) || w.isExcluded(p) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to watch directory").
				WithContext("path", p).
				Build()
		}
		return nil
	})
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if ignored(filepath.Base(event.Name)) || event.Op == fsnotify.Chmod || w.isExcluded(event.Name) {
		return
	}
	// New directories need their own watch.
	if event.Op.Has(fsnotify.Create) {
		if err := w.addTree(event.Name); err != nil {
			slog.Debug("Could not watch new path", logfields.Path(event.Name), logfields.Error(err))
		}
	}
	slog.Debug("Change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
	w.schedule(event.Name)
}

// schedule restarts the debounce window.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastPath = path
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	path := w.lastPath
	w.mu.Unlock()
	w.onChange("change: " + path)
}

func (w *Watcher) isExcluded(path string) bool {
	for _, dir := range w.excluded {
		rel, err := filepath.Rel(dir, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// ignored matches editor swap files and hidden or underscore-prefixed
// entries, which never contribute to the site.
func ignored(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.HasPrefix(name, "_") ||
		strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp")
}
