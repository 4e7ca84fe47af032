// Package watch keeps the search index in sync with a source tree by
// rescanning files as they change on disk.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"anticlaw/internal/scan"
)

// DefaultDebounce coalesces rapid write bursts (editors often emit several
// events per save) into one rescan.
const DefaultDebounce = 500 * time.Millisecond

// Watcher wires fsnotify events to the scanner.
type Watcher struct {
	scanner  *scan.Scanner
	log      *zap.Logger
	debounce time.Duration
}

// New creates a Watcher. A zero debounce uses DefaultDebounce.
func New(scanner *scan.Scanner, debounce time.Duration, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{scanner: scanner, log: log, debounce: debounce}
}

// Run watches root recursively until ctx is cancelled. New directories are
// added to the watch as they appear; changed files are rescanned after the
// debounce window; removed files are dropped from the index.
func (w *Watcher) Run(ctx context.Context, root string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := addRecursive(fsw, root); err != nil {
		return err
	}
	w.log.Info("watching", zap.String("root", root))

	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(fsw, event, timers)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(fsw *fsnotify.Watcher, event fsnotify.Event, timers map[string]*time.Timer) {
	name := event.Name
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			if err := addRecursive(fsw, name); err != nil {
				w.log.Warn("adding watch", zap.String("path", name), zap.Error(err))
			}
			return
		}
		w.scheduleRescan(name, timers)

	case event.Has(fsnotify.Write):
		w.scheduleRescan(name, timers)

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if t, ok := timers[name]; ok {
			t.Stop()
			delete(timers, name)
		}
		removed, err := w.scanner.Remove(name)
		if err != nil {
			w.log.Warn("removing from index", zap.String("path", name), zap.Error(err))
			return
		}
		if removed {
			w.log.Info("removed from index", zap.String("path", name))
		}
	}
}

// scheduleRescan (re)arms the per-path debounce timer.
func (w *Watcher) scheduleRescan(path string, timers map[string]*time.Timer) {
	if t, ok := timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	timers[path] = time.AfterFunc(w.debounce, func() {
		indexed, err := w.scanner.ScanFile(path)
		if err != nil {
			w.log.Warn("rescanning", zap.String("path", path), zap.Error(err))
			return
		}
		if indexed {
			w.log.Info("reindexed", zap.String("path", path))
		}
	})
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}
