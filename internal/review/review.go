// Package review records what the operator changes in the scratch tree
// while a run is paused for manual review.
package review

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Kind is what happened to a path.
type Kind string

const (
	Modified Kind = "modified"
	Removed  Kind = "removed"
)

// Change is the last recorded state of one path, relative to the root.
type Change struct {
	Path string `json:"path" yaml:"path"`
	Kind Kind   `json:"kind" yaml:"kind"`
}

// Watcher watches a directory tree until stopped.
type Watcher struct {
	root    string
	fsw     *fsnotify.Watcher
	logger  *slog.Logger
	done    chan struct{}
	mu      sync.Mutex
	changes map[string]Kind
}

// Watch starts watching root and every directory below it. Directories
// created later are watched as they appear.
func Watch(root string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		root:    root,
		fsw:     fsw,
		logger:  logger,
		done:    make(chan struct{}),
		changes: make(map[string]Kind),
	}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("review watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	var kind Kind
	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		kind = Removed
	case event.Has(fsnotify.Create):
		kind = Modified
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("cannot watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	case event.Has(fsnotify.Write):
		kind = Modified
	default:
		// Chmod
		return
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		rel = event.Name
	}
	rel = filepath.ToSlash(rel)

	w.mu.Lock()
	w.changes[rel] = kind
	w.mu.Unlock()
	w.logger.Debug("review change", "path", rel, "kind", kind)
}

// Changes returns the changes recorded so far, sorted by path.
func (w *Watcher) Changes() []Change {
	w.mu.Lock()
	defer w.mu.Unlock()

	changes := make([]Change, 0, len(w.changes))
	for path, kind := range w.changes {
		changes = append(changes, Change{Path: path, Kind: kind})
	}
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
	return changes
}

// Stop ends watching and returns every recorded change.
func (w *Watcher) Stop() []Change {
	if err := w.fsw.Close(); err != nil {
		w.logger.Debug("closing review watcher", "error", err)
	}
	<-w.done
	return w.Changes()
}
