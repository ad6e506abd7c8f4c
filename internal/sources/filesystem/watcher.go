package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/govlens/internal/logger"
)

// Watch implements driven.ChangeNotifier. It blocks until ctx is cancelled,
// calling onChange for every created, written, removed or renamed file.
func (l *Loader) Watch(ctx context.Context, onChange func(resourceID string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := l.addTree(watcher, l.root); err != nil {
		return err
	}
	logger.Debug("filesystem: watching %s", l.root)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// New directories must be watched explicitly.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !isHidden(event.Name) {
					if err := l.addTree(watcher, event.Name); err != nil {
						log.Printf("filesystem watcher: %v", err)
					}
					continue
				}
			}
			if rid := l.handleFsEvent(event); rid != "" {
				onChange(rid)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("filesystem watcher: %v", err)
		}
	}
}

// addTree watches dir and every non-hidden directory below it.
func (l *Loader) addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != l.root && isHidden(p) {
			return filepath.SkipDir
		}
		if err := w.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

// handleFsEvent converts a watcher event to a resource ID, or "" when the
// event does not concern a framework file.
func (l *Loader) handleFsEvent(event fsnotify.Event) string {
	if isHidden(event.Name) {
		return ""
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return ""
	}
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			return ""
		}
	}
	return l.resourceID(event.Name)
}

// isHidden reports whether any element of the path starts with a dot.
func isHidden(p string) bool {
	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		if len(part) > 1 && strings.HasPrefix(part, ".") && part != ".." {
			return true
		}
	}
	return false
}
