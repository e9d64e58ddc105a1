// Package watch rebuilds documents when their source files change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/dgallion1/docdeck/internal/manifest"
	"github.com/dgallion1/docdeck/internal/pipeline"
)

// Target receives the debounced changes.
type Target interface {
	Rebuild(docID string, force bool) (*pipeline.Job, error)
	Remove(docID string) bool
}

// Watcher maps file events under a docs directory to document sections.
type Watcher struct {
	root     string
	glob     string
	site     *manifest.Manifest
	target   Target
	debounce time.Duration
	log      *slog.Logger
}

func New(root, glob string, site *manifest.Manifest, target Target, debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	if !doublestar.ValidatePattern(glob) {
		return nil, errors.New("watch: invalid glob " + glob)
	}
	return &Watcher{
		root:     root,
		glob:     glob,
		site:     site,
		target:   target,
		debounce: debounce,
		log:      log,
	}, nil
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, w.root); err != nil {
		return err
	}
	w.log.Info("watcher: started", "root", w.root, "glob", w.glob)

	// docID -> source path, flushed once the debounce window is quiet.
	pending := make(map[string]string)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("watcher: stopped")
			return nil

		case <-timer.C:
			w.flush(pending)
			clear(pending)

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(fw, ev.Name); addErr != nil {
						w.log.Warn("watcher: add new dir failed", "path", ev.Name, "error", addErr)
					}
					continue
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			docID, ok := w.sectionFor(ev.Name)
			if !ok {
				continue
			}
			w.log.Debug("watcher: change", "doc_id", docID, "op", ev.Op.String())
			pending[docID] = ev.Name
			timer.Reset(w.debounce)

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher: error", "error", watchErr)
		}
	}
}

// sectionFor maps an absolute path to the id of the section it backs.
func (w *Watcher) sectionFor(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if match, _ := doublestar.Match(w.glob, rel); !match {
		return "", false
	}
	sec, ok := w.site.SectionForFile(rel)
	if !ok {
		return "", false
	}
	return sec.ID, true
}

// flush settles each pending document by what is on disk now, so a
// save-by-rename ends up as a rebuild rather than a removal.
func (w *Watcher) flush(pending map[string]string) {
	for docID, path := range pending {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			w.target.Remove(docID)
			continue
		}
		if _, err := w.target.Rebuild(docID, false); err != nil {
			w.log.Warn("watcher: rebuild not queued", "doc_id", docID, "error", err)
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}
