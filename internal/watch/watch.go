// Package watch triggers a units reload when files under the units tree
// change. Bursts of editor events are debounced into one reload.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const (
	defaultDebounce    = 250 * time.Millisecond
	restartBackoffBase = 250 * time.Millisecond
	restartBackoffMax  = 5 * time.Second
)

// Watcher watches a directory tree; fsnotify is not recursive, so every
// directory is added individually, including ones created later.
type Watcher struct {
	root     string
	reload   func(ctx context.Context)
	debounce time.Duration
	log      zerolog.Logger
}

func New(root string, reload func(ctx context.Context), debounce time.Duration, log zerolog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{root: root, reload: reload, debounce: debounce, log: log}
}

// Run blocks until ctx is done, recreating the underlying watcher with
// backoff if it breaks.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	trigger := func(path string) {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		w.log.Debug().Str("path", path).Msg("unit change detected, scheduling reload")
		timer = time.AfterFunc(w.debounce, func() {
			if ctx.Err() == nil {
				w.reload(ctx)
			}
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	backoff := restartBackoffBase
	for {
		if ctx.Err() != nil {
			return nil
		}
		err := w.watch(ctx, trigger)
		if err == nil {
			return nil
		}
		w.log.Warn().Err(err).Str("dir", w.root).Dur("retry", backoff).Msg("unit watcher failed")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, restartBackoffMax)
	}
}

// watch runs one fsnotify watcher until ctx is done (nil) or it breaks.
func (w *Watcher) watch(ctx context.Context, trigger func(string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addTree(fw, w.root); err != nil {
		return err
	}
	w.log.Debug().Str("dir", w.root).Msg("unit watcher started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return fsnotify.ErrClosed
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := addTree(fw, ev.Name); err != nil {
						w.log.Warn().Err(err).Str("dir", ev.Name).Msg("failed to watch new directory")
					}
					trigger(ev.Name)
					continue
				}
			}
			if relevant(ev) {
				trigger(ev.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return fsnotify.ErrClosed
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.log.Warn().Err(err).Msg("unit watch overflow, forcing reload")
				trigger(w.root)
				continue
			}
			w.log.Warn().Err(err).Msg("unit watch error")
		}
	}
}

// relevant reports whether ev touches a unit file.
func relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	ext := strings.ToLower(filepath.Ext(ev.Name))
	if ext == ".yaml" || ext == ".yml" {
		return true
	}
	// removing or renaming a category directory
	return ext == "" && ev.Has(fsnotify.Remove|fsnotify.Rename)
}

func addTree(fw *fsnotify.Watcher, root string) error {
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
