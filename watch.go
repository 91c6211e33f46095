package blockview

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Invalidator drops cached assets so the next resolution refetches them.
type Invalidator interface {
	Invalidate() error
}

// AssetWatcher invalidates a scene when files under an asset directory
// change. Bursts of events within the debounce window cause one reload.
type AssetWatcher struct {
	fsw      *fsnotify.Watcher
	target   Invalidator
	onReload func()
	debounce time.Duration
	log      Logger

	closeOnce sync.Once
	done      chan struct{}
	stopped   chan struct{}
}

var watchedExt = map[string]bool{".json": true, ".png": true, ".zst": true}

// WatchAssets starts watching root and all of its subdirectories. onReload,
// when set, runs after each invalidation.
func WatchAssets(root string, target Invalidator, debounce time.Duration, onReload func(), log Logger) (*AssetWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	w := &AssetWatcher{
		fsw:      fsw,
		target:   target,
		onReload: onReload,
		debounce: debounce,
		log:      orNop(log),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}
	go w.run()
	return w, nil
}

func (w *AssetWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

func (w *AssetWatcher) run() {
	defer close(w.stopped)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false
	for {
		select {
		case e, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if e.Op&fsnotify.Create != 0 {
				if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
					if err := w.addRecursive(e.Name); err != nil {
						w.log.Warnf("watch %s: %v", e.Name, err)
					}
					continue
				}
			}
			if !watchedExt[filepath.Ext(e.Name)] || e.Op == fsnotify.Chmod {
				continue
			}
			w.log.Debugf("asset changed: %s", e.Name)
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.debounce)
			pending = true

		case <-timer.C:
			pending = false
			if err := w.target.Invalidate(); err != nil {
				if errors.Is(err, ErrSceneClosed) {
					return
				}
				w.log.Errorf("invalidate: %v", err)
				continue
			}
			w.log.Infof("assets changed, caches invalidated")
			if w.onReload != nil {
				w.onReload()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Errorf("watch: %v", err)

		case <-w.done:
			timer.Stop()
			return
		}
	}
}

// Close stops the watcher and waits for its loop to exit.
func (w *AssetWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		<-w.stopped
		err = w.fsw.Close()
	})
	return err
}
