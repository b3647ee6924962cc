package storage

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/workstore/workstore/pkg/telemetry"
)

// FolderWatcher watches a workspace's working folder and reports when the
// backing database disappears out from under the manager, e.g. when a user
// or cleanup job deletes it. The usual invalidate func is Manager.Shutdown,
// so the next GetStore recreates the store instead of handing out a handle
// to a vanished file.
type FolderWatcher struct {
	fsw        *fsnotify.Watcher
	database   string
	invalidate func()
	logger     *telemetry.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// WatchWorkingFolder starts watching workingFolder for removal of the
// backing database. invalidate runs on the watcher's goroutine, at most
// once per observed removal; it must not block for long.
func WatchWorkingFolder(workingFolder string, invalidate func(), logger *telemetry.Logger) (*FolderWatcher, error) {
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create folder watcher: %w", err)
	}
	if err := fsw.Add(workingFolder); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", workingFolder, err)
	}

	w := &FolderWatcher{
		fsw:        fsw,
		database:   filepath.Join(workingFolder, DatabaseFileName),
		invalidate: invalidate,
		logger:     logger.NewComponentLogger("storage.watcher"),
		done:       make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *FolderWatcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Name != w.database {
				continue
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				w.logger.WithField("database", w.database).Warn("backing database removed externally, invalidating store")
				w.invalidate()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("folder watcher error")
		}
	}
}

// Close stops the watcher. Safe to call more than once.
func (w *FolderWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fsw.Close()
		<-w.done
	})
	return err
}
