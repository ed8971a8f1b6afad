package app

import (
	"fmt"
	"path/filepath"
	"time"

	"diagram-display/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher reports changes to the open diagram file and its settings so
// the display can reload them. The containing directories are watched so
// that editors which replace a file on save are noticed too.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool
	settle   time.Duration
	onChange func(path string) // Called from the watcher goroutine
	stopCh   chan struct{}
	done     chan struct{}
}

// NewFileWatcher watches paths. Changes are reported once no further event
// arrived for the settle duration.
func NewFileWatcher(settle time.Duration, paths ...string) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("file watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher: w,
		files:   make(map[string]bool),
		settle:  settle,
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			w.Close()
			return nil, err
		}
		fw.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return fw, nil
}

// OnChange sets the callback invoked with the path of a changed file.
// It runs on the watcher goroutine; UI code must hand the work over to
// its own thread.
func (w *FileWatcher) OnChange(callback func(path string)) {
	w.onChange = callback
}

// Start begins watching in a background goroutine.
func (w *FileWatcher) Start() {
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.watchLoop()
}

// Stop ends the watcher goroutine and releases the OS watches.
func (w *FileWatcher) Stop() error {
	if w.stopCh != nil {
		close(w.stopCh)
		<-w.done
		w.stopCh = nil
	}
	return w.watcher.Close()
}

// watchLoop collects events and reports the changed files once they settle.
func (w *FileWatcher) watchLoop() {
	defer close(w.done)

	pending := make(map[string]bool)
	timer := time.NewTimer(w.settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Clean(ev.Name)
			if !w.files[name] || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending[name] = true
			timer.Reset(w.settle)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Logger().Warn("file watcher", "err", err)
		case <-timer.C:
			for p := range pending {
				logging.Logger().Debug("file changed", "path", p)
				if w.onChange != nil {
					w.onChange(p)
				}
			}
			clear(pending)
		}
	}
}
