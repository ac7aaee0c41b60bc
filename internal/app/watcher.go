package app

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"warpcal/internal/logging"
)

// SettingsWatcher reports when a profile is changed on disk by another
// program, so an operator can edit the XML by hand and see the result.
// Profiles are replaced by rename, so the containing directory is watched.
type SettingsWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func(path string)

	mu       sync.Mutex
	baseline time.Time

	stopCh chan struct{}
	done   chan struct{}
}

// NewSettingsWatcher creates a watcher for the profile at path. The file
// need not exist yet.
func NewSettingsWatcher(path string) (*SettingsWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating settings watcher")
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return nil, multierr.Append(errors.Wrapf(err, "watching %s", filepath.Dir(abs)), w.Close())
	}

	sw := &SettingsWatcher{path: abs, watcher: w}
	sw.ResetBaseline()
	return sw, nil
}

// OnChange sets the callback invoked when the profile changes. The callback
// runs on the watcher goroutine.
func (w *SettingsWatcher) OnChange(callback func(path string)) {
	w.onChange = callback
}

// Start begins watching in a background goroutine.
func (w *SettingsWatcher) Start() {
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.watchLoop()
}

// Stop ends the watch and releases the watcher.
func (w *SettingsWatcher) Stop() error {
	if w.stopCh != nil {
		close(w.stopCh)
		<-w.done
		w.stopCh = nil
	}
	return w.watcher.Close()
}

func (w *SettingsWatcher) watchLoop() {
	defer close(w.done)
	log := logging.Named("app")
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if w.checkForUpdate() && w.onChange != nil {
				log.Infow("profile changed on disk", "path", w.path)
				w.onChange(w.path)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warnw("settings watcher", "error", err)
		}
	}
}

// checkForUpdate reports whether the profile is newer than the baseline and
// moves the baseline forward.
func (w *SettingsWatcher) checkForUpdate() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !info.ModTime().After(w.baseline) {
		return false
	}
	w.baseline = info.ModTime()
	return true
}

// ResetBaseline takes the current modification time as seen. Call it after
// saving the profile so the watcher ignores its own writes.
func (w *SettingsWatcher) ResetBaseline() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if info, err := os.Stat(w.path); err == nil {
		w.baseline = info.ModTime()
	} else {
		w.baseline = time.Time{}
	}
}

// Path returns the watched profile path.
func (w *SettingsWatcher) Path() string { return w.path }
