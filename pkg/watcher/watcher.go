// Package watcher reports changes to the dataset files of a data directory,
// using fsnotify with a stat-polling fallback for remote filesystems.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/orbview/pkg/debug"
)

// DefaultPollInterval is the default polling interval for fallback mode.
const DefaultPollInterval = 2 * time.Second

// Common errors.
var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
	ErrNoFiles        = errors.New("no files to watch")
)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDuration sets the debounce duration.
func WithDebounceDuration(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDuration = d
	}
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.pollInterval = d
	}
}

// WithOnChange sets the callback invoked when any watched file changes.
func WithOnChange(fn func()) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// WithOnError sets the callback invoked on errors. Removal of a watched
// file is reported as an error wrapping ErrFileRemoved.
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) WatcherOption {
	return func(w *Watcher) {
		w.forcePoll = force
	}
}

type fileState struct {
	mtime time.Time
	size  int64
}

// Watcher monitors a set of files in one directory.
type Watcher struct {
	dir              string
	names            []string
	debounceDuration time.Duration
	pollInterval     time.Duration
	onChange         func()
	onError          func(error)
	forcePoll        bool
	forcePollEnv     bool
	fsType           FilesystemType

	fsWatcher   *fsnotify.Watcher
	debouncer   *Debouncer
	useFallback bool
	last        map[string]fileState

	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
	changeCh chan struct{}
}

// NewWatcher creates a watcher for the named files inside dir. Files that do
// not exist yet are picked up when they appear.
func NewWatcher(dir string, names []string, opts ...WatcherOption) (*Watcher, error) {
	if len(names) == 0 {
		return nil, ErrNoFiles
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		dir:              absDir,
		names:            append([]string(nil), names...),
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onChange:         func() {},
		onError:          func(error) {},
		changeCh:         make(chan struct{}, 1),
		last:             make(map[string]fileState, len(names)),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.debouncer = NewDebouncer(w.debounceDuration)

	return w, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	// Reset per-start state.
	w.useFallback = false
	w.forcePollEnv = envBool("ORBVIEW_FORCE_POLLING") || envBool("ORBVIEW_FORCE_POLL")

	w.fsType = DetectFilesystemType(w.dir)
	if isRemoteFilesystem(w.fsType) {
		w.useFallback = true
	}

	forcePoll := w.forcePoll || w.forcePollEnv
	if forcePoll {
		w.useFallback = true
	}

	for _, name := range w.names {
		info, err := os.Stat(filepath.Join(w.dir, name))
		switch {
		case err == nil:
			w.last[name] = fileState{mtime: info.ModTime(), size: info.Size()}
		case os.IsPermission(err):
			return fmt.Errorf("%s: %w", name, ErrPermission)
		default:
			// File might not exist yet, that's okay
			delete(w.last, name)
		}
	}

	w.ctx, w.cancel = context.WithCancel(context.Background())

	// The directory is watched rather than the files so atomic renames are seen.
	if !w.useFallback {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			w.useFallback = true
		} else if err := fsw.Add(w.dir); err != nil {
			fsw.Close()
			w.useFallback = true
		} else {
			w.fsWatcher = fsw
			go w.watchFsnotify()
		}
	}

	if w.useFallback {
		go w.watchPolling()
	}

	debug.Log("watcher: %s %v (fs=%s, polling=%v)", w.dir, w.names, w.fsType, w.useFallback)
	w.started = true
	return nil
}

// Stop stops watching. The change channel stays open so a pending receiver
// is not woken by a close.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}

	if w.cancel != nil {
		w.cancel()
	}

	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}

	w.debouncer.Cancel()
	w.started = false
}

// IsPolling returns true if the watcher is using polling mode.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.useFallback
}

// IsStarted returns true if the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Changed returns a channel that receives when a watched file changes.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changeCh
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Files returns the watched file names.
func (w *Watcher) Files() []string {
	return append([]string(nil), w.names...)
}

// FilesystemType returns the best-effort filesystem classification for the watched directory.
func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fsType
}

// PollInterval returns the polling interval used when polling mode is active.
func (w *Watcher) PollInterval() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pollInterval
}

func envBool(name string) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return false
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func (w *Watcher) watched(name string) bool {
	for _, n := range w.names {
		if n == name {
			return true
		}
	}
	return false
}

// watchFsnotify monitors using fsnotify events.
func (w *Watcher) watchFsnotify() {
	// Capture channel references to avoid race with Stop() setting fsWatcher to nil
	w.mu.RLock()
	if w.fsWatcher == nil {
		w.mu.RUnlock()
		return
	}
	ctx := w.ctx
	events := w.fsWatcher.Events
	errs := w.fsWatcher.Errors
	w.mu.RUnlock()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				return
			}

			name := filepath.Base(event.Name)
			if !w.watched(name) {
				continue
			}

			switch {
			case event.Op&fsnotify.Remove != 0:
				w.onError(fmt.Errorf("%s: %w", name, ErrFileRemoved))

			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0:
				w.debouncer.Trigger(w.notifyChange)
			}

		case err, ok := <-errs:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

// watchPolling monitors using periodic stat checks.
func (w *Watcher) watchPolling() {
	w.mu.RLock()
	ctx := w.ctx
	interval := w.pollInterval
	w.mu.RUnlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if w.pollOnce() {
				w.debouncer.Trigger(w.notifyChange)
			}
		}
	}
}

// pollOnce stats every watched file and reports whether any changed.
func (w *Watcher) pollOnce() bool {
	changed := false
	for _, name := range w.names {
		info, err := os.Stat(filepath.Join(w.dir, name))

		w.mu.Lock()
		prev, had := w.last[name]
		switch {
		case err == nil:
			cur := fileState{mtime: info.ModTime(), size: info.Size()}
			if !had || cur.mtime.After(prev.mtime) || cur.size != prev.size {
				w.last[name] = cur
				changed = true
			}
		case os.IsNotExist(err):
			delete(w.last, name)
		}
		w.mu.Unlock()

		if err == nil {
			continue
		}
		switch {
		case os.IsNotExist(err):
			// Only report if the file existed before
			if had {
				w.onError(fmt.Errorf("%s: %w", name, ErrFileRemoved))
			}
		case os.IsPermission(err):
			w.onError(fmt.Errorf("%s: %w", name, ErrPermission))
		default:
			w.onError(err)
		}
	}
	return changed
}

// notifyChange invokes the onChange callback and signals the change channel.
func (w *Watcher) notifyChange() {
	w.mu.RLock()
	started := w.started
	w.mu.RUnlock()

	// Best effort: a callback racing Stop() may still run once.
	if !started {
		return
	}

	debug.Log("watcher: change in %s", w.dir)
	w.onChange()

	// Non-blocking send to change channel
	select {
	case w.changeCh <- struct{}{}:
	default:
	}
}
