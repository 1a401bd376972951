package watcher

import (
	"sync"
	"time"
)

// DefaultDebounceDuration coalesces the burst of events an editor or an
// exporter produces when rewriting the dataset files.
const DefaultDebounceDuration = 200 * time.Millisecond

// Debouncer runs only the last callback triggered within its window.
type Debouncer struct {
	duration time.Duration
	mu       sync.Mutex
	timer    *time.Timer
}

// NewDebouncer creates a debouncer. A non-positive duration selects
// DefaultDebounceDuration.
func NewDebouncer(d time.Duration) *Debouncer {
	if d <= 0 {
		d = DefaultDebounceDuration
	}
	return &Debouncer{duration: d}
}

// Trigger (re)arms the timer with fn.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, fn)
}

// Cancel drops any pending callback.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Duration returns the debounce window.
func (d *Debouncer) Duration() time.Duration {
	return d.duration
}
