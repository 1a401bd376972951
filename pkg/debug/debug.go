// Package debug provides conditional debug logging for ov.
//
// Debug logging is enabled by setting the ORBVIEW_DEBUG environment variable:
//
//	ORBVIEW_DEBUG=1 ov -select Nairobi
//
// When enabled, debug messages are written to stderr with timestamps.
// When disabled (default), all debug functions are no-ops.
//
// Usage:
//
//	debug.Log("selected %s with %d satellites", id, len(ids))
//	defer debug.LogEnterExit("loader.Load")()
package debug

import (
	"io"
	"log"
	"os"
	"sync"
	"time"
)

const prefix = "[OV_DEBUG] "

var (
	mu      sync.RWMutex
	enabled bool
	logger  *log.Logger
)

func init() {
	if os.Getenv("ORBVIEW_DEBUG") != "" {
		enabled = true
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// SetOutput redirects debug output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(w, prefix, 0)
}

func active() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if !enabled {
		return nil
	}
	return logger
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if l := active(); l != nil {
		l.Printf(format, args...)
	}
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if l := active(); l != nil {
		l.Printf("%s took %v", name, d)
	}
}

// LogIf writes a debug message only if the condition is true.
func LogIf(cond bool, format string, args ...any) {
	if !cond {
		return
	}
	Log(format, args...)
}

// LogEnterExit logs function entry and exit with timing.
//
//	defer debug.LogEnterExit("selection.Select")()
func LogEnterExit(name string) func() {
	l := active()
	if l == nil {
		return func() {}
	}
	l.Printf("-> %s", name)
	start := time.Now()
	return func() {
		l.Printf("<- %s (%v)", name, time.Since(start))
	}
}

// Dump logs a value with its type for debugging complex structures.
func Dump(name string, v any) {
	if l := active(); l != nil {
		l.Printf("%s: %T = %+v", name, v, v)
	}
}
