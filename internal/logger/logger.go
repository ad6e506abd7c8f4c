// Package logger provides verbose logging for govlens.
// When verbose mode is enabled via the --verbose flag, messages are printed
// to stderr with the time elapsed since start, to trace the fetch, cache and
// query pipeline.
package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr

	now   = time.Now
	start = now()
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for verbose logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// logf writes one tagged line when verbose.
func logf(tag, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if !verbose {
		return
	}
	elapsed := now().Sub(start).Seconds()
	fmt.Fprintf(output, "%+8.3fs [%s] %s\n", elapsed, tag, fmt.Sprintf(format, args...))
}

// Debug traces pipeline steps.
func Debug(format string, args ...any) { logf("DEBUG", format, args...) }

// Info reports notable progress, such as a framework being installed.
func Info(format string, args ...any) { logf("INFO", format, args...) }

// Warn reports degraded operation, such as a fallback being served.
func Warn(format string, args ...any) { logf("WARN", format, args...) }

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Event prints a telemetry event with its fields sorted by name.
func Event(name string, fields map[string]any) {
	if !IsVerbose() {
		return
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	logf("EVENT", "%s", b.String())
}
