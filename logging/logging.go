// Package logging provides the benchmark's append-only log file. Console
// output stays on stdout/stderr; every line is mirrored here for post-run
// inspection. All functions are safe to call before Initialize and after
// Shutdown; they simply do nothing.
package logging

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// DefaultLogFilePath is used when no --log-file is given.
const DefaultLogFilePath = "video-benchmark.log"

var (
	mu   sync.Mutex
	file *os.File
)

// Initialize opens (or creates) the log file in append mode.
func Initialize(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "opening log file %q", path)
	}
	file = f
	return nil
}

// Info appends an info-level line.
func Info(message string) {
	write("info", message)
}

// Error appends an error-level line.
func Error(message string) {
	write("error", message)
}

func write(level, message string) {
	mu.Lock()
	defer mu.Unlock()

	if file == nil {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(file, "%s [%s] %s\n", ts, level, message)
}

// Shutdown flushes and closes the log file.
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()

	if file == nil {
		return
	}
	_ = file.Sync()
	_ = file.Close()
	file = nil
}
