package logging

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lineRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3} \[(info|error)\] .+$`)

func TestLogLineFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.log")
	require.NoError(t, Initialize(path))
	defer Shutdown()

	Info("starting up")
	Error("something broke")
	Shutdown()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Regexp(t, lineRe, line)
	}
	assert.Contains(t, lines[0], "[info] starting up")
	assert.Contains(t, lines[1], "[error] something broke")
}

func TestLoggingBeforeInitializeIsNoop(t *testing.T) {
	// Must not panic or create files.
	Info("dropped")
	Error("dropped")
}

func TestInitializeAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.log")

	require.NoError(t, Initialize(path))
	Info("first")
	Shutdown()

	require.NoError(t, Initialize(path))
	Info("second")
	Shutdown()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first")
	assert.Contains(t, string(data), "second")
}
