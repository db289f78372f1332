package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileLoggerCreatesRunDir(t *testing.T) {
	base := t.TempDir()
	l, err := NewFileLogger(base, "abc123")
	require.NoError(t, err)

	info, err := os.Stat(l.RunDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(base, "testrun-abc123"), l.RunDir())
}

func TestNewFileLoggerValidation(t *testing.T) {
	_, err := NewFileLogger("", "abc")
	require.Error(t, err)

	_, err = NewFileLogger(t.TempDir(), "")
	require.Error(t, err)
}

func TestWriteConsoleCapture(t *testing.T) {
	l, err := NewFileLogger(t.TempDir(), "run1")
	require.NoError(t, err)

	lines := []string{"📊 Tests: 1", "✅ only"}
	require.NoError(t, l.WriteConsoleCapture("smoke test/doc", lines))

	data, err := os.ReadFile(filepath.Join(l.RunDir(), "smoke_test_doc.console.log"))
	require.NoError(t, err)
	assert.Equal(t, "📊 Tests: 1\n✅ only\n", string(data))
}

func TestWriteSummary(t *testing.T) {
	l, err := NewFileLogger(t.TempDir(), "run2")
	require.NoError(t, err)

	require.NoError(t, l.WriteSummary("Total: 2, Passed: 2, Failed: 0\n"))

	data, err := os.ReadFile(filepath.Join(l.RunDir(), SummaryFilename))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Passed: 2")
}
