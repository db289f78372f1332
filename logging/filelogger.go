// Package logging persists run artifacts: the raw console capture of
// each hosted environment and a plain-text summary, grouped per run.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	RunDirectoryPrefix  = "testrun-" // Standardized prefix for run directories
	SummaryFilename     = "summary.log"
	ConsoleFileSuffix   = ".console.log"
	LatestRunSymlink    = "latest"
)

// FileLogger writes run artifacts under baseDir/testrun-<runID>
type FileLogger struct {
	baseDir string
	runID   string
	mu      sync.Mutex
}

// NewFileLogger creates a file logger for one run
func NewFileLogger(baseDir, runID string) (*FileLogger, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if runID == "" {
		return nil, fmt.Errorf("run ID is required")
	}

	l := &FileLogger{baseDir: baseDir, runID: runID}
	if err := os.MkdirAll(l.RunDir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory %s: %w", l.RunDir(), err)
	}
	if err := l.updateLatestSymlink(); err != nil {
		return nil, err
	}
	return l, nil
}

// RunDir returns the directory artifacts for this run are written to
func (l *FileLogger) RunDir() string {
	return filepath.Join(l.baseDir, RunDirectoryPrefix+l.runID)
}

// RunID returns the run identifier this logger writes under
func (l *FileLogger) RunID() string {
	return l.runID
}

// WriteConsoleCapture persists the raw console lines captured from one
// document environment
func (l *FileLogger) WriteConsoleCapture(document string, lines []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	path := filepath.Join(l.RunDir(), sanitizeFilename(document)+ConsoleFileSuffix)
	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write console capture for %q: %w", document, err)
	}
	return nil
}

// WriteSummary persists the run's plain-text summary
func (l *FileLogger) WriteSummary(content string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	path := filepath.Join(l.RunDir(), SummaryFilename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	return nil
}

// updateLatestSymlink points baseDir/latest at the current run directory
func (l *FileLogger) updateLatestSymlink() error {
	link := filepath.Join(l.baseDir, LatestRunSymlink)
	_ = os.Remove(link)
	if err := os.Symlink(RunDirectoryPrefix+l.runID, link); err != nil {
		// Symlinks are best-effort; some filesystems refuse them.
		return nil
	}
	return nil
}

// sanitizeFilename keeps document names safe to use as file names
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_", ":", "_")
	return replacer.Replace(name)
}
