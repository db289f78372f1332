package harness

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ethereum/go-ethereum/log"
	"github.com/hostedenv/dom-harness/flags"
)

// Config holds the application configuration
type Config struct {
	ManifestFile   string
	RunInterval    time.Duration // Interval between harness runs
	RunOnce        bool          // Indicates if the service should exit after one run
	CaptureTimeout time.Duration // Default console capture timeout, can be overridden per environment
	LogDir         string        // Directory to store run artifacts
	DocsDir        string        // Directory of test documents to serve (empty disables the docs server)
	DocsAddr       string        // Listen address for the docs server
	Log            log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger, manifestFile string) (*Config, error) {
	// Parse flags
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}
	if manifestFile == "" {
		return nil, errors.New("environment manifest file is required")
	}

	absManifest, err := filepath.Abs(manifestFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for manifest '%s': %w", manifestFile, err)
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	runOnce := runInterval == 0

	// Get log directory, default to "logs" if not specified
	logDir := ctx.String(flags.LogDir.Name)
	if logDir == "" {
		logDir = "logs"
	}
	logDir, err = filepath.Abs(logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
	}

	return &Config{
		ManifestFile:   absManifest,
		RunInterval:    runInterval,
		RunOnce:        runOnce,
		CaptureTimeout: ctx.Duration(flags.CaptureTimeout.Name),
		LogDir:         logDir,
		DocsDir:        ctx.String(flags.DocsDir.Name),
		DocsAddr:       ctx.String(flags.DocsAddr.Name),
		Log:            log,
	}, nil
}
