// Package hostenv launches a hosted document environment as a child
// process and captures its console channel: the time-ordered stream of
// stdout lines the supervisor re-parses into structured results.
package hostenv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"
)

// DefaultCaptureTimeout bounds how long the supervisor waits for console
// output. The runner itself has no timeout primitive; this is the only
// wall-clock bound a hung test body gets.
const DefaultCaptureTimeout = 10 * time.Second

// Environment describes one hosted document environment to launch
type Environment struct {
	Name    string        `yaml:"name"`
	Command string        `yaml:"command"`
	Args    []string      `yaml:"args,omitempty"`
	Dir     string        `yaml:"dir,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// UnmarshalYAML accepts human-readable timeouts ("5s", "1m") in manifests
func (e *Environment) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Name    string   `yaml:"name"`
		Command string   `yaml:"command"`
		Args    []string `yaml:"args"`
		Dir     string   `yaml:"dir"`
		Timeout string   `yaml:"timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	e.Name = raw.Name
	e.Command = raw.Command
	e.Args = raw.Args
	e.Dir = raw.Dir
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("environment %q: invalid timeout %q: %w", raw.Name, raw.Timeout, err)
		}
		e.Timeout = d
	}
	return nil
}

// Capture launches the environment and returns its captured console
// lines in arrival order. A non-zero exit or a capture timeout is not an
// error here: failure information travels in the text, and partial
// output is still worth extracting. Only a failure to launch is fatal.
func (e *Environment) Capture(ctx context.Context, logger log.Logger) ([]string, error) {
	if logger == nil {
		logger = log.Root()
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultCaptureTimeout
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, e.Command, e.Args...)
	cmd.Dir = e.Dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening console pipe for %q: %w", e.Name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stderr pipe for %q: %w", e.Name, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launching hosted environment %q: %w", e.Name, err)
	}
	logger.Debug("Hosted environment launched", "name", e.Name, "command", e.Command, "timeout", timeout)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			logger.Debug("Hosted environment stderr", "name", e.Name, "line", scanner.Text())
		}
	}()

	var lines []string
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	wg.Wait()

	waitErr := cmd.Wait()
	switch {
	case errors.Is(cctx.Err(), context.DeadlineExceeded):
		logger.Warn("Hosted environment timed out", "name", e.Name, "timeout", timeout, "lines", len(lines))
	case waitErr != nil:
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return lines, fmt.Errorf("waiting for hosted environment %q: %w", e.Name, waitErr)
		}
		// A failing run exits non-zero; the verdict comes from the
		// captured text.
		logger.Debug("Hosted environment exited non-zero", "name", e.Name, "code", exitErr.ExitCode())
	}

	logger.Debug("Console capture complete", "name", e.Name, "lines", len(lines))
	return lines, nil
}
