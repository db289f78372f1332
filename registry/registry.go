// Package registry loads the manifest of hosted document environments a
// harness run supervises.
package registry

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/hostedenv/dom-harness/hostenv"
)

// Registry manages the configured document environments
type Registry struct {
	config       Config
	environments []hostenv.Environment
	mu           sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log            log.Logger
	ManifestFile   string
	DefaultTimeout time.Duration
}

// manifest is the on-disk shape of the environment list
type manifest struct {
	Environments []hostenv.Environment `yaml:"environments"`
}

// NewRegistry creates a registry and loads the manifest
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.ManifestFile == "" {
		return nil, fmt.Errorf("manifest file is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	r := &Registry{config: cfg}
	if err := r.loadManifest(cfg.ManifestFile); err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	cfg.Log.Debug("Registry loaded", "len(environments)", len(r.environments))
	return r, nil
}

func (r *Registry) loadManifest(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading manifest file: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parsing manifest file: %w", err)
	}

	if err := validate(m.Environments); err != nil {
		return err
	}

	for i := range m.Environments {
		if m.Environments[i].Timeout <= 0 {
			m.Environments[i].Timeout = r.defaultTimeout()
		}
	}
	r.environments = m.Environments
	return nil
}

func (r *Registry) defaultTimeout() time.Duration {
	if r.config.DefaultTimeout > 0 {
		return r.config.DefaultTimeout
	}
	return hostenv.DefaultCaptureTimeout
}

func validate(envs []hostenv.Environment) error {
	if len(envs) == 0 {
		return fmt.Errorf("manifest declares no environments")
	}
	seen := make(map[string]bool)
	for i, e := range envs {
		if e.Name == "" {
			return fmt.Errorf("environment %d has no name", i)
		}
		if e.Command == "" {
			return fmt.Errorf("environment %q has no command", e.Name)
		}
		if seen[e.Name] {
			return fmt.Errorf("duplicate environment name %q", e.Name)
		}
		seen[e.Name] = true
	}
	return nil
}

// GetEnvironments returns all configured environments
func (r *Registry) GetEnvironments() []hostenv.Environment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]hostenv.Environment, len(r.environments))
	copy(out, r.environments)
	return out
}

// GetEnvironment returns the environment with the given name, if any
func (r *Registry) GetEnvironment(name string) (hostenv.Environment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.environments {
		if e.Name == name {
			return e, true
		}
	}
	return hostenv.Environment{}, false
}

// GetConfig returns the registry configuration
func (r *Registry) GetConfig() Config {
	return r.config
}
