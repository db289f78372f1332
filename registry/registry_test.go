package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "documents.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRegistry(t *testing.T) {
	validManifest := `
environments:
  - name: smoke
    command: sh
    args: ["-c", "echo ok"]
    timeout: 5s
  - name: widgets
    command: ./testdoc
    dir: ./docs
`
	path := writeManifest(t, validManifest)

	t.Run("manifest loading", func(t *testing.T) {
		tests := []struct {
			name    string
			cfg     Config
			wantErr bool
		}{
			{
				name:    "valid manifest",
				cfg:     Config{ManifestFile: path},
				wantErr: false,
			},
			{
				name:    "missing manifest path",
				cfg:     Config{},
				wantErr: true,
			},
			{
				name:    "nonexistent file",
				cfg:     Config{ManifestFile: "nonexistent.yaml"},
				wantErr: true,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				r, err := NewRegistry(tt.cfg)
				if tt.wantErr {
					require.Error(t, err)
					return
				}
				require.NoError(t, err)
				require.Len(t, r.GetEnvironments(), 2)
			})
		}
	})

	t.Run("timeouts", func(t *testing.T) {
		r, err := NewRegistry(Config{ManifestFile: path, DefaultTimeout: 30 * time.Second})
		require.NoError(t, err)

		smoke, ok := r.GetEnvironment("smoke")
		require.True(t, ok)
		assert.Equal(t, 5*time.Second, smoke.Timeout, "explicit timeout wins")

		widgets, ok := r.GetEnvironment("widgets")
		require.True(t, ok)
		assert.Equal(t, 30*time.Second, widgets.Timeout, "default applied when unset")
	})
}

func TestRegistryValidation(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{
			name:     "empty manifest",
			manifest: "environments: []",
		},
		{
			name: "missing name",
			manifest: `
environments:
  - command: sh
`,
		},
		{
			name: "missing command",
			manifest: `
environments:
  - name: broken
`,
		},
		{
			name: "duplicate names",
			manifest: `
environments:
  - name: twin
    command: sh
  - name: twin
    command: sh
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(Config{ManifestFile: writeManifest(t, tt.manifest)})
			require.Error(t, err)
		})
	}
}
