package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/govlens/internal/adapters/driven/config/file"
	"github.com/custodia-labs/govlens/internal/core/domain"
)

func TestConfigCmd_SkipsApp(t *testing.T) {
	for _, c := range []*cobra.Command{configCmd, configInitCmd, configPathCmd} {
		assert.Equal(t, "true", c.Annotations[skipAppAnnotation], c.Name())
	}
}

func TestConfigInitCmd_WritesDefaults(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := execute(t, "--config", path, "config", "init")

	require.NoError(t, err)
	assert.Contains(t, out, "Wrote default configuration to "+path)

	store, err := file.NewConfigStore(path)
	require.NoError(t, err)
	assert.True(t, store.Loaded())
	defaults := domain.DefaultSettings()
	assert.Equal(t, defaults.Cache, store.Settings().Cache)
	assert.Equal(t, defaults.Search, store.Settings().Search)
}

func TestConfigInitCmd_KeepsExistingFile(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[search]\ndefault_limit = 5\n"), 0600))

	_, err := execute(t, "--config", path, "config", "init")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "default_limit = 5")
}

func TestConfigInitCmd_Force(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[search]\ndefault_limit = 5\n"), 0600))

	_, err := execute(t, "--config", path, "config", "init", "--force")

	require.NoError(t, err)
	store, err := file.NewConfigStore(path)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings().Search.DefaultLimit, store.Settings().Search.DefaultLimit)
}

func TestConfigPathCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	path := filepath.Join(t.TempDir(), "config.toml")

	out, err := execute(t, "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, path+" (not found, using defaults)")

	require.NoError(t, os.WriteFile(path, []byte(""), 0600))
	out, err = execute(t, "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, path+" (loaded)")
}
