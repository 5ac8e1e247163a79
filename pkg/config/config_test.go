package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportEnvironmentKeepsExistingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("VISTARA_CFG_A=from-file\nVISTARA_CFG_B=file-only\n"), 0o600))
	t.Setenv("VISTARA_CFG_A", "from-env")
	t.Setenv("VISTARA_CFG_B", "")
	require.NoError(t, os.Unsetenv("VISTARA_CFG_B"))

	require.NoError(t, exportEnvironment(path))

	assert.Equal(t, "from-env", os.Getenv("VISTARA_CFG_A"))
	assert.Equal(t, "file-only", os.Getenv("VISTARA_CFG_B"))
}

func TestExportEnvironmentIfExistsIgnoresMissingFile(t *testing.T) {
	assert.NoError(t, exportEnvironmentIfExists(filepath.Join(t.TempDir(), "missing.env")))
	assert.NoError(t, exportEnvironmentIfExists(t.TempDir()))
}
