package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestEnvironment creates a temporary home with a Pulse config directory.
// It returns the path to that directory.
func setupTestEnvironment(t *testing.T) string {
	tempDir := t.TempDir()

	configDir := filepath.Join(tempDir, "Pulse", "config")
	require.NoError(t, os.MkdirAll(configDir, 0755))

	originalHomeDirFunc := osUserHomeDir
	osUserHomeDir = func() (string, error) {
		return tempDir, nil
	}
	t.Cleanup(func() { osUserHomeDir = originalHomeDirFunc })

	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("PULSE_GEMINI_API_KEY", "")

	return configDir
}

func TestLoad_Success(t *testing.T) {
	configDir := setupTestEnvironment(t)

	content := `{
		"server": {"addr": ":9999"},
		"redis": {"addr": "localhost:1234", "db": 2},
		"gemini": {"api_key": "test-key"},
		"assessment": {"settle_delay": "150ms", "image_workers": 2}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "pulse.json"), []byte(content), 0644))

	cfg, err := Load("")

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "localhost:1234", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "test-key", cfg.Gemini.APIKey)
	assert.Equal(t, 150*time.Millisecond, cfg.Assessment.SettleDelay)
	assert.Equal(t, 2, cfg.Assessment.ImageWorkers)
	assert.Equal(t, 90*time.Second, cfg.Assessment.GenerationTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileCreation(t *testing.T) {
	configDir := setupTestEnvironment(t)

	cfg, err := Load("")

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.FileExists(t, filepath.Join(configDir, "pulse.json"))
	assert.Equal(t, "", cfg.Redis.Addr)
	assert.Equal(t, ":8090", cfg.Server.Addr)
	assert.Equal(t, 300*time.Millisecond, cfg.Assessment.SettleDelay)

	home, _ := osUserHomeDir()
	assert.Equal(t, filepath.Join(home, "Pulse", "data", "documents.db"), cfg.Documents.Path)
}

func TestLoad_InvalidJSON(t *testing.T) {
	configDir := setupTestEnvironment(t)
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "pulse.json"), []byte("{ not valid json }"), 0644))

	_, err := Load("")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "could not decode config file")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	setupTestEnvironment(t)
	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("PULSE_REDIS_ADDR", "redis:6379")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Gemini.APIKey)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestLoad_ExplicitPath(t *testing.T) {
	setupTestEnvironment(t)
	path := filepath.Join(t.TempDir(), "custom.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log": {"level": "debug"}}`), 0644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	setupTestEnvironment(t)
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Assessment.ImageWorkers = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini.api_key is empty")
	assert.Contains(t, err.Error(), "image_workers")
}
