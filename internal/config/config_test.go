package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxo-labs/studio/internal/studioerr"
)

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"api_key: file-key\nbase_url: https://svc.example/\ndebug: true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, "https://svc.example", cfg.BaseURL, "trailing slash is trimmed")
	assert.True(t, cfg.Debug)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_key: file-key\n"), 0o644))
	t.Setenv("WXO_API_KEY", "env-key")
	t.Setenv("WXO_DEFAULT_AGENT_ID", "agent-1")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "agent-1", cfg.DefaultAgentID)
}

func TestMissingFileIsTolerated(t *testing.T) {
	t.Setenv("WXO_BASE_URL", "https://svc.example")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://svc.example", cfg.BaseURL)
}

func TestMalformedFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := Load(path)
	var pe *studioerr.ParseError
	require.True(t, errors.As(err, &pe))
}

func TestValidate(t *testing.T) {
	t.Parallel()
	var cfg Config
	var ce *studioerr.ConfigurationError
	require.True(t, errors.As(cfg.Validate(), &ce))
	assert.Equal(t, "base URL", ce.Missing)

	cfg.BaseURL = "https://svc.example"
	require.True(t, errors.As(cfg.Validate(), &ce))
	assert.Equal(t, "API key", ce.Missing)

	cfg.APIKey = "k"
	assert.NoError(t, cfg.Validate())
}
