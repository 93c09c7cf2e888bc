package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Coordinator.LogLevel)
	assert.Equal(t, 45*time.Second, cfg.Coordinator.QueryTimeout)
	assert.Equal(t, 16, cfg.Coordinator.MaxPending)
	assert.Equal(t, "2024-09-27T03:00:00Z", cfg.Coordinator.InitialScenarioTime)

	assert.Equal(t, -83.5, cfg.Region.BBox.West)
	assert.Equal(t, 36.5, cfg.Region.BBox.North)
	assert.Equal(t, "data/road_network.geojson", cfg.Region.NetworkFile)

	assert.Equal(t, 5*time.Second, cfg.Sources.GatherTimeout)
	assert.Empty(t, cfg.LLM.BaseURL, "the model is opt-in")
	assert.Equal(t, 50, cfg.Reporting.KeepLastN)

	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
coordinator:
  log_level: debug
  query_timeout: 30s
  max_pending: 4
region:
  network_file: fixtures/net.geojson
sources:
  disabled: [social_media]
llm:
  base_url: http://localhost:8080/v1
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Coordinator.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Coordinator.QueryTimeout)
	assert.Equal(t, 4, cfg.Coordinator.MaxPending)
	assert.Equal(t, "fixtures/net.geojson", cfg.Region.NetworkFile)
	assert.Equal(t, []string{"social_media"}, cfg.Sources.Disabled)
	assert.Equal(t, "http://localhost:8080/v1", cfg.LLM.BaseURL)

	// Untouched sections keep their defaults.
	assert.Equal(t, "2024-09-27T03:00:00Z", cfg.Coordinator.InitialScenarioTime)
	assert.Equal(t, 50, cfg.Reporting.KeepLastN)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_LLM_URL", "http://model.internal/v1")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  base_url: ${TEST_LLM_URL}
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://model.internal/v1", cfg.LLM.BaseURL)
}

func TestLoadEnvironmentWinsForSecrets(t *testing.T) {
	t.Setenv("LLM_API_KEY", "env-llm-key")
	t.Setenv("ROUTING_API_KEY", "env-routing-key")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  api_key: file-llm-key
routing:
  api_key: file-routing-key
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-llm-key", cfg.LLM.APIKey)
	assert.Equal(t, "env-routing-key", cfg.Routing.APIKey)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("coordinator: [not a map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Coordinator.LogLevel = "debug"
	cfg.Sources.Disabled = []string{"satellite"}

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted bbox", func(c *Config) { c.Region.BBox.West = 10; c.Region.BBox.East = -10 }},
		{"missing network file", func(c *Config) { c.Region.NetworkFile = "" }},
		{"zero query timeout", func(c *Config) { c.Coordinator.QueryTimeout = 0 }},
		{"zero max pending", func(c *Config) { c.Coordinator.MaxPending = 0 }},
		{"bad scenario time", func(c *Config) { c.Coordinator.InitialScenarioTime = "yesterday" }},
		{"missing output dir", func(c *Config) { c.Reporting.OutputDir = "" }},
		{"zero keep last", func(c *Config) { c.Reporting.KeepLastN = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
