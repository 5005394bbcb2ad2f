package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigKoanf_BasicYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	require.NoError(t, os.WriteFile(configPath, []byte(`
search:
  beam_width: 5
  survivors: 2
  max_iterations: 4
providers:
  llm: {name: openai.OpenAI}
  image: {name: openai.DallE}
  vlm: {name: openai.GPT4Vision}
output:
  format: json
`), 0o644))

	cfg, err := LoadConfigKoanf(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 5, cfg.Search.BeamWidth)
	assert.Equal(t, 2, cfg.Search.Survivors)
	assert.Equal(t, 4, cfg.Search.MaxIterations)
	assert.Equal(t, "openai.OpenAI", cfg.Providers.LLM.Name)
	assert.Equal(t, "json", cfg.Output.Format)
}

func TestLoadConfigKoanf_DefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfigKoanf("")
	require.Error(t, err, "defaults alone fail validation (no provider names configured)")
	assert.Nil(t, cfg)
}

func TestLoadConfigKoanf_KeepsDefaultsNotOverriddenByFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
providers:
  llm: {name: openai.OpenAI}
  image: {name: openai.DallE}
  vlm: {name: openai.GPT4Vision}
`), 0o644))

	cfg, err := LoadConfigKoanf(configPath)
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def.Search.BeamWidth, cfg.Search.BeamWidth)
	assert.Equal(t, def.Search.Survivors, cfg.Search.Survivors)
	assert.Equal(t, def.Search.MaxIterations, cfg.Search.MaxIterations)
}

func TestLoadConfigKoanf_EnvVarOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
search:
  beam_width: 4
providers:
  llm: {name: openai.OpenAI}
  image: {name: openai.DallE}
  vlm: {name: openai.GPT4Vision}
`), 0o644))

	os.Setenv("IMAGEREFINE_SEARCH__BEAM_WIDTH", "10")
	defer os.Unsetenv("IMAGEREFINE_SEARCH__BEAM_WIDTH")

	cfg, err := LoadConfigKoanf(configPath)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Search.BeamWidth, "env var takes precedence over file")
}

func TestLoadConfigKoanf_MissingFile(t *testing.T) {
	_, err := LoadConfigKoanf("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestLoadConfigKoanf_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("not: valid: yaml: [["), 0o644))

	_, err := LoadConfigKoanf(configPath)
	require.Error(t, err)
}

func TestLoadConfigKoanf_ValidationFailsOnBadAlpha(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
search:
  alpha: 2.5
providers:
  llm: {name: openai.OpenAI}
  image: {name: openai.DallE}
  vlm: {name: openai.GPT4Vision}
`), 0o644))

	_, err := LoadConfigKoanf(configPath)
	require.Error(t, err)
}
