package replicate

import (
	"testing"

	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, float32(7.5), cfg.Temperature)
}

func TestConfigFromMap_Success(t *testing.T) {
	m := registry.Config{
		"model":               "stability-ai/sdxl",
		"api_key":             "test-key",
		"guidance_scale":      8.0,
		"num_inference_steps": 30,
		"seed":                42,
		"base_url":            "https://custom.replicate.com",
	}

	cfg, err := ConfigFromMap(m)
	require.NoError(t, err)

	assert.Equal(t, "stability-ai/sdxl", cfg.Model)
	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, float32(8.0), cfg.Temperature)
	assert.Equal(t, 30, cfg.MaxTokens)
	assert.Equal(t, 42, cfg.Seed)
	assert.Equal(t, "https://custom.replicate.com", cfg.BaseURL)
}

func TestConfigFromMap_RequiresModel(t *testing.T) {
	_, err := ConfigFromMap(registry.Config{"api_key": "test-key"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model")
}

func TestConfigFromMap_RateLimitDefaultsBurstToRate(t *testing.T) {
	m := registry.Config{
		"model":      "stability-ai/sdxl",
		"api_key":    "test-key",
		"rate_limit": 2.0,
	}

	cfg, err := ConfigFromMap(m)
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.RateLimit)
	assert.Equal(t, 2.0, cfg.BurstSize)
}

func TestFunctionalOptions(t *testing.T) {
	cfg := ApplyOptions(DefaultConfig(),
		WithModel("test-model"),
		WithAPIKey("test-key"),
		WithGuidanceScale(9.0),
		WithSteps(50),
		WithSeed(123),
		WithBaseURL("https://test.com"),
		WithRateLimit(4.0),
	)

	assert.Equal(t, "test-model", cfg.Model)
	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, float32(9.0), cfg.Temperature)
	assert.Equal(t, 50, cfg.MaxTokens)
	assert.Equal(t, 123, cfg.Seed)
	assert.Equal(t, "https://test.com", cfg.BaseURL)
	assert.Equal(t, 4.0, cfg.RateLimit)
}
