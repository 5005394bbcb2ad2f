package replicate

import (
	"fmt"

	"github.com/kestrel-labs/imagerefine/pkg/registry"
)

// Config holds typed configuration for the Replicate image provider.
type Config struct {
	// Required
	Model  string
	APIKey string

	// Optional with defaults
	Temperature float32 // guidance_scale
	MaxTokens   int     // num_inference_steps
	Seed        int
	BaseURL     string

	// RateLimit caps the local image-download leg in requests per
	// second; the Replicate SDK's own prediction calls have no
	// pluggable transport to rate-limit. Zero disables limiting.
	RateLimit float64
	BurstSize float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Temperature: 7.5,
	}
}

// ConfigFromMap parses a registry.Config map into a typed Config.
func ConfigFromMap(m registry.Config) (Config, error) {
	cfg := DefaultConfig()

	model, err := registry.RequireString(m, "model")
	if err != nil {
		return cfg, fmt.Errorf("replicate provider requires 'model' configuration")
	}
	cfg.Model = model

	cfg.APIKey, err = registry.GetAPIKeyWithEnv(m, "REPLICATE_API_TOKEN", "replicate")
	if err != nil {
		return cfg, err
	}

	cfg.BaseURL = registry.GetString(m, "base_url", "")
	cfg.Temperature = registry.GetFloat32(m, "guidance_scale", cfg.Temperature)
	cfg.MaxTokens = registry.GetInt(m, "num_inference_steps", cfg.MaxTokens)
	cfg.Seed = registry.GetInt(m, "seed", cfg.Seed)
	cfg.RateLimit = registry.GetFloat64(m, "rate_limit", 0)
	cfg.BurstSize = registry.GetFloat64(m, "burst_size", cfg.RateLimit)

	return cfg, nil
}

// Option is a functional option for Config.
type Option = registry.Option[Config]

// ApplyOptions applies functional options to a Config.
func ApplyOptions(cfg Config, opts ...Option) Config {
	return registry.ApplyOptions(cfg, opts...)
}

// WithModel sets the model identifier.
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithGuidanceScale sets the classifier-free guidance scale.
func WithGuidanceScale(scale float32) Option {
	return func(c *Config) {
		c.Temperature = scale
	}
}

// WithSteps sets the number of inference steps.
func WithSteps(steps int) Option {
	return func(c *Config) {
		c.MaxTokens = steps
	}
}

// WithSeed sets the random seed for reproducibility.
func WithSeed(seed int) Option {
	return func(c *Config) {
		c.Seed = seed
	}
}

// WithBaseURL sets a custom API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithRateLimit sets the image-download rate limit in requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *Config) {
		c.RateLimit = rps
	}
}
