package config

import (
	"fmt"
	"strings"
)

// Config is the complete imagerefine configuration (spec §3 Config,
// §4.B GPU tunables, §4.G moderation, §6 output layout).
type Config struct {
	Search     SearchConfig       `yaml:"search" koanf:"search"`
	Providers  ProvidersConfig    `yaml:"providers" koanf:"providers"`
	GPU        GPUConfig          `yaml:"gpu" koanf:"gpu"`
	Moderation ModerationConfig   `yaml:"moderation" koanf:"moderation"`
	Output     OutputConfig       `yaml:"output" koanf:"output"`
	Profiles   map[string]Profile `yaml:"profiles,omitempty" koanf:"profiles"`
}

// Profile is a named override bundle, applied over the base config
// (e.g. "fast" trims beam width for a quick smoke run).
type Profile struct {
	Search     SearchConfig     `yaml:"search,omitempty"`
	Providers  ProvidersConfig  `yaml:"providers,omitempty"`
	GPU        GPUConfig        `yaml:"gpu,omitempty"`
	Moderation ModerationConfig `yaml:"moderation,omitempty"`
	Output     OutputConfig     `yaml:"output,omitempty"`
}

// SearchConfig holds the beam-search parameters recorded on every
// session (spec §3 Config).
type SearchConfig struct {
	BeamWidth       int     `yaml:"beam_width" koanf:"beam_width" validate:"gte=1"`
	Survivors       int     `yaml:"survivors" koanf:"survivors" validate:"gte=1"`
	MaxIterations   int     `yaml:"max_iterations" koanf:"max_iterations" validate:"gte=0"`
	Alpha           float64 `yaml:"alpha" koanf:"alpha" validate:"gte=0,lte=1"`
	EnsembleSize    int     `yaml:"ensemble_size" koanf:"ensemble_size" validate:"gte=1"`
	MaxFanout       int     `yaml:"max_fanout,omitempty" koanf:"max_fanout" validate:"gte=0"`
	Style           string  `yaml:"style,omitempty" koanf:"style"`
	Descriptiveness string  `yaml:"descriptiveness,omitempty" koanf:"descriptiveness"`
	RankingMode     string  `yaml:"ranking_mode,omitempty" koanf:"ranking_mode" validate:"omitempty,oneof=rank score"`
}

// ProviderConfig names one registered provider and its settings map,
// passed straight through to registry.Config at construction time.
type ProviderConfig struct {
	Name     string         `yaml:"name" koanf:"name"`
	Settings map[string]any `yaml:"settings,omitempty" koanf:"settings"`
}

// ProvidersConfig selects the provider backing each of the four
// capabilities (spec §4.A, §4.J).
type ProvidersConfig struct {
	LLM    ProviderConfig `yaml:"llm" koanf:"llm"`
	Image  ProviderConfig `yaml:"image" koanf:"image"`
	Vision ProviderConfig `yaml:"vision,omitempty" koanf:"vision"`
	VLM    ProviderConfig `yaml:"vlm" koanf:"vlm"`
}

// GPUConfig parametrises the local GPU coordinator (spec §4.B): where
// per-service port files live, how long to wait for a graceful stop,
// and the argv used to launch each resident service.
type GPUConfig struct {
	ServicesDir   string              `yaml:"services_dir" koanf:"services_dir"`
	GracePeriod   string              `yaml:"grace_period,omitempty" koanf:"grace_period"`
	HealthTimeout string              `yaml:"health_timeout,omitempty" koanf:"health_timeout"`
	Commands      map[string][]string `yaml:"commands,omitempty" koanf:"commands"`
	PortEnvVars   map[string]string   `yaml:"port_env_vars,omitempty" koanf:"port_env_vars"`
}

// ModerationConfig controls the content-policy retry loop (spec §4.G).
type ModerationConfig struct {
	Enabled    bool `yaml:"enabled" koanf:"enabled"`
	MaxRetries int  `yaml:"max_retries,omitempty" koanf:"max_retries" validate:"gte=0"`
}

// OutputConfig controls where session directories are written and how
// CLI summaries are rendered (spec §6).
type OutputConfig struct {
	Root   string `yaml:"root" koanf:"root"`
	Format string `yaml:"format,omitempty" koanf:"format" validate:"omitempty,oneof=json table"`
}

// DefaultConfig mirrors the scheduler's own defaults (spec §4.H, §8
// scenario 1) so a config file only needs to override what it cares
// about.
func DefaultConfig() Config {
	return Config{
		Search: SearchConfig{
			BeamWidth:     4,
			Survivors:     2,
			MaxIterations: 6,
			Alpha:         0.7,
			EnsembleSize:  1,
			RankingMode:   "rank",
		},
		GPU: GPUConfig{
			ServicesDir:   "./services",
			GracePeriod:   "5s",
			HealthTimeout: "30s",
		},
		Moderation: ModerationConfig{
			Enabled:    true,
			MaxRetries: 3,
		},
		Output: OutputConfig{
			Root:   "./sessions",
			Format: "table",
		},
	}
}

// Validate checks the configuration for internally-inconsistent
// values that struct tags alone cannot express.
func (c *Config) Validate() error {
	if c.Search.BeamWidth < 1 {
		return fmt.Errorf("search.beam_width must be at least 1, got: %d", c.Search.BeamWidth)
	}
	if c.Search.Survivors < 1 {
		return fmt.Errorf("search.survivors must be at least 1, got: %d", c.Search.Survivors)
	}
	if c.Search.Survivors > c.Search.BeamWidth {
		return fmt.Errorf("search.survivors (%d) cannot exceed search.beam_width (%d)", c.Search.Survivors, c.Search.BeamWidth)
	}
	if c.Search.MaxIterations < 0 {
		return fmt.Errorf("search.max_iterations must be non-negative, got: %d", c.Search.MaxIterations)
	}
	if c.Search.Alpha < 0 || c.Search.Alpha > 1 {
		return fmt.Errorf("search.alpha must be between 0 and 1, got: %f", c.Search.Alpha)
	}
	if c.Search.EnsembleSize < 1 {
		return fmt.Errorf("search.ensemble_size must be at least 1, got: %d", c.Search.EnsembleSize)
	}
	if c.Search.RankingMode != "" && c.Search.RankingMode != "rank" && c.Search.RankingMode != "score" {
		return fmt.Errorf("search.ranking_mode must be 'rank' or 'score', got: %q", c.Search.RankingMode)
	}

	if c.Providers.LLM.Name == "" {
		return fmt.Errorf("providers.llm.name is required")
	}
	if c.Providers.Image.Name == "" {
		return fmt.Errorf("providers.image.name is required")
	}
	if c.Providers.VLM.Name == "" {
		return fmt.Errorf("providers.vlm.name is required")
	}

	if c.Moderation.MaxRetries < 0 {
		return fmt.Errorf("moderation.max_retries must be non-negative, got: %d", c.Moderation.MaxRetries)
	}

	if c.Output.Format != "" && c.Output.Format != "json" && c.Output.Format != "table" {
		return fmt.Errorf("invalid output.format: %s (valid: json, table)", c.Output.Format)
	}

	return nil
}

// Merge merges other into c, with other taking precedence field by
// field (zero values in other leave c's value untouched).
func (c *Config) Merge(other *Config) {
	if other.Search.BeamWidth != 0 {
		c.Search.BeamWidth = other.Search.BeamWidth
	}
	if other.Search.Survivors != 0 {
		c.Search.Survivors = other.Search.Survivors
	}
	if other.Search.MaxIterations != 0 {
		c.Search.MaxIterations = other.Search.MaxIterations
	}
	if other.Search.Alpha != 0 {
		c.Search.Alpha = other.Search.Alpha
	}
	if other.Search.EnsembleSize != 0 {
		c.Search.EnsembleSize = other.Search.EnsembleSize
	}
	if other.Search.MaxFanout != 0 {
		c.Search.MaxFanout = other.Search.MaxFanout
	}
	if other.Search.Style != "" {
		c.Search.Style = other.Search.Style
	}
	if other.Search.Descriptiveness != "" {
		c.Search.Descriptiveness = other.Search.Descriptiveness
	}
	if other.Search.RankingMode != "" {
		c.Search.RankingMode = other.Search.RankingMode
	}

	mergeProvider(&c.Providers.LLM, other.Providers.LLM)
	mergeProvider(&c.Providers.Image, other.Providers.Image)
	mergeProvider(&c.Providers.Vision, other.Providers.Vision)
	mergeProvider(&c.Providers.VLM, other.Providers.VLM)

	if other.GPU.ServicesDir != "" {
		c.GPU.ServicesDir = other.GPU.ServicesDir
	}
	if other.GPU.GracePeriod != "" {
		c.GPU.GracePeriod = other.GPU.GracePeriod
	}
	if other.GPU.HealthTimeout != "" {
		c.GPU.HealthTimeout = other.GPU.HealthTimeout
	}
	if len(other.GPU.Commands) > 0 {
		if c.GPU.Commands == nil {
			c.GPU.Commands = make(map[string][]string)
		}
		for k, v := range other.GPU.Commands {
			c.GPU.Commands[k] = v
		}
	}
	if len(other.GPU.PortEnvVars) > 0 {
		if c.GPU.PortEnvVars == nil {
			c.GPU.PortEnvVars = make(map[string]string)
		}
		for k, v := range other.GPU.PortEnvVars {
			c.GPU.PortEnvVars[k] = v
		}
	}

	if other.Moderation.MaxRetries != 0 {
		c.Moderation.MaxRetries = other.Moderation.MaxRetries
	}
	c.Moderation.Enabled = other.Moderation.Enabled || c.Moderation.Enabled

	if other.Output.Root != "" {
		c.Output.Root = other.Output.Root
	}
	if other.Output.Format != "" {
		c.Output.Format = other.Output.Format
	}
}

func mergeProvider(dst *ProviderConfig, src ProviderConfig) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if len(src.Settings) > 0 {
		if dst.Settings == nil {
			dst.Settings = make(map[string]any)
		}
		for k, v := range src.Settings {
			dst.Settings[k] = v
		}
	}
}

// ApplyProfile merges a named profile over c.
func (c *Config) ApplyProfile(profileName string) error {
	profile, exists := c.Profiles[profileName]
	if !exists {
		return fmt.Errorf("profile %q not found", profileName)
	}

	profileConfig := &Config{
		Search:     profile.Search,
		Providers:  profile.Providers,
		GPU:        profile.GPU,
		Moderation: profile.Moderation,
		Output:     profile.Output,
	}
	c.Merge(profileConfig)
	return nil
}

// interpolateEnvVars replaces ${VAR} references with environment
// variable values.
func interpolateEnvVars(s string, getenv func(string) (string, bool)) (string, error) {
	result := s
	start := 0
	for {
		idx := strings.Index(result[start:], "${")
		if idx == -1 {
			break
		}
		idx += start

		endIdx := strings.Index(result[idx:], "}")
		if endIdx == -1 {
			return "", fmt.Errorf("unclosed environment variable reference at position %d", idx)
		}
		endIdx += idx

		varName := result[idx+2 : endIdx]
		value, ok := getenv(varName)
		if !ok {
			return "", fmt.Errorf("environment variable %q is not set", varName)
		}

		result = result[:idx] + value + result[endIdx+1:]
		start = idx + len(value)
	}
	return result, nil
}
