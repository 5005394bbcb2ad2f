package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads and merges configuration files in hierarchical
// order. Later paths override earlier ones.
func LoadConfig(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no configuration files provided")
	}

	result := func() *Config { c := DefaultConfig(); return &c }()

	for _, path := range paths {
		cfg, err := loadSingleConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
		result.Merge(cfg)
	}

	if err := interpolateConfigEnvVars(result); err != nil {
		return nil, fmt.Errorf("failed to interpolate environment variables: %w", err)
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return result, nil
}

// LoadConfigWithProfile loads a config file and applies a named
// profile on top of it.
func LoadConfigWithProfile(path string, profileName string) (*Config, error) {
	cfg, err := loadSingleConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	if err := cfg.ApplyProfile(profileName); err != nil {
		return nil, fmt.Errorf("failed to apply profile %q: %w", profileName, err)
	}

	if err := interpolateConfigEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("failed to interpolate environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadSingleConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	return &cfg, nil
}

// interpolateConfigEnvVars expands ${VAR} references in the string
// fields that commonly carry secrets or host-specific paths: provider
// settings (api keys, endpoints) and output/GPU paths.
func interpolateConfigEnvVars(cfg *Config) error {
	getenv := func(key string) (string, bool) {
		val := os.Getenv(key)
		if val == "" {
			return "", false
		}
		return val, true
	}

	for _, p := range []*ProviderConfig{&cfg.Providers.LLM, &cfg.Providers.Image, &cfg.Providers.Vision, &cfg.Providers.VLM} {
		for k, v := range p.Settings {
			s, ok := v.(string)
			if !ok {
				continue
			}
			expanded, err := interpolateEnvVars(s, getenv)
			if err != nil {
				return err
			}
			p.Settings[k] = expanded
		}
	}

	if cfg.Output.Root != "" {
		root, err := interpolateEnvVars(cfg.Output.Root, getenv)
		if err != nil {
			return err
		}
		cfg.Output.Root = root
	}
	if cfg.GPU.ServicesDir != "" {
		dir, err := interpolateEnvVars(cfg.GPU.ServicesDir, getenv)
		if err != nil {
			return err
		}
		cfg.GPU.ServicesDir = dir
	}

	return nil
}
