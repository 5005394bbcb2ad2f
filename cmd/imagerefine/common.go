package main

import (
	"fmt"
	"time"

	"github.com/kestrel-labs/imagerefine/pkg/config"
	"github.com/kestrel-labs/imagerefine/pkg/gpu"
	"github.com/kestrel-labs/imagerefine/pkg/moderation"
	"github.com/kestrel-labs/imagerefine/pkg/providers"
	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/kestrel-labs/imagerefine/pkg/types"
)

const version = "0.1.0"

// loadConfig resolves the effective configuration for a command:
// defaults, optionally overlaid by a config file and a named profile,
// then overlaid by CLI flag overrides (overrides wins field by field,
// zero values leave the base untouched; see config.Config.Merge).
func loadConfig(configFile, profile string, overrides *config.Config) (*config.Config, error) {
	var cfg *config.Config
	var err error

	switch {
	case configFile == "":
		base := config.DefaultConfig()
		cfg = &base
	case profile != "":
		cfg, err = config.LoadConfigWithProfile(configFile, profile)
	default:
		cfg, err = config.LoadConfig(configFile)
	}
	if err != nil {
		return nil, err
	}

	if overrides != nil {
		cfg.Merge(overrides)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// buildProviders instantiates the LLM, Image and VLM capability
// providers named in cfg (spec §4.A).
func buildProviders(cfg config.ProvidersConfig) (types.LLM, types.Image, types.VLM, error) {
	llm, err := providers.CreateLLM(cfg.LLM.Name, registry.Config(cfg.LLM.Settings))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create llm provider %q: %w", cfg.LLM.Name, err)
	}
	image, err := providers.CreateImage(cfg.Image.Name, registry.Config(cfg.Image.Settings))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create image provider %q: %w", cfg.Image.Name, err)
	}
	vlm, err := providers.CreateVLM(cfg.VLM.Name, registry.Config(cfg.VLM.Settings))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create vlm provider %q: %w", cfg.VLM.Name, err)
	}
	return llm, image, vlm, nil
}

// buildGPUCoordinator assembles the GPU lifecycle coordinator from the
// configured service commands, grace period and health-probe timeout
// (spec §4.B).
func buildGPUCoordinator(cfg config.GPUConfig) (*gpu.Coordinator, error) {
	commands := make(map[gpu.Service][]string, len(cfg.Commands))
	for name, argv := range cfg.Commands {
		commands[gpu.Service(name)] = argv
	}

	grace, err := parseDurationDefault(cfg.GracePeriod, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("gpu.grace_period: %w", err)
	}
	healthTimeout, err := parseDurationDefault(cfg.HealthTimeout, 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("gpu.health_timeout: %w", err)
	}

	controller := gpu.NewProcessController(commands)
	controller.GracePeriod = grace
	prober := gpu.NewHTTPHealthProber(healthTimeout)

	portEnvVars := make(map[gpu.Service]string, len(cfg.PortEnvVars))
	for name, envVar := range cfg.PortEnvVars {
		portEnvVars[gpu.Service(name)] = envVar
	}

	return gpu.New(controller, prober, cfg.ServicesDir, portEnvVars), nil
}

func parseDurationDefault(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	return time.ParseDuration(s)
}

// buildModerationRefiner wires the content-policy retry loop around
// llm, or returns nil when moderation is disabled (spec §4.G).
func buildModerationRefiner(cfg config.ModerationConfig, llm types.LLM) *moderation.Refiner {
	if !cfg.Enabled {
		return nil
	}
	rewriter := moderation.LLMRewriter{LLM: llm}
	scanner := moderation.NewPhraseScanner(moderation.DefaultGraphicVocabulary)
	tracker := moderation.NewViolationTracker(50)
	return moderation.New(rewriter, scanner, tracker, cfg.MaxRetries)
}
