// Package providers exposes one registry per provider capability (LLM,
// Image, Vision, VLM) and a Switchboard for the process-wide runtime
// provider selection (spec §4.A, §4.J, §6). This mirrors the teacher's
// pkg/generators/pkg/detectors type-alias-over-registry pattern, split
// four ways because this domain has four distinct capability shapes
// instead of one.
package providers

import (
	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/kestrel-labs/imagerefine/pkg/types"
)

// LLM is the capability alias used by registration sites, so provider
// packages can write `providers.LLM` instead of `types.LLM`.
type LLM = types.LLM

var llmRegistry = registry.New[LLM]("llm")

// RegisterLLM registers an LLM provider factory under name.
func RegisterLLM(name string, factory func(registry.Config) (LLM, error)) {
	llmRegistry.Register(name, factory)
}

// CreateLLM instantiates a registered LLM provider.
func CreateLLM(name string, cfg registry.Config) (LLM, error) {
	return llmRegistry.Create(name, cfg)
}

// ListLLMs returns the sorted names of all registered LLM providers.
func ListLLMs() []string {
	return llmRegistry.List()
}

// HasLLM reports whether name is registered.
func HasLLM(name string) bool {
	return llmRegistry.Has(name)
}
