package providers

import (
	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/kestrel-labs/imagerefine/pkg/types"
)

// VLM is the capability alias used by registration sites.
type VLM = types.VLM

var vlmRegistry = registry.New[VLM]("vlm")

// RegisterVLM registers a VLM provider factory under name.
func RegisterVLM(name string, factory func(registry.Config) (VLM, error)) {
	vlmRegistry.Register(name, factory)
}

// CreateVLM instantiates a registered VLM provider.
func CreateVLM(name string, cfg registry.Config) (VLM, error) {
	return vlmRegistry.Create(name, cfg)
}

// ListVLMs returns the sorted names of all registered VLM providers.
func ListVLMs() []string {
	return vlmRegistry.List()
}

// HasVLM reports whether name is registered.
func HasVLM(name string) bool {
	return vlmRegistry.Has(name)
}
