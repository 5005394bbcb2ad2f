package providers

import (
	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/kestrel-labs/imagerefine/pkg/types"
)

// Vision is the capability alias used by registration sites.
type Vision = types.Vision

var visionRegistry = registry.New[Vision]("vision")

// RegisterVision registers a Vision provider factory under name.
func RegisterVision(name string, factory func(registry.Config) (Vision, error)) {
	visionRegistry.Register(name, factory)
}

// CreateVision instantiates a registered Vision provider.
func CreateVision(name string, cfg registry.Config) (Vision, error) {
	return visionRegistry.Create(name, cfg)
}

// ListVisions returns the sorted names of all registered Vision
// providers.
func ListVisions() []string {
	return visionRegistry.List()
}

// HasVision reports whether name is registered.
func HasVision(name string) bool {
	return visionRegistry.Has(name)
}
