package providers

import (
	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/kestrel-labs/imagerefine/pkg/types"
)

// Image is the capability alias used by registration sites.
type Image = types.Image

var imageRegistry = registry.New[Image]("image")

// RegisterImage registers an Image provider factory under name.
func RegisterImage(name string, factory func(registry.Config) (Image, error)) {
	imageRegistry.Register(name, factory)
}

// CreateImage instantiates a registered Image provider.
func CreateImage(name string, cfg registry.Config) (Image, error) {
	return imageRegistry.Create(name, cfg)
}

// ListImages returns the sorted names of all registered Image providers.
func ListImages() []string {
	return imageRegistry.List()
}

// HasImage reports whether name is registered.
func HasImage(name string) bool {
	return imageRegistry.Has(name)
}
