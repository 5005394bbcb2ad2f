package test

import (
	"context"

	"github.com/kestrel-labs/imagerefine/pkg/providers"
	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/kestrel-labs/imagerefine/pkg/types"
)

func init() {
	providers.RegisterImage("test.Nones", NewNones)
}

// Nones is an Image stand-in that always returns an empty result with
// no error, for testing downstream handling of a provider that
// produced nothing usable.
type Nones struct{}

// NewNones creates a new Nones provider.
func NewNones(_ registry.Config) (providers.Image, error) {
	return &Nones{}, nil
}

func (n *Nones) Generate(_ context.Context, _ string, _ types.ImageParams) (types.ImageResult, error) {
	return types.ImageResult{}, nil
}

// Name returns the provider's registered name.
func (n *Nones) Name() string { return "test.Nones" }

// Description returns a human-readable description.
func (n *Nones) Description() string {
	return "Returns an empty result for testing handling of missing image output"
}
