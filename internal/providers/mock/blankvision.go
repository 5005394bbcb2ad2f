package test

import (
	"context"

	"github.com/kestrel-labs/imagerefine/pkg/providers"
	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/kestrel-labs/imagerefine/pkg/types"
)

func init() {
	providers.RegisterVision("test.BlankVision", NewBlankVision)
}

// BlankVision is a Vision stand-in that returns a zero-value result for
// any image, testing the legacy absolute-scoring path without a real
// vision model.
type BlankVision struct{}

// NewBlankVision creates a new BlankVision provider.
func NewBlankVision(_ registry.Config) (providers.Vision, error) {
	return &BlankVision{}, nil
}

func (b *BlankVision) Analyze(_ context.Context, _ types.ImageRef, _ string) (types.VisionResult, error) {
	return types.VisionResult{}, nil
}

// Name returns the provider's registered name.
func (b *BlankVision) Name() string { return "test.BlankVision" }

// Description returns a human-readable description.
func (b *BlankVision) Description() string {
	return "Returns a zero-value analysis for testing the legacy absolute-scoring path"
}
