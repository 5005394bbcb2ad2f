// Package test provides deterministic LLM/Image/VLM/Vision stand-ins
// for exercising the scheduler, moderation, and ranking pipelines
// without network access.
package test

import (
	"context"

	"github.com/kestrel-labs/imagerefine/pkg/providers"
	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/kestrel-labs/imagerefine/pkg/types"
)

func init() {
	providers.RegisterLLM("test.Blank", NewBlank)
}

// Blank is the simplest LLM stand-in: every call returns an empty
// string. Used for testing harness wiring without model access.
type Blank struct{}

// NewBlank creates a new Blank provider.
func NewBlank(_ registry.Config) (providers.LLM, error) {
	return &Blank{}, nil
}

func (b *Blank) Expand(_ context.Context, _ string, _ types.ExpandParams) (types.LLMResult, error) {
	return types.LLMResult{Text: ""}, nil
}

func (b *Blank) Refine(_ context.Context, _ string, _ types.RefineParams) (types.LLMResult, error) {
	return types.LLMResult{Text: ""}, nil
}

func (b *Blank) Combine(_ context.Context, _, _ string, _ types.CombineParams) (types.LLMResult, error) {
	return types.LLMResult{Text: ""}, nil
}

// Name returns the provider's registered name.
func (b *Blank) Name() string { return "test.Blank" }

// Description returns a human-readable description.
func (b *Blank) Description() string {
	return "Returns empty text for testing harness connectivity"
}
