package test

import (
	"context"

	"github.com/kestrel-labs/imagerefine/pkg/providers"
	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/kestrel-labs/imagerefine/pkg/types"
)

func init() {
	providers.RegisterLLM("test.Repeat", NewRepeat)
}

// Repeat is an LLM stand-in that echoes its input prompt, optionally
// prefixed. Useful for tracing a prompt unchanged through the
// expand/refine/combine pipeline without model access.
type Repeat struct {
	prefix string
}

// NewRepeat creates a new Repeat provider. A custom prefix may be set
// via the "prefix" config key.
func NewRepeat(cfg registry.Config) (providers.LLM, error) {
	r := &Repeat{}
	if p, ok := cfg["prefix"].(string); ok {
		r.prefix = p
	}
	return r, nil
}

func (r *Repeat) Expand(_ context.Context, prompt string, _ types.ExpandParams) (types.LLMResult, error) {
	return types.LLMResult{Text: r.prefix + prompt}, nil
}

func (r *Repeat) Refine(_ context.Context, prompt string, _ types.RefineParams) (types.LLMResult, error) {
	return types.LLMResult{Text: r.prefix + prompt}, nil
}

func (r *Repeat) Combine(_ context.Context, whatPrompt, howPrompt string, _ types.CombineParams) (types.LLMResult, error) {
	return types.LLMResult{Text: r.prefix + whatPrompt + " " + howPrompt}, nil
}

// Name returns the provider's registered name.
func (r *Repeat) Name() string { return "test.Repeat" }

// Description returns a human-readable description.
func (r *Repeat) Description() string {
	return "Echoes the input prompt for testing pipeline wiring"
}
