package test

import (
	"context"

	"github.com/kestrel-labs/imagerefine/pkg/providers"
	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/kestrel-labs/imagerefine/pkg/types"
)

func init() {
	providers.RegisterVLM("test.Single", NewSingle)
}

// Single is a VLM stand-in that always declares slot A the winner with
// a fixed rank spread. Useful for testing ranking/graph code against a
// comparator with zero variance.
type Single struct{}

// NewSingle creates a new Single provider.
func NewSingle(_ registry.Config) (providers.VLM, error) {
	return &Single{}, nil
}

func (s *Single) ComparePair(_ context.Context, _, _ types.ImageRef, _ string, _ types.VLMParams) (types.VLMResult, error) {
	return types.VLMResult{
		Winner:          types.SlotA,
		Reason:          "fixed verdict for testing constraints",
		RanksA:          types.Ranks{Alignment: 1, Aesthetics: 1, Combined: 1},
		RanksB:          types.Ranks{Alignment: 2, Aesthetics: 2, Combined: 2},
		WinnerStrengths: []string{"ELIM"},
		LoserWeaknesses: []string{"ELIM"},
	}, nil
}

// Name returns the provider's registered name.
func (s *Single) Name() string { return "test.Single" }

// Description returns a human-readable description.
func (s *Single) Description() string {
	return "Always picks slot A for testing ranking logic with zero variance"
}
