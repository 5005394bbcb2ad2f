package test

import (
	"context"
	"strings"
	"testing"

	"github.com/kestrel-labs/imagerefine/pkg/providers"
	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/kestrel-labs/imagerefine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLipsum_Name(t *testing.T) {
	g := &Lipsum{}
	assert.Equal(t, "test.Lipsum", g.Name())
}

func TestLipsum_Description(t *testing.T) {
	g := &Lipsum{}
	assert.NotEmpty(t, g.Description())
}

func TestLipsum_Expand(t *testing.T) {
	g := &Lipsum{}
	result, err := g.Expand(context.Background(), "a mountain", types.ExpandParams{Dimension: types.DimensionWhat})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Text)
	assert.Greater(t, len(strings.Fields(result.Text)), 0)
	assert.True(t, strings.HasSuffix(result.Text, "."))
}

func TestLipsum_VariesOutputs(t *testing.T) {
	g := &Lipsum{}

	var outputs []string
	for i := 0; i < 5; i++ {
		result, err := g.Expand(context.Background(), "a mountain", types.ExpandParams{})
		require.NoError(t, err)
		outputs = append(outputs, result.Text)
	}

	allSame := true
	for i := 1; i < len(outputs); i++ {
		if outputs[i] != outputs[0] {
			allSame = false
			break
		}
	}
	assert.False(t, allSame, "Lipsum should generate varying outputs, got all identical: %v", outputs[0])
}

func TestLipsum_RefineAndCombine(t *testing.T) {
	g := &Lipsum{}

	refineResult, err := g.Refine(context.Background(), "a mountain", types.RefineParams{})
	require.NoError(t, err)
	assert.NotEmpty(t, refineResult.Text)

	combineResult, err := g.Combine(context.Background(), "a mountain", "in oil paint", types.CombineParams{})
	require.NoError(t, err)
	assert.NotEmpty(t, combineResult.Text)
}

func TestLipsum_ContextCancellation(t *testing.T) {
	g := &Lipsum{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := g.Expand(ctx, "a mountain", types.ExpandParams{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Text)
}

func TestLipsum_Registration(t *testing.T) {
	require.True(t, providers.HasLLM("test.Lipsum"), "test.Lipsum not registered in LLM registry")

	p, err := providers.CreateLLM("test.Lipsum", registry.Config{})
	require.NoError(t, err)
	assert.Equal(t, "test.Lipsum", p.Name())
}

func TestNewLipsum(t *testing.T) {
	tests := []struct {
		name   string
		config registry.Config
	}{
		{name: "nil config", config: nil},
		{name: "empty config", config: registry.Config{}},
		{name: "config with data", config: registry.Config{"key": "value"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewLipsum(tt.config)
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "test.Lipsum", p.Name())
		})
	}
}
