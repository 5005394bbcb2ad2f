package test

import (
	"context"
	"testing"

	"github.com/kestrel-labs/imagerefine/pkg/providers"
	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/kestrel-labs/imagerefine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingle_Name(t *testing.T) {
	g := &Single{}
	assert.Equal(t, "test.Single", g.Name())
}

func TestSingle_Description(t *testing.T) {
	g := &Single{}
	assert.NotEmpty(t, g.Description())
}

func TestSingle_ComparePair_AlwaysPicksSlotA(t *testing.T) {
	g := &Single{}

	imageA := types.ImageRef{LocalPath: "/tmp/a.png"}
	imageB := types.ImageRef{LocalPath: "/tmp/b.png"}

	for i := 0; i < 3; i++ {
		result, err := g.ComparePair(context.Background(), imageA, imageB, "a mountain", types.VLMParams{})
		require.NoError(t, err)
		assert.Equal(t, types.SlotA, result.Winner)
		assert.Less(t, result.RanksA.Combined, result.RanksB.Combined)
	}
}

func TestSingle_Registration(t *testing.T) {
	require.True(t, providers.HasVLM("test.Single"), "test.Single not registered in VLM registry")

	p, err := providers.CreateVLM("test.Single", registry.Config{})
	require.NoError(t, err)
	assert.Equal(t, "test.Single", p.Name())
}

func TestNewSingle(t *testing.T) {
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
			p, err := NewSingle(tt.config)
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "test.Single", p.Name())
		})
	}
}

func TestSingle_ContextCancellation(t *testing.T) {
	g := &Single{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := g.ComparePair(ctx, types.ImageRef{LocalPath: "/tmp/a.png"}, types.ImageRef{LocalPath: "/tmp/b.png"}, "test", types.VLMParams{})
	require.NoError(t, err)
	assert.Equal(t, types.SlotA, result.Winner)
}
