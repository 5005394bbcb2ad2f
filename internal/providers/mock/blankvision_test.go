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

func TestBlankVision_Name(t *testing.T) {
	g := &BlankVision{}
	assert.Equal(t, "test.BlankVision", g.Name())
}

func TestBlankVision_Description(t *testing.T) {
	g := &BlankVision{}
	assert.NotEmpty(t, g.Description())
}

func TestBlankVision_Analyze_ReturnsZeroValue(t *testing.T) {
	g := &BlankVision{}
	result, err := g.Analyze(context.Background(), types.ImageRef{LocalPath: "/tmp/a.png"}, "a mountain")
	require.NoError(t, err)
	assert.Zero(t, result.Alignment)
	assert.Zero(t, result.Aesthetic)
	assert.Empty(t, result.Analysis)
}

func TestBlankVision_Registration(t *testing.T) {
	require.True(t, providers.HasVision("test.BlankVision"), "test.BlankVision not registered in Vision registry")

	p, err := providers.CreateVision("test.BlankVision", registry.Config{})
	require.NoError(t, err)
	assert.Equal(t, "test.BlankVision", p.Name())
}

func TestNewBlankVision(t *testing.T) {
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
			p, err := NewBlankVision(tt.config)
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "test.BlankVision", p.Name())
		})
	}
}

func TestBlankVision_ContextCancellation(t *testing.T) {
	g := &BlankVision{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := g.Analyze(ctx, types.ImageRef{LocalPath: "/tmp/a.png"}, "test")
	require.NoError(t, err)
	assert.Zero(t, result.Alignment)
}
