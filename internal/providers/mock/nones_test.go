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

func TestNones_Name(t *testing.T) {
	g := &Nones{}
	assert.Equal(t, "test.Nones", g.Name())
}

func TestNones_Description(t *testing.T) {
	g := &Nones{}
	assert.NotEmpty(t, g.Description())
}

func TestNones_Generate_ReturnsEmptyResult(t *testing.T) {
	g := &Nones{}
	result, err := g.Generate(context.Background(), "a mountain", types.ImageParams{CandidateID: "c1"})
	require.NoError(t, err)
	assert.Empty(t, result.LocalPath)
	assert.Empty(t, result.URL)
}

func TestNones_Registration(t *testing.T) {
	require.True(t, providers.HasImage("test.Nones"), "test.Nones not registered in Image registry")

	p, err := providers.CreateImage("test.Nones", registry.Config{})
	require.NoError(t, err)
	assert.Equal(t, "test.Nones", p.Name())
}

func TestNewNones(t *testing.T) {
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
			p, err := NewNones(tt.config)
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "test.Nones", p.Name())
		})
	}
}

func TestNones_ContextCancellation(t *testing.T) {
	g := &Nones{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := g.Generate(ctx, "a mountain", types.ImageParams{})
	require.NoError(t, err)
	assert.Empty(t, result.LocalPath)
}
