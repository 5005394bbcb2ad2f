package test

import (
	"context"
	"testing"

	"github.com/kestrel-labs/imagerefine/pkg/providers"
	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/kestrel-labs/imagerefine/pkg/types"
)

func TestBlank_Name(t *testing.T) {
	g := &Blank{}
	if got := g.Name(); got != "test.Blank" {
		t.Errorf("Name() = %q, want %q", got, "test.Blank")
	}
}

func TestBlank_Description(t *testing.T) {
	g := &Blank{}
	if desc := g.Description(); desc == "" {
		t.Error("Description() returned empty string")
	}
}

func TestBlank_Expand(t *testing.T) {
	g := &Blank{}
	result, err := g.Expand(context.Background(), "a mountain", types.ExpandParams{Dimension: types.DimensionWhat})
	if err != nil {
		t.Fatalf("Expand() error = %v, want nil", err)
	}
	if result.Text != "" {
		t.Errorf("Expand().Text = %q, want empty string", result.Text)
	}
}

func TestBlank_Refine(t *testing.T) {
	g := &Blank{}
	result, err := g.Refine(context.Background(), "a mountain", types.RefineParams{})
	if err != nil {
		t.Fatalf("Refine() error = %v, want nil", err)
	}
	if result.Text != "" {
		t.Errorf("Refine().Text = %q, want empty string", result.Text)
	}
}

func TestBlank_Combine(t *testing.T) {
	g := &Blank{}
	result, err := g.Combine(context.Background(), "a mountain", "in oil paint", types.CombineParams{})
	if err != nil {
		t.Fatalf("Combine() error = %v, want nil", err)
	}
	if result.Text != "" {
		t.Errorf("Combine().Text = %q, want empty string", result.Text)
	}
}

func TestBlank_ContextCancellation(t *testing.T) {
	g := &Blank{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.Expand(ctx, "a mountain", types.ExpandParams{}); err != nil {
		t.Fatalf("Expand() with cancelled context error = %v, want nil", err)
	}
}

func TestBlank_Registration(t *testing.T) {
	if !providers.HasLLM("test.Blank") {
		t.Fatal("test.Blank not registered in LLM registry")
	}

	p, err := providers.CreateLLM("test.Blank", registry.Config{})
	if err != nil {
		t.Fatalf("CreateLLM() error = %v, want nil", err)
	}
	if p.Name() != "test.Blank" {
		t.Errorf("created provider name = %q, want %q", p.Name(), "test.Blank")
	}
}

func TestNewBlank(t *testing.T) {
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
			p, err := NewBlank(tt.config)
			if err != nil {
				t.Fatalf("NewBlank() error = %v, want nil", err)
			}
			if p == nil {
				t.Fatal("NewBlank() returned nil provider")
			}
			if p.Name() != "test.Blank" {
				t.Errorf("provider.Name() = %q, want %q", p.Name(), "test.Blank")
			}
		})
	}
}
