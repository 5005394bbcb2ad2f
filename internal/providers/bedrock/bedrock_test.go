package bedrock

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kestrel-labs/imagerefine/pkg/apperrors"
	"github.com/kestrel-labs/imagerefine/pkg/providers"
	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/kestrel-labs/imagerefine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBedrockClaudeResponse builds a mock Bedrock InvokeModel response
// body in Claude's response shape.
func mockBedrockClaudeResponse(content string) map[string]any {
	return map[string]any{
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": content},
		},
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 10, "output_tokens": 20},
	}
}

// mockBedrockErrorResponse returns a handler shaped like AWS's JSON
// error protocol, carrying the error type in the header the SDK reads
// to classify the failure.
func mockBedrockErrorResponse(status int, errorType, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Amzn-Errortype", errorType)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": message})
	}
}

func TestNewBedrock_RequiresModel(t *testing.T) {
	_, err := NewBedrock(registry.Config{"region": "us-east-1"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "model")
}

func TestNewBedrock_RequiresRegion(t *testing.T) {
	_, err := NewBedrock(registry.Config{"model": "anthropic.claude-3-sonnet-20240229-v1:0"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "region")
}

func TestNewBedrock_SupportsClaudeModels(t *testing.T) {
	models := []string{
		"anthropic.claude-3-opus-20240229-v1:0",
		"anthropic.claude-3-sonnet-20240229-v1:0",
		"anthropic.claude-3-haiku-20240307-v1:0",
		"anthropic.claude-v2",
		"anthropic.claude-v2:1",
	}

	for _, modelID := range models {
		t.Run(modelID, func(t *testing.T) {
			g, err := NewBedrock(registry.Config{"model": modelID, "region": "us-east-1"})
			require.NoError(t, err)
			assert.Contains(t, g.Name(), "bedrock")
		})
	}
}

func TestNewBedrock_WiresRateLimiter(t *testing.T) {
	g, err := NewBedrock(registry.Config{
		"model": "anthropic.claude-v2", "region": "us-east-1", "rate_limit": 5.0,
	})
	require.NoError(t, err)

	bedrock, ok := g.(*Bedrock)
	require.True(t, ok)
	assert.NotNil(t, bedrock.httpClient)
}

func TestBedrock_Expand_ClaudeModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/invoke")
		_ = json.NewEncoder(w).Encode(mockBedrockClaudeResponse("Hello from Bedrock!"))
	}))
	defer server.Close()

	g, err := NewBedrock(registry.Config{
		"model":    "anthropic.claude-3-sonnet-20240229-v1:0",
		"region":   "us-east-1",
		"endpoint": server.URL,
	})
	require.NoError(t, err)

	result, err := g.Expand(context.Background(), "Hello", types.ExpandParams{})
	require.NoError(t, err)
	assert.Equal(t, "Hello from Bedrock!", result.Text)
}

func TestBedrock_Refine_TitanModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{"outputText": "refined by titan"}},
		})
	}))
	defer server.Close()

	g, err := NewBedrock(registry.Config{
		"model":    "amazon.titan-text-express-v1",
		"region":   "us-east-1",
		"endpoint": server.URL,
	})
	require.NoError(t, err)

	result, err := g.Refine(context.Background(), "original", types.RefineParams{})
	require.NoError(t, err)
	assert.Equal(t, "refined by titan", result.Text)
}

func TestBedrock_Combine_LlamaModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"generation": "combined output"})
	}))
	defer server.Close()

	g, err := NewBedrock(registry.Config{
		"model":    "meta.llama3-70b-instruct-v1:0",
		"region":   "us-east-1",
		"endpoint": server.URL,
	})
	require.NoError(t, err)

	result, err := g.Combine(context.Background(), "a red bicycle", "watercolor style", types.CombineParams{})
	require.NoError(t, err)
	assert.Equal(t, "combined output", result.Text)
}

func TestBedrock_UnsupportedModelFamily(t *testing.T) {
	g, err := NewBedrock(registry.Config{
		"model":  "cohere.command-text-v14",
		"region": "us-east-1",
	})
	require.NoError(t, err)

	_, err = g.Expand(context.Background(), "test", types.ExpandParams{})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.InvalidArgument))
}

func TestBedrock_RateLimitError(t *testing.T) {
	server := httptest.NewServer(mockBedrockErrorResponse(http.StatusTooManyRequests, "ThrottlingException", "Rate exceeded"))
	defer server.Close()

	g, err := NewBedrock(registry.Config{
		"model": "anthropic.claude-3-sonnet-20240229-v1:0", "region": "us-east-1", "endpoint": server.URL,
	})
	require.NoError(t, err)

	_, err = g.Expand(context.Background(), "test", types.ExpandParams{})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ServiceUnavailable))
}

func TestBedrock_AuthError(t *testing.T) {
	server := httptest.NewServer(mockBedrockErrorResponse(http.StatusForbidden, "AccessDeniedException", "Insufficient permissions"))
	defer server.Close()

	g, err := NewBedrock(registry.Config{
		"model": "anthropic.claude-3-sonnet-20240229-v1:0", "region": "us-east-1", "endpoint": server.URL,
	})
	require.NoError(t, err)

	_, err = g.Expand(context.Background(), "test", types.ExpandParams{})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.Fatal))
}

func TestBedrock_ValidationError(t *testing.T) {
	server := httptest.NewServer(mockBedrockErrorResponse(http.StatusBadRequest, "ValidationException", "Invalid request"))
	defer server.Close()

	g, err := NewBedrock(registry.Config{
		"model": "anthropic.claude-3-sonnet-20240229-v1:0", "region": "us-east-1", "endpoint": server.URL,
	})
	require.NoError(t, err)

	_, err = g.Expand(context.Background(), "test", types.ExpandParams{})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.InvalidArgument))
}

func TestBedrock_Name(t *testing.T) {
	g, err := NewBedrock(registry.Config{"model": "anthropic.claude-3-sonnet-20240229-v1:0", "region": "us-east-1"})
	require.NoError(t, err)
	assert.Equal(t, "bedrock.Bedrock", g.Name())
}

func TestBedrock_Description(t *testing.T) {
	g, err := NewBedrock(registry.Config{"model": "anthropic.claude-3-sonnet-20240229-v1:0", "region": "us-east-1"})
	require.NoError(t, err)
	assert.Contains(t, g.Description(), "Bedrock")
}

func TestBedrock_Registration(t *testing.T) {
	require.True(t, providers.HasLLM("bedrock.Bedrock"))
}
