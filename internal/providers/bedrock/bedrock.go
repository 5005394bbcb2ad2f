// Package bedrock wraps AWS Bedrock's InvokeModel API behind the
// shared pkg/types.LLM contract. It supports Claude (Anthropic), Titan
// (Amazon), and Llama (Meta) models, dispatched on the configured
// model id's prefix, demonstrating the spec's "variant" cloud-LLM
// dispatch alongside the OpenAI provider.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/kestrel-labs/imagerefine/pkg/apperrors"
	"github.com/kestrel-labs/imagerefine/pkg/providers"
	"github.com/kestrel-labs/imagerefine/pkg/ratelimit"
	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/kestrel-labs/imagerefine/pkg/types"
)

func init() {
	providers.RegisterLLM("bedrock.Bedrock", NewBedrock)
}

// Default configuration values.
const (
	defaultMaxTokens   = 512
	defaultTemperature = 0.7
)

// Bedrock wraps the AWS Bedrock Runtime API as a types.LLM provider,
// dispatching request/response shaping on the model id's family
// prefix (anthropic.claude / amazon.titan / meta.llama).
type Bedrock struct {
	client    *bedrockruntime.Client
	modelID   string
	region    string
	maxTokens int

	temperature float64
	topP        float64

	httpClient ratelimit.HTTPDoer
}

// NewBedrock creates a Bedrock LLM provider from registry.Config.
func NewBedrock(cfg registry.Config) (providers.LLM, error) {
	g := &Bedrock{
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}

	modelID, err := registry.RequireString(cfg, "model")
	if err != nil {
		return nil, fmt.Errorf("bedrock provider: %w", err)
	}
	g.modelID = modelID

	region, err := registry.RequireString(cfg, "region")
	if err != nil {
		return nil, fmt.Errorf("bedrock provider: %w", err)
	}
	g.region = region

	g.maxTokens = registry.GetInt(cfg, "max_tokens", defaultMaxTokens)
	g.temperature = registry.GetFloat64(cfg, "temperature", defaultTemperature)
	g.topP = registry.GetFloat64(cfg, "top_p", 0)

	if rateLimit := registry.GetFloat64(cfg, "rate_limit", 0); rateLimit > 0 {
		burstSize := registry.GetFloat64(cfg, "burst_size", rateLimit)
		limiter := ratelimit.NewLimiter(burstSize, rateLimit)
		g.httpClient = ratelimit.NewRateLimitedHTTPClient(&http.Client{}, limiter)
	}

	ctx := context.Background()
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(g.region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: failed to load AWS config: %w", err)
	}

	var clientOpts []func(*bedrockruntime.Options)
	if endpoint := registry.GetString(cfg, "endpoint", ""); endpoint != "" {
		clientOpts = append(clientOpts, func(o *bedrockruntime.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if g.httpClient != nil {
		clientOpts = append(clientOpts, func(o *bedrockruntime.Options) {
			o.HTTPClient = g.httpClient
		})
	}

	g.client = bedrockruntime.NewFromConfig(awsCfg, clientOpts...)

	return g, nil
}

func (g *Bedrock) Expand(ctx context.Context, prompt string, params types.ExpandParams) (types.LLMResult, error) {
	return g.invoke(ctx, "", prompt)
}

func (g *Bedrock) Refine(ctx context.Context, prompt string, params types.RefineParams) (types.LLMResult, error) {
	return g.invoke(ctx, "", prompt)
}

func (g *Bedrock) Combine(ctx context.Context, whatPrompt, howPrompt string, params types.CombineParams) (types.LLMResult, error) {
	return g.invoke(ctx, "", whatPrompt+"\n\n"+howPrompt)
}

// invoke builds the family-specific request body, calls InvokeModel,
// and parses the family-specific response shape. system is currently
// always empty; the three capability methods fold any system-style
// instruction directly into prompt since this contract has no
// separate system-prompt slot.
func (g *Bedrock) invoke(ctx context.Context, system, prompt string) (types.LLMResult, error) {
	var body []byte
	var err error

	switch {
	case strings.HasPrefix(g.modelID, "anthropic.claude"):
		body, err = g.buildClaudeRequest(system, prompt)
	case strings.HasPrefix(g.modelID, "amazon.titan"):
		body, err = g.buildTitanRequest(system, prompt)
	case strings.HasPrefix(g.modelID, "meta.llama"):
		body, err = g.buildLlamaRequest(system, prompt)
	default:
		return types.LLMResult{}, apperrors.New(apperrors.InvalidArgument, fmt.Sprintf("bedrock: unsupported model family: %s", g.modelID))
	}
	if err != nil {
		return types.LLMResult{}, apperrors.Wrap(apperrors.InvalidArgument, "bedrock: failed to build request", err)
	}

	output, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return types.LLMResult{}, classifyError(err)
	}

	var text string
	switch {
	case strings.HasPrefix(g.modelID, "anthropic.claude"):
		text, err = g.parseClaudeResponse(output.Body)
	case strings.HasPrefix(g.modelID, "amazon.titan"):
		text, err = g.parseTitanResponse(output.Body)
	case strings.HasPrefix(g.modelID, "meta.llama"):
		text, err = g.parseLlamaResponse(output.Body)
	}
	if err != nil {
		return types.LLMResult{}, apperrors.Wrap(apperrors.ParseFailure, "bedrock: failed to parse response", err)
	}

	return types.LLMResult{Text: text, Meta: map[string]any{"model": g.modelID}}, nil
}

// buildClaudeRequest builds a request for Anthropic Claude models on Bedrock.
func (g *Bedrock) buildClaudeRequest(system, prompt string) ([]byte, error) {
	req := map[string]any{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        g.maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": g.temperature,
	}
	if system != "" {
		req["system"] = system
	}
	if g.topP > 0 {
		req["top_p"] = g.topP
	}
	return json.Marshal(req)
}

// parseClaudeResponse parses a response from Anthropic Claude models on Bedrock.
func (g *Bedrock) parseClaudeResponse(body []byte) (string, error) {
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}

	var text string
	for _, content := range resp.Content {
		if content.Type == "text" {
			text += content.Text
		}
	}
	return text, nil
}

// buildTitanRequest builds a request for Amazon Titan models on Bedrock.
func (g *Bedrock) buildTitanRequest(system, prompt string) ([]byte, error) {
	input := prompt
	if system != "" {
		input = system + "\n\n" + prompt
	}

	textGenConfig := map[string]any{
		"maxTokenCount": g.maxTokens,
		"temperature":   g.temperature,
	}
	if g.topP > 0 {
		textGenConfig["topP"] = g.topP
	}

	req := map[string]any{
		"inputText":            input,
		"textGenerationConfig": textGenConfig,
	}
	return json.Marshal(req)
}

// parseTitanResponse parses a response from Amazon Titan models on Bedrock.
func (g *Bedrock) parseTitanResponse(body []byte) (string, error) {
	var resp struct {
		Results []struct {
			OutputText string `json:"outputText"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if len(resp.Results) == 0 {
		return "", fmt.Errorf("no results in Titan response")
	}
	return resp.Results[0].OutputText, nil
}

// buildLlamaRequest builds a request for Meta Llama models on Bedrock.
func (g *Bedrock) buildLlamaRequest(system, prompt string) ([]byte, error) {
	var built string
	if system != "" {
		built = fmt.Sprintf("<s>[INST] <<SYS>>\n%s\n<</SYS>>\n\n%s [/INST]", system, prompt)
	} else {
		built = fmt.Sprintf("<s>[INST] %s [/INST]", prompt)
	}

	req := map[string]any{
		"prompt":      built,
		"max_gen_len": g.maxTokens,
		"temperature": g.temperature,
	}
	if g.topP > 0 {
		req["top_p"] = g.topP
	}
	return json.Marshal(req)
}

// parseLlamaResponse parses a response from Meta Llama models on Bedrock.
func (g *Bedrock) parseLlamaResponse(body []byte) (string, error) {
	var resp struct {
		Generation string `json:"generation"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	return resp.Generation, nil
}

// classifyError maps a Bedrock API error to an apperrors.Kind (spec
// §7) by its Smithy error code, replacing the teacher's substring
// matching on the raw error string with a structured lookup.
func classifyError(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return apperrors.Wrap(apperrors.ServiceUnavailable, "bedrock: request failed", err)
	}

	switch apiErr.ErrorCode() {
	case "ThrottlingException", "TooManyRequestsException":
		return apperrors.Wrap(apperrors.ServiceUnavailable, "bedrock: rate limit exceeded", err)
	case "AccessDeniedException", "UnauthorizedException":
		return apperrors.Wrap(apperrors.Fatal, "bedrock: authentication error", err)
	case "ValidationException":
		return apperrors.Wrap(apperrors.InvalidArgument, "bedrock: invalid request", err)
	case "ServiceUnavailableException", "InternalServerException":
		return apperrors.Wrap(apperrors.ServiceUnavailable, "bedrock: service error", err)
	default:
		return apperrors.Wrap(apperrors.ServiceUnavailable, "bedrock: api error", err)
	}
}

// Name returns the provider's registered name.
func (g *Bedrock) Name() string { return "bedrock.Bedrock" }

// Description returns a human-readable description.
func (g *Bedrock) Description() string {
	return "AWS Bedrock provider supporting Claude, Titan, and Llama models"
}
