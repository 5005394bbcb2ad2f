// Package openai wraps the OpenAI chat, completion, and reasoning
// (o1/o3) APIs behind the shared pkg/types.LLM contract, plus DALL-E
// image generation (types.Image) and GPT-4o pairwise vision comparison
// (types.VLM).
package openai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kestrel-labs/imagerefine/pkg/apperrors"
	"github.com/kestrel-labs/imagerefine/pkg/providers"
	"github.com/kestrel-labs/imagerefine/pkg/ratelimit"
	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/kestrel-labs/imagerefine/pkg/types"
	goopenai "github.com/sashabaranov/go-openai"
)

func init() {
	providers.RegisterLLM("openai.OpenAI", NewOpenAI)
	providers.RegisterLLM("openai.Reasoning", NewOpenAIReasoning)
}

// chatModels is the set of models that use the chat completions API.
var chatModels = map[string]bool{
	"chatgpt-4o-latest":      true,
	"gpt-3.5-turbo":          true,
	"gpt-3.5-turbo-0125":     true,
	"gpt-4":                  true,
	"gpt-4-turbo":            true,
	"gpt-4-turbo-2024-04-09": true,
	"gpt-4o":                 true,
	"gpt-4o-2024-08-06":      true,
	"gpt-4o-mini":            true,
}

// completionModels is the set of models that use the legacy
// completions API.
var completionModels = map[string]bool{
	"gpt-3.5-turbo-instruct": true,
	"davinci-002":            true,
	"babbage-002":            true,
}

// reasoningModels is the set of models that expose a reasoning token
// budget instead of a plain max_tokens (o1/o3 family): no temperature,
// no n>1, max_completion_tokens instead of max_tokens.
var reasoningModels = map[string]bool{
	"o1-mini":               true,
	"o1-mini-2024-09-12":    true,
	"o1-preview":            true,
	"o1-preview-2024-09-12": true,
	"o3-mini":               true,
	"o3-mini-2025-01-31":    true,
}

// OpenAI wraps the chat and legacy completion APIs. A single instance
// dispatches on the configured model's family, falling through to the
// reasoning API for o1/o3 models regardless of which constructor built
// it, so callers never have to know the family ahead of time.
type OpenAI struct {
	client *goopenai.Client
	model  string
	isChat bool

	temperature      float32
	maxTokens        int
	topP             float32
	frequencyPenalty float32
	presencePenalty  float32
	stop             []string

	reasoningMaxCompletionTokens int
}

// NewOpenAI creates an OpenAI LLM provider from registry.Config.
func NewOpenAI(m registry.Config) (providers.LLM, error) {
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, err
	}
	return NewOpenAITyped(cfg)
}

// NewOpenAITyped creates an OpenAI LLM provider from typed Config.
func NewOpenAITyped(cfg Config) (*OpenAI, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai provider requires model")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai provider requires api_key")
	}

	g := &OpenAI{
		model:            cfg.Model,
		temperature:      cfg.Temperature,
		maxTokens:        cfg.MaxTokens,
		topP:             cfg.TopP,
		frequencyPenalty: cfg.FrequencyPenalty,
		presencePenalty:  cfg.PresencePenalty,
		stop:             cfg.Stop,
	}

	g.isChat = chatModels[cfg.Model]
	if !g.isChat && !completionModels[cfg.Model] {
		g.isChat = true
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = rateLimitedClient(cfg.RateLimit, cfg.BurstSize)
	g.client = goopenai.NewClientWithConfig(clientCfg)

	return g, nil
}

// rateLimitedClient returns an *http.Client whose transport blocks on a
// token bucket before each request, or a plain client when rps is zero.
// go-openai's ClientConfig.HTTPClient is a concrete *http.Client, so the
// limiter has to live on the RoundTripper rather than wrap the client
// itself the way the other providers' HTTPDoer fields do.
func rateLimitedClient(rps, burst float64) *http.Client {
	if rps <= 0 {
		return &http.Client{}
	}
	return &http.Client{
		Transport: ratelimit.NewRateLimitedRoundTripper(http.DefaultTransport, ratelimit.NewLimiter(burst, rps)),
	}
}

// NewOpenAIWithOptions creates an OpenAI LLM provider using functional
// options.
func NewOpenAIWithOptions(opts ...Option) (*OpenAI, error) {
	cfg := ApplyOptions(DefaultConfig(), opts...)
	return NewOpenAITyped(cfg)
}

// NewOpenAIReasoning creates an OpenAI LLM provider configured for the
// o1/o3 reasoning family from registry.Config, registered separately
// since it takes its own config shape (max_completion_tokens instead
// of max_tokens, no temperature).
func NewOpenAIReasoning(m registry.Config) (providers.LLM, error) {
	cfg, err := ReasoningConfigFromMap(m)
	if err != nil {
		return nil, err
	}
	return NewOpenAIReasoningTyped(cfg)
}

// NewOpenAIReasoningTyped creates an OpenAI LLM provider for the
// reasoning family from typed ReasoningConfig.
func NewOpenAIReasoningTyped(cfg ReasoningConfig) (*OpenAI, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai reasoning provider requires model")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai reasoning provider requires api_key")
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = rateLimitedClient(cfg.RateLimit, cfg.BurstSize)

	return &OpenAI{
		client:                       goopenai.NewClientWithConfig(clientCfg),
		model:                        cfg.Model,
		isChat:                       true,
		topP:                         cfg.TopP,
		frequencyPenalty:             cfg.FrequencyPenalty,
		presencePenalty:              cfg.PresencePenalty,
		stop:                         cfg.Stop,
		reasoningMaxCompletionTokens: cfg.MaxCompletionTokens,
	}, nil
}

func (g *OpenAI) Expand(ctx context.Context, prompt string, params types.ExpandParams) (types.LLMResult, error) {
	return g.complete(ctx, prompt)
}

func (g *OpenAI) Refine(ctx context.Context, prompt string, params types.RefineParams) (types.LLMResult, error) {
	return g.complete(ctx, prompt)
}

func (g *OpenAI) Combine(ctx context.Context, whatPrompt, howPrompt string, params types.CombineParams) (types.LLMResult, error) {
	return g.complete(ctx, whatPrompt+"\n\n"+howPrompt)
}

// complete dispatches to the reasoning, chat, or legacy completion API
// depending on the configured model family, and returns a non-empty
// result or a classified error.
func (g *OpenAI) complete(ctx context.Context, prompt string) (types.LLMResult, error) {
	if reasoningModels[g.model] {
		return g.completeReasoning(ctx, prompt)
	}
	if g.isChat {
		return g.completeChat(ctx, prompt)
	}
	return g.completeLegacy(ctx, prompt)
}

func (g *OpenAI) completeChat(ctx context.Context, prompt string) (types.LLMResult, error) {
	req := goopenai.ChatCompletionRequest{
		Model:    g.model,
		Messages: []goopenai.ChatCompletionMessage{{Role: goopenai.ChatMessageRoleUser, Content: prompt}},
		N:        1,
	}
	if g.temperature != 0 {
		req.Temperature = g.temperature
	}
	if g.maxTokens > 0 {
		req.MaxTokens = g.maxTokens
	}
	if g.topP != 0 {
		req.TopP = g.topP
	}
	if g.frequencyPenalty != 0 {
		req.FrequencyPenalty = g.frequencyPenalty
	}
	if g.presencePenalty != 0 {
		req.PresencePenalty = g.presencePenalty
	}
	if len(g.stop) > 0 {
		req.Stop = g.stop
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return types.LLMResult{}, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return types.LLMResult{}, apperrors.New(apperrors.ParseFailure, "openai: chat completion returned no choices")
	}
	return types.LLMResult{
		Text: resp.Choices[0].Message.Content,
		Meta: map[string]any{"model": resp.Model, "prompt_tokens": resp.Usage.PromptTokens},
	}, nil
}

func (g *OpenAI) completeLegacy(ctx context.Context, prompt string) (types.LLMResult, error) {
	req := goopenai.CompletionRequest{
		Model:  g.model,
		Prompt: prompt,
		N:      1,
	}
	if g.temperature != 0 {
		req.Temperature = g.temperature
	}
	if g.maxTokens > 0 {
		req.MaxTokens = g.maxTokens
	}
	if g.topP != 0 {
		req.TopP = g.topP
	}
	if g.frequencyPenalty != 0 {
		req.FrequencyPenalty = g.frequencyPenalty
	}
	if g.presencePenalty != 0 {
		req.PresencePenalty = g.presencePenalty
	}
	if len(g.stop) > 0 {
		req.Stop = g.stop
	}

	resp, err := g.client.CreateCompletion(ctx, req)
	if err != nil {
		return types.LLMResult{}, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return types.LLMResult{}, apperrors.New(apperrors.ParseFailure, "openai: completion returned no choices")
	}
	return types.LLMResult{Text: resp.Choices[0].Text}, nil
}

// completeReasoning calls the chat API with the reasoning-model
// constraints: max_completion_tokens instead of max_tokens, no
// temperature, and a single generation (spec requires the effective
// output budget be raised internally so a full response still fits
// after reasoning tokens are spent; reasoningMaxCompletionTokens is
// that raised budget, set from config rather than maxTokens).
func (g *OpenAI) completeReasoning(ctx context.Context, prompt string) (types.LLMResult, error) {
	req := goopenai.ChatCompletionRequest{
		Model:    g.model,
		Messages: []goopenai.ChatCompletionMessage{{Role: goopenai.ChatMessageRoleUser, Content: prompt}},
		TopP:     g.topP,
	}
	if g.reasoningMaxCompletionTokens > 0 {
		req.MaxCompletionTokens = g.reasoningMaxCompletionTokens
	} else if g.maxTokens > 0 {
		req.MaxCompletionTokens = g.maxTokens * 4
	}
	if g.frequencyPenalty != 0 {
		req.FrequencyPenalty = g.frequencyPenalty
	}
	if g.presencePenalty != 0 {
		req.PresencePenalty = g.presencePenalty
	}
	if len(g.stop) > 0 {
		req.Stop = g.stop
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return types.LLMResult{}, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return types.LLMResult{}, apperrors.New(apperrors.ParseFailure, "openai: reasoning completion returned no choices")
	}
	return types.LLMResult{Text: resp.Choices[0].Message.Content}, nil
}

// Name returns the provider's registered name.
func (g *OpenAI) Name() string {
	if reasoningModels[g.model] {
		return "openai.Reasoning"
	}
	return "openai.OpenAI"
}

// Description returns a human-readable description.
func (g *OpenAI) Description() string {
	return "OpenAI chat, legacy completion, and o1/o3 reasoning models, dispatched by model family"
}

// classifyError maps an OpenAI API error to an apperrors.Kind (spec
// §7). Content-policy refusals surface as HTTP 400 with the
// content_policy_violation code; those get tagged ContentPolicy so the
// moderation refiner picks them up instead of treating them as a plain
// failure.
func classifyError(err error) error {
	apiErr, ok := err.(*goopenai.APIError)
	if !ok {
		return apperrors.Wrap(apperrors.ServiceUnavailable, "openai: request failed", err)
	}

	switch apiErr.HTTPStatusCode {
	case 400:
		if apiErr.Code == "content_policy_violation" {
			return apperrors.Wrap(apperrors.ContentPolicy, "openai: content policy violation", err)
		}
		return apperrors.Wrap(apperrors.InvalidArgument, "openai: bad request", err)
	case 401, 403:
		return apperrors.Wrap(apperrors.Fatal, "openai: authentication error", err)
	case 408:
		return apperrors.Wrap(apperrors.Timeout, "openai: request timed out", err)
	case 429:
		return apperrors.Wrap(apperrors.ServiceUnavailable, "openai: rate limited", err)
	case 500, 502, 503, 504:
		return apperrors.Wrap(apperrors.ServiceUnavailable, "openai: server error", err)
	default:
		return apperrors.Wrap(apperrors.ServiceUnavailable, "openai: api error", err)
	}
}
