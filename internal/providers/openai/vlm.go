package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kestrel-labs/imagerefine/pkg/apperrors"
	"github.com/kestrel-labs/imagerefine/pkg/providers"
	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/kestrel-labs/imagerefine/pkg/types"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/vincent-petithory/dataurl"
)

func init() {
	providers.RegisterVLM("openai.GPT4Vision", NewGPT4Vision)
}

// GPT4Vision is a VLM comparator backed by a GPT-4o-class vision model.
// It presents both candidate images in a single chat turn and parses a
// JSON verdict from the response.
type GPT4Vision struct {
	client *goopenai.Client
	model  string
}

// NewGPT4Vision creates a GPT4Vision provider from registry.Config.
// Defaults to "gpt-4o" when no model is configured.
func NewGPT4Vision(m registry.Config) (providers.VLM, error) {
	if _, ok := m["model"]; !ok {
		m = withDefault(m, "model", "gpt-4o")
	}
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, err
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = rateLimitedClient(cfg.RateLimit, cfg.BurstSize)

	return &GPT4Vision{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

// verdict is the structured JSON shape the prompt asks the model to
// return, parsed out of the response text.
type verdict struct {
	Winner          string   `json:"winner"`
	Reason          string   `json:"reason"`
	AlignmentWinner string   `json:"alignment_winner"`
	AestheticWinner string   `json:"aesthetic_winner"`
	WinnerStrengths []string `json:"winner_strengths"`
	LoserWeaknesses []string `json:"loser_weaknesses"`
}

func (g *GPT4Vision) ComparePair(ctx context.Context, imageA, imageB types.ImageRef, referencePrompt string, params types.VLMParams) (types.VLMResult, error) {
	urlA, err := imageDataURL(imageA)
	if err != nil {
		return types.VLMResult{}, apperrors.Wrap(apperrors.InvalidArgument, "openai: could not read image A", err)
	}
	urlB, err := imageDataURL(imageB)
	if err != nil {
		return types.VLMResult{}, apperrors.Wrap(apperrors.InvalidArgument, "openai: could not read image B", err)
	}

	prompt := fmt.Sprintf(
		"Reference prompt: %q\n\n"+
			"Compare image A and image B against the reference prompt. "+
			"Judge both prompt alignment and aesthetic quality. "+
			"Respond with only a JSON object: "+
			`{"winner":"A"|"B","reason":"...","alignment_winner":"A"|"B","aesthetic_winner":"A"|"B",`+
			`"winner_strengths":["..."],"loser_weaknesses":["..."]}`,
		referencePrompt,
	)

	req := goopenai.ChatCompletionRequest{
		Model: g.model,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role: goopenai.ChatMessageRoleUser,
				MultiContent: []goopenai.ChatMessagePart{
					{Type: goopenai.ChatMessagePartTypeText, Text: prompt},
					{Type: goopenai.ChatMessagePartTypeImageURL, ImageURL: &goopenai.ChatMessageImageURL{URL: urlA}},
					{Type: goopenai.ChatMessagePartTypeImageURL, ImageURL: &goopenai.ChatMessageImageURL{URL: urlB}},
				},
			},
		},
		Temperature: float32(params.Temperature),
		N:           1,
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return types.VLMResult{}, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return types.VLMResult{}, apperrors.New(apperrors.ParseFailure, "openai: vision comparison returned no choices")
	}

	return parseVerdict(resp.Choices[0].Message.Content)
}

func parseVerdict(text string) (types.VLMResult, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var v verdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &v); err != nil {
		return types.VLMResult{}, apperrors.Wrap(apperrors.ParseFailure, "openai: could not parse vision verdict", err)
	}

	winner := types.SlotA
	if strings.EqualFold(v.Winner, "B") {
		winner = types.SlotB
	}

	ranksA := types.Ranks{Alignment: 1, Aesthetics: 1}
	ranksB := types.Ranks{Alignment: 2, Aesthetics: 2}
	if strings.EqualFold(v.AlignmentWinner, "B") {
		ranksA.Alignment, ranksB.Alignment = 2, 1
	}
	if strings.EqualFold(v.AestheticWinner, "B") {
		ranksA.Aesthetics, ranksB.Aesthetics = 2, 1
	}
	ranksA.Combined = float64(ranksA.Alignment+ranksA.Aesthetics) / 2
	ranksB.Combined = float64(ranksB.Alignment+ranksB.Aesthetics) / 2

	return types.VLMResult{
		Winner:          winner,
		Reason:          v.Reason,
		RanksA:          ranksA,
		RanksB:          ranksB,
		WinnerStrengths: v.WinnerStrengths,
		LoserWeaknesses: v.LoserWeaknesses,
	}, nil
}

// imageDataURL resolves an ImageRef to a URL usable in a vision
// message: a remote URL passes through unchanged, a local path is
// base64-embedded as a data URL.
func imageDataURL(ref types.ImageRef) (string, error) {
	if ref.URL != "" {
		return ref.URL, nil
	}
	if ref.LocalPath == "" {
		return "", fmt.Errorf("image reference has neither URL nor LocalPath")
	}

	data, err := os.ReadFile(ref.LocalPath)
	if err != nil {
		return "", err
	}
	encoded := dataurl.New(data, "image/png")
	return encoded.String(), nil
}

// Name returns the provider's registered name.
func (g *GPT4Vision) Name() string { return "openai.GPT4Vision" }

// Description returns a human-readable description.
func (g *GPT4Vision) Description() string {
	return "GPT-4o-class vision model used as a pairwise image comparator"
}
