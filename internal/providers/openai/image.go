package openai

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	imghttp "github.com/kestrel-labs/imagerefine/pkg/lib/http"
	"github.com/kestrel-labs/imagerefine/pkg/apperrors"
	"github.com/kestrel-labs/imagerefine/pkg/providers"
	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/kestrel-labs/imagerefine/pkg/types"
	goopenai "github.com/sashabaranov/go-openai"
)

func init() {
	providers.RegisterImage("openai.DallE", NewDallE)
}

// DallE wraps OpenAI's image-generation API (DALL-E 2/3).
type DallE struct {
	client  *goopenai.Client
	model   string
	quality string
	style   string
	http    *imghttp.Client
}

// NewDallE creates a DallE provider from registry.Config. Unlike the
// text generators, model is optional here and defaults to DALL-E 3.
func NewDallE(m registry.Config) (providers.Image, error) {
	if _, ok := m["model"]; !ok {
		m = withDefault(m, "model", goopenai.CreateImageModelDallE3)
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

	return &DallE{
		client:  goopenai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		quality: goopenai.CreateImageQualityStandard,
		style:   goopenai.CreateImageStyleVivid,
		http:    imghttp.NewClient(imghttp.WithTimeout(0)),
	}, nil
}

// Generate requests one image from DALL-E and copies it to a local
// temp path keyed by session/iteration/candidate.
func (d *DallE) Generate(ctx context.Context, prompt string, params types.ImageParams) (types.ImageResult, error) {
	size := imageSize(params.Width, params.Height)

	req := goopenai.ImageRequest{
		Model:          d.model,
		Prompt:         prompt,
		N:              1,
		Size:           size,
		Quality:        d.quality,
		Style:          d.style,
		ResponseFormat: goopenai.CreateImageResponseFormatURL,
	}

	resp, err := d.client.CreateImage(ctx, req)
	if err != nil {
		return types.ImageResult{}, classifyError(err)
	}
	if len(resp.Data) == 0 {
		return types.ImageResult{}, apperrors.New(apperrors.ParseFailure, "openai: dall-e returned no images")
	}

	remoteURL := resp.Data[0].URL
	localPath, err := d.download(ctx, remoteURL, params)
	if err != nil {
		return types.ImageResult{}, apperrors.Wrap(apperrors.ServiceUnavailable, "openai: failed to download generated image", err)
	}

	return types.ImageResult{
		URL:           remoteURL,
		LocalPath:     localPath,
		RevisedPrompt: resp.Data[0].RevisedPrompt,
	}, nil
}

func (d *DallE) download(ctx context.Context, url string, params types.ImageParams) (string, error) {
	resp, err := d.http.GetBytes(ctx, url)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d downloading image", resp.StatusCode)
	}

	dir := filepath.Join(os.TempDir(), "imagerefine", params.SessionID, fmt.Sprintf("iter-%d", params.Iteration))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, params.CandidateID+".png")
	if err := os.WriteFile(path, resp.Bytes(), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// imageSize maps a requested width/height to the nearest DALL-E 3
// supported size.
func imageSize(width, height int) string {
	switch {
	case width > height:
		return goopenai.CreateImageSize1792x1024
	case height > width:
		return goopenai.CreateImageSize1024x1792
	default:
		return goopenai.CreateImageSize1024x1024
	}
}

// Name returns the provider's registered name.
func (d *DallE) Name() string { return "openai.DallE" }

// Description returns a human-readable description.
func (d *DallE) Description() string {
	return "OpenAI DALL-E image generation"
}
