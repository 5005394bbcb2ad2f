// Package replicate wraps Replicate's hosted model API behind the
// shared pkg/types.Image contract. Models are addressed as
// "owner/model-name" or "owner/model-name:version" and run
// synchronously via the client's polling Run helper.
//
// Configuration:
//   - model: Required. Model identifier (e.g., "stability-ai/sdxl")
//   - api_key: API token (or set REPLICATE_API_TOKEN env var)
//   - guidance_scale: default 7.5
//   - num_inference_steps: default model-specific, 0 omits the field
//   - base_url: custom API endpoint (for testing/proxies)
package replicate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kestrel-labs/imagerefine/pkg/apperrors"
	imghttp "github.com/kestrel-labs/imagerefine/pkg/lib/http"
	"github.com/kestrel-labs/imagerefine/pkg/providers"
	"github.com/kestrel-labs/imagerefine/pkg/ratelimit"
	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/kestrel-labs/imagerefine/pkg/types"
	replicatego "github.com/replicate/replicate-go"
)

func init() {
	providers.RegisterImage("replicate.Replicate", NewReplicate)
}

// Replicate wraps the Replicate prediction API as a types.Image provider.
type Replicate struct {
	client *replicatego.Client
	model  string

	guidance float64
	steps    int
	seed     int64
	hasSeed  bool

	http *imghttp.Client
}

// NewReplicate creates a new Replicate image provider from registry.Config.
func NewReplicate(m registry.Config) (providers.Image, error) {
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, err
	}
	return NewReplicateTyped(cfg)
}

// NewReplicateTyped creates a new Replicate image provider from typed configuration.
func NewReplicateTyped(cfg Config) (*Replicate, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("replicate provider requires model")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("replicate provider requires api_key")
	}

	httpOpts := []imghttp.Option{imghttp.WithTimeout(0)}
	if cfg.RateLimit > 0 {
		limiter := ratelimit.NewLimiter(cfg.BurstSize, cfg.RateLimit)
		httpOpts = append(httpOpts, imghttp.WithTransport(ratelimit.NewRateLimitedRoundTripper(nil, limiter)))
	}

	g := &Replicate{
		model:    cfg.Model,
		guidance: float64(cfg.Temperature),
		steps:    cfg.MaxTokens,
		http:     imghttp.NewClient(httpOpts...),
	}
	if cfg.Seed != 0 {
		g.seed = int64(cfg.Seed)
		g.hasSeed = true
	}

	opts := []replicatego.ClientOption{
		replicatego.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, replicatego.WithBaseURL(cfg.BaseURL))
	}

	client, err := replicatego.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("replicate: failed to create client: %w", err)
	}
	g.client = client

	return g, nil
}

// NewReplicateWithOptions creates a new Replicate image provider using functional options.
func NewReplicateWithOptions(opts ...Option) (*Replicate, error) {
	cfg := ApplyOptions(DefaultConfig(), opts...)
	return NewReplicateTyped(cfg)
}

// Generate runs the configured model once and copies its output image
// to a local path keyed by session/iteration/candidate, mirroring the
// session-relative placement the OpenAI DALL-E provider uses.
func (g *Replicate) Generate(ctx context.Context, prompt string, params types.ImageParams) (types.ImageResult, error) {
	input := replicatego.PredictionInput{
		"prompt": prompt,
	}
	if params.Width > 0 {
		input["width"] = params.Width
	}
	if params.Height > 0 {
		input["height"] = params.Height
	}
	if params.NegativePrompt != "" {
		input["negative_prompt"] = params.NegativePrompt
	}
	if g.steps > 0 {
		input["num_inference_steps"] = g.steps
	}
	guidance := g.guidance
	if params.Guidance > 0 {
		guidance = params.Guidance
	}
	if guidance > 0 {
		input["guidance_scale"] = guidance
	}
	if params.Seed != nil {
		input["seed"] = *params.Seed
	} else if g.hasSeed {
		input["seed"] = g.seed
	}

	output, err := g.client.Run(ctx, g.model, input, nil)
	if err != nil {
		return types.ImageResult{}, classifyError(err)
	}

	remoteURL, err := extractImageURL(output)
	if err != nil {
		return types.ImageResult{}, apperrors.Wrap(apperrors.ParseFailure, "replicate: failed to parse output", err)
	}

	localPath, err := g.download(ctx, remoteURL, params)
	if err != nil {
		return types.ImageResult{}, apperrors.Wrap(apperrors.ServiceUnavailable, "replicate: failed to download generated image", err)
	}

	return types.ImageResult{
		URL:       remoteURL,
		LocalPath: localPath,
	}, nil
}

// extractImageURL pulls the last image URL out of a Replicate
// prediction output, which is a bare string for single-output models
// and a []any/[]string for models that stream multiple frames.
func extractImageURL(output replicatego.PredictionOutput) (string, error) {
	switch v := output.(type) {
	case string:
		if v == "" {
			return "", fmt.Errorf("replicate: empty output")
		}
		return v, nil
	case []string:
		if len(v) == 0 {
			return "", fmt.Errorf("replicate: empty output array")
		}
		return v[len(v)-1], nil
	case []any:
		for i := len(v) - 1; i >= 0; i-- {
			if s, ok := v[i].(string); ok && s != "" {
				return s, nil
			}
		}
		return "", fmt.Errorf("replicate: no string entries in output array")
	default:
		return "", fmt.Errorf("replicate: unrecognized output shape %T", output)
	}
}

func (g *Replicate) download(ctx context.Context, url string, params types.ImageParams) (string, error) {
	resp, err := g.http.GetBytes(ctx, url)
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

// classifyError maps a Replicate API error to an apperrors.Kind,
// replacing the teacher's generic error wrapping with the shared
// taxonomy the other providers use.
func classifyError(err error) error {
	var apiErr *replicatego.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == 429:
			return apperrors.Wrap(apperrors.ServiceUnavailable, "replicate: rate limit exceeded", err)
		case apiErr.Status == 401 || apiErr.Status == 403:
			return apperrors.Wrap(apperrors.Fatal, "replicate: authentication error", err)
		case apiErr.Status == 422 || apiErr.Status == 400:
			return apperrors.Wrap(apperrors.InvalidArgument, "replicate: invalid request", err)
		case apiErr.Status >= 500:
			return apperrors.Wrap(apperrors.ServiceUnavailable, "replicate: service error", err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(apperrors.Timeout, "replicate: request timed out", err)
	}
	return apperrors.Wrap(apperrors.ServiceUnavailable, "replicate: request failed", err)
}

// Name returns the provider's registered name.
func (g *Replicate) Name() string { return "replicate.Replicate" }

// Description returns a human-readable description.
func (g *Replicate) Description() string {
	return "Replicate API provider for open hosted image models (SDXL, Flux, and similar)"
}
