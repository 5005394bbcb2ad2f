package types

import "context"

// ImageParams parametrises a single image-generation call. Size is
// resolved to Width/Height by the caller before dispatch; Seed is
// nil for non-reproducible generation.
type ImageParams struct {
	Width, Height int
	Steps         int
	Guidance      float64
	Seed          *int64
	NegativePrompt string

	// Session placement, so a provider streaming through an
	// off-process service knows where to copy its temporary output.
	Iteration   int
	CandidateID string
	SessionID   string
}

// ImageResult is the uniform return shape for an image-generation call.
// LocalPath is always populated once the provider has copied the file
// into the canonical session directory; URL is set only when the
// provider also exposes a remote location. BaseImagePath is the
// provider-declared, optional pre-face-fix variant (spec §9).
type ImageResult struct {
	URL           string
	LocalPath     string
	BaseImagePath string
	RevisedPrompt string
	Meta          map[string]any
}

// Image is the uniform contract over image-generation providers (spec
// §4.A).
type Image interface {
	Generate(ctx context.Context, prompt string, params ImageParams) (ImageResult, error)

	Name() string
	Description() string
}
