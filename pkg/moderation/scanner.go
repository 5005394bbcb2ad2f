package moderation

import "github.com/kestrel-labs/imagerefine/internal/ahocorasick"

// PhraseScanner flags known graphic-vocabulary phrases inside a
// prompt, using the teacher's multi-pattern matcher so a list of
// hundreds of banned phrases costs one linear scan instead of one
// substring search each (spec §4.G: "soften graphic vocabulary").
type PhraseScanner struct {
	ac       ahocorasick.AhoCorasick
	patterns []string
}

// NewPhraseScanner builds a case-insensitive scanner over the given
// phrase list.
func NewPhraseScanner(phrases []string) *PhraseScanner {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
	})
	return &PhraseScanner{ac: builder.Build(phrases), patterns: phrases}
}

// Flag returns the distinct banned phrases found in text.
func (s *PhraseScanner) Flag(text string) []string {
	matches := ahocorasick.FindAll(s.ac, text)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		p := s.patterns[m.Pattern()]
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// DefaultGraphicVocabulary is a minimal starter list; operators extend
// it via configuration.
var DefaultGraphicVocabulary = []string{
	"gore", "mutilated", "decapitated", "graphic violence", "self-harm",
	"explicit nudity", "bestiality", "gratuitous blood",
}
