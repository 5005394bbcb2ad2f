package moderation

import (
	"math"
	"strings"
	"unicode"
)

// tfVector is a sparse term-frequency vector over lower-cased word
// tokens, used by the violation tracker to find the past successful
// rewrite most similar to a newly-refused prompt (spec §4.G: "a
// cosine-TF-vector similarity index over past successful rewrites").
type tfVector map[string]float64

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func vectorize(text string) tfVector {
	tokens := tokenize(text)
	v := make(tfVector, len(tokens))
	for _, tok := range tokens {
		v[tok]++
	}
	if len(tokens) == 0 {
		return v
	}
	n := float64(len(tokens))
	for k := range v {
		v[k] /= n
	}
	return v
}

// cosineSimilarity returns the cosine of the angle between a and b,
// iterating the smaller vector for efficiency. Returns 0 for either
// empty vector.
func cosineSimilarity(a, b tfVector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}

	var dot, normA, normB float64
	for k, va := range a {
		normA += va * va
		if vb, ok := b[k]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
