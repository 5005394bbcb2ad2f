package test

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/kestrel-labs/imagerefine/pkg/providers"
	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/kestrel-labs/imagerefine/pkg/types"
)

func init() {
	providers.RegisterLLM("test.Lipsum", NewLipsum)
}

// Lipsum is an LLM stand-in that returns Lorem Ipsum text, useful for
// exercising prompt-handling code paths with varying non-empty output.
type Lipsum struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLipsum creates a new Lipsum provider.
func NewLipsum(_ registry.Config) (providers.LLM, error) {
	return &Lipsum{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}, nil
}

// loremWords contains common Lorem Ipsum words for sentence generation.
var loremWords = []string{
	"lorem", "ipsum", "dolor", "sit", "amet", "consectetur", "adipiscing", "elit",
	"sed", "do", "eiusmod", "tempor", "incididunt", "ut", "labore", "et", "dolore",
	"magna", "aliqua", "enim", "ad", "minim", "veniam", "quis", "nostrud",
	"exercitation", "ullamco", "laboris", "nisi", "aliquip", "ex", "ea", "commodo",
	"consequat", "duis", "aute", "irure", "in", "reprehenderit", "voluptate",
	"velit", "esse", "cillum", "fugiat", "nulla", "pariatur", "excepteur", "sint",
	"occaecat", "cupidatat", "non", "proident", "sunt", "culpa", "qui", "officia",
	"deserunt", "mollit", "anim", "id", "est", "laborum",
}

// generateSentence creates a random Lorem Ipsum sentence.
func (l *Lipsum) generateSentence() string {
	wordCount := 5 + l.rng.Intn(11)
	words := make([]string, wordCount)
	for i := 0; i < wordCount; i++ {
		words[i] = loremWords[l.rng.Intn(len(loremWords))]
	}
	if len(words) > 0 {
		words[0] = strings.Title(words[0])
	}
	return strings.Join(words, " ") + "."
}

// ensureRng lazily initializes the rng for zero-value Lipsum structs.
func (l *Lipsum) ensureRng() {
	if l.rng == nil {
		l.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
}

// text produces 1-3 random sentences, locking around the shared rng.
func (l *Lipsum) text() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureRng()

	sentenceCount := 1 + l.rng.Intn(3)
	sentences := make([]string, sentenceCount)
	for j := 0; j < sentenceCount; j++ {
		sentences[j] = l.generateSentence()
	}
	return strings.Join(sentences, " ")
}

func (l *Lipsum) Expand(_ context.Context, _ string, _ types.ExpandParams) (types.LLMResult, error) {
	return types.LLMResult{Text: l.text()}, nil
}

func (l *Lipsum) Refine(_ context.Context, _ string, _ types.RefineParams) (types.LLMResult, error) {
	return types.LLMResult{Text: l.text()}, nil
}

func (l *Lipsum) Combine(_ context.Context, _, _ string, _ types.CombineParams) (types.LLMResult, error) {
	return types.LLMResult{Text: l.text()}, nil
}

// Name returns the provider's registered name.
func (l *Lipsum) Name() string { return "test.Lipsum" }

// Description returns a human-readable description.
func (l *Lipsum) Description() string {
	return "Returns Lorem Ipsum text for testing with varying non-zero outputs"
}
