package moderation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kestrel-labs/imagerefine/pkg/apperrors"
	"github.com/kestrel-labs/imagerefine/pkg/moderation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsContentPolicyRefusalMatchesKnownShapes(t *testing.T) {
	assert.True(t, moderation.IsContentPolicyRefusal(400, "Content Policy Violation: graphic imagery"))
	assert.True(t, moderation.IsContentPolicyRefusal(400, "request flagged as inappropriate"))
	assert.True(t, moderation.IsContentPolicyRefusal(0, "content_policy_violation"))
	assert.False(t, moderation.IsContentPolicyRefusal(500, "internal server error"))
	assert.False(t, moderation.IsContentPolicyRefusal(400, "rate limit exceeded"))
}

func TestPhraseScannerFlagsKnownVocabulary(t *testing.T) {
	scanner := moderation.NewPhraseScanner([]string{"gore", "mutilated"})
	flagged := scanner.Flag("a scene with extreme GORE and mutilated figures")
	assert.ElementsMatch(t, []string{"gore", "mutilated"}, flagged)
}

func TestViolationTrackerNearestSuccessfulPrefersCloserPrompt(t *testing.T) {
	tracker := moderation.NewViolationTracker(10)
	tracker.RecordSuccess("a knight fighting a dragon with a sword", "a knight dueling a dragon with a blade")
	tracker.RecordSuccess("a sunny beach with palm trees", "a sunny beach with palm trees and calm water")

	rec, sim, ok := tracker.NearestSuccessful("a brave knight battles a dragon")
	require.True(t, ok)
	assert.Greater(t, sim, 0.0)
	assert.Equal(t, "a knight dueling a dragon with a blade", rec.Rewritten)
}

func TestViolationTrackerCapsHistory(t *testing.T) {
	tracker := moderation.NewViolationTracker(2)
	tracker.RecordFailure("p1", "r1")
	tracker.RecordFailure("p2", "r2")
	tracker.RecordFailure("p3", "r3")

	history := tracker.FailedHistory()
	require.Len(t, history, 2)
	assert.Equal(t, "p2", history[0].Original)
	assert.Equal(t, "p3", history[1].Original)
}

type stubRewriter struct {
	rewrites []string
	calls    int
}

func (s *stubRewriter) Rewrite(ctx context.Context, prompt, guidance string) (string, error) {
	idx := s.calls
	s.calls++
	if idx >= len(s.rewrites) {
		return prompt + "!", nil
	}
	return s.rewrites[idx], nil
}

func TestRefinerSucceedsAfterRewrite(t *testing.T) {
	rewriter := &stubRewriter{rewrites: []string{"softened prompt"}}
	scanner := moderation.NewPhraseScanner(moderation.DefaultGraphicVocabulary)
	tracker := moderation.NewViolationTracker(10)
	refiner := moderation.New(rewriter, scanner, tracker, 3)

	calls := 0
	final, err := refiner.Run(context.Background(), "graphic violence scene", 400, "content policy violation", func(ctx context.Context, prompt string) error {
		calls++
		if prompt == "softened prompt" {
			return nil
		}
		return errors.New("refused")
	})

	require.NoError(t, err)
	assert.Equal(t, "softened prompt", final)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, rewriter.calls)
}

func TestRefinerExhaustsRetryBudget(t *testing.T) {
	rewriter := &stubRewriter{}
	refiner := moderation.New(rewriter, nil, moderation.NewViolationTracker(10), 2)

	_, err := refiner.Run(context.Background(), "graphic violence scene", 400, "content policy violation", func(ctx context.Context, prompt string) error {
		return errors.New("still refused")
	})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ContentPolicyExhausted))
}

func TestRefinerDoesNotRetryUnrelatedErrors(t *testing.T) {
	rewriter := &stubRewriter{}
	refiner := moderation.New(rewriter, nil, moderation.NewViolationTracker(10), 3)

	calls := 0
	_, err := refiner.Run(context.Background(), "a cat on a beach", 500, "internal error", func(ctx context.Context, prompt string) error {
		calls++
		return errors.New("internal error")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, rewriter.calls)
}
