package scheduler_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kestrel-labs/imagerefine/internal/scheduler"
	"github.com/kestrel-labs/imagerefine/pkg/gpu"
	"github.com/kestrel-labs/imagerefine/pkg/metadata"
	"github.com/kestrel-labs/imagerefine/pkg/session"
	"github.com/kestrel-labs/imagerefine/pkg/types"
	"github.com/stretchr/testify/require"
)

// stubLLM is a deterministic types.LLM: Expand/Combine append a fixed
// marker so callers can see the step ran, and Refine special-cases the
// critique generator's "generate-critique" marker so critique.Generate
// parses a well-formed response instead of falling back.
type stubLLM struct{}

func (stubLLM) Expand(ctx context.Context, prompt string, params types.ExpandParams) (types.LLMResult, error) {
	return types.LLMResult{Text: prompt + " expanded-" + string(params.Dimension)}, nil
}

func (stubLLM) Refine(ctx context.Context, prompt string, params types.RefineParams) (types.LLMResult, error) {
	if params.Critique.Critique == "generate-critique" {
		return types.LLMResult{Text: "sharpen the focal subject|add more contrast|ranked lower on aesthetics"}, nil
	}
	return types.LLMResult{Text: prompt + " refined-" + string(params.Dimension)}, nil
}

func (stubLLM) Combine(ctx context.Context, whatPrompt, howPrompt string, params types.CombineParams) (types.LLMResult, error) {
	return types.LLMResult{Text: whatPrompt + " :: " + howPrompt}, nil
}

func (stubLLM) Name() string        { return "stub-llm" }
func (stubLLM) Description() string { return "deterministic test double" }

// stubImage writes nothing to disk; LocalPath just encodes the
// candidate id so stubVLM can recover a stable ordering without a
// shared side channel.
type stubImage struct{}

func (stubImage) Generate(ctx context.Context, prompt string, params types.ImageParams) (types.ImageResult, error) {
	return types.ImageResult{LocalPath: fmt.Sprintf("/tmp/%s.png", params.CandidateID)}, nil
}

func (stubImage) Name() string        { return "stub-image" }
func (stubImage) Description() string { return "deterministic test double" }

// stubVLM ranks the lexicographically smaller candidate id ahead of
// the larger one, a cheap deterministic stand-in for the real
// comparator that still exercises the whole ranking/critique path.
type stubVLM struct{}

func candidateIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, ".png")
}

func (stubVLM) ComparePair(ctx context.Context, imageA, imageB types.ImageRef, referencePrompt string, params types.VLMParams) (types.VLMResult, error) {
	idA := candidateIDFromPath(imageA.LocalPath)
	idB := candidateIDFromPath(imageB.LocalPath)
	winner := types.SlotA
	if idB < idA {
		winner = types.SlotB
	}
	return types.VLMResult{
		Winner:          winner,
		Reason:          "lexicographic id order",
		RanksA:          types.Ranks{Alignment: 1, Aesthetics: 1, Combined: 1},
		RanksB:          types.Ranks{Alignment: 2, Aesthetics: 2, Combined: 2},
		WinnerStrengths: []string{"strong composition"},
		LoserWeaknesses: []string{"weak lighting"},
	}, nil
}

func (stubVLM) Name() string        { return "stub-vlm" }
func (stubVLM) Description() string { return "deterministic test double" }

// noopController and alwaysHealthyProber let the GPU coordinator run
// its full lock/conflict/health-check path without touching any real
// process or network socket.
type noopController struct{ nextPID int }

func (c *noopController) Start(ctx context.Context, svc gpu.Service) (int, error) {
	c.nextPID++
	return c.nextPID, nil
}

func (c *noopController) Stop(ctx context.Context, svc gpu.Service, pid int) error { return nil }

type alwaysHealthyProber struct{}

func (alwaysHealthyProber) Probe(ctx context.Context, baseURL string) error { return nil }

// newTestCoordinator builds a Coordinator whose three services
// (llm/image/vlm) already have a port-discovery file in place, so the
// first health probe on every operation succeeds without a restart.
func newTestCoordinator(t *testing.T) *gpu.Coordinator {
	t.Helper()
	servicesDir := t.TempDir()
	for _, svc := range []string{"llm", "image", "vlm"} {
		path := session.ServicePortFile(servicesDir, svc)
		require.NoError(t, os.WriteFile(path, []byte("9000\n"), 0o644))
	}
	return gpu.New(&noopController{}, alwaysHealthyProber{}, servicesDir, nil, gpu.WithCleanupDelay(0))
}

func newTestTracker(t *testing.T, cfg scheduler.Config, userPrompt string) *metadata.Tracker {
	t.Helper()
	sessionID := session.NewSessionID(time.Now())
	paths := session.NewPaths(t.TempDir(), time.Now(), sessionID)
	doc := session.New(sessionID, userPrompt, session.Config{
		BeamWidth:     cfg.BeamWidth,
		Survivors:     cfg.Survivors,
		MaxIterations: cfg.MaxIterations,
		Alpha:         cfg.Alpha,
		EnsembleSize:  cfg.EnsembleSize,
		RankingMode:   session.RankingModeRank,
	})
	tracker := metadata.New(paths, doc)
	require.NoError(t, tracker.Initialize())
	t.Cleanup(tracker.Close)
	return tracker
}

func newTestEngine(t *testing.T, cfg scheduler.Config) (*scheduler.Engine, *metadata.Tracker) {
	t.Helper()
	tracker := newTestTracker(t, cfg, "a mountain")
	engine := scheduler.New(stubLLM{}, stubImage{}, stubVLM{}, newTestCoordinator(t), tracker, nil, "sess-test", cfg)
	return engine, tracker
}

// TestEngineRun_ColdStartTwoIterations exercises spec §8 scenario 1:
// N=4, M=2, alpha=0.7, k=1. Iteration 0 has 4 root candidates; 2
// survive. Iteration 1 branches those 2 survivors into 4 children; 1
// survives and becomes the final winner, with a two-hop lineage back
// to its iteration-0 parent.
func TestEngineRun_ColdStartTwoIterations(t *testing.T) {
	cfg := scheduler.Config{
		BeamWidth:     4,
		Survivors:     2,
		MaxIterations: 2,
		Alpha:         0.7,
		EnsembleSize:  1,
		MaxFanout:     4,
	}
	engine, _ := newTestEngine(t, cfg)

	doc, err := engine.Run(context.Background(), "a mountain")
	require.NoError(t, err)
	require.Equal(t, session.StatusCompleted, doc.Status)
	require.Len(t, doc.Iterations, 2)

	iter0 := doc.Iterations[0]
	require.Len(t, iter0.Candidates, 4)
	for _, c := range iter0.Candidates {
		require.Nil(t, c.ParentID)
		require.Equal(t, session.CandidateCompleted, c.Status)
	}
	survivors0 := iter0.Survivors()
	require.Len(t, survivors0, 2)
	survivorIDs := make(map[string]bool, 2)
	for _, c := range survivors0 {
		survivorIDs[c.CandidateID] = true
	}

	iter1 := doc.Iterations[1]
	require.Len(t, iter1.Candidates, 4)
	for _, c := range iter1.Candidates {
		require.NotNil(t, c.ParentID)
		require.True(t, survivorIDs[*c.ParentID], "iteration 1 candidate must branch from an iteration 0 survivor")
	}
	survivors1 := iter1.Survivors()
	require.Len(t, survivors1, 1)

	// The final ranking pass spans every surviving candidate across
	// every iteration (spec §4.H step 7), so the winner may be an
	// iteration-0 survivor or the iteration-1 leaf; what must hold is
	// that the lineage chain it reports is internally consistent.
	require.NotNil(t, doc.Winner)
	require.Contains(t, []int{0, 1}, doc.Winner.Iteration)
	require.Len(t, doc.Lineage, doc.Winner.Iteration+1)
	require.Equal(t, doc.Winner.CandidateID, doc.Lineage[len(doc.Lineage)-1].CandidateID)

	for i, entry := range doc.Lineage {
		require.Equal(t, i, entry.Iteration)
		c, ok := doc.FindCandidate(entry.Iteration, entry.CandidateID)
		require.True(t, ok)
		if i == 0 {
			require.Nil(t, c.ParentID)
		} else {
			require.NotNil(t, c.ParentID)
			require.Equal(t, *c.ParentID, doc.Lineage[i-1].CandidateID)
		}
	}
}

// TestEngineRun_SingleCandidateBoundary covers N=1: one candidate per
// iteration, trivially "surviving" itself with no pairwise comparison
// needed.
func TestEngineRun_SingleCandidateBoundary(t *testing.T) {
	cfg := scheduler.Config{
		BeamWidth:     1,
		Survivors:     1,
		MaxIterations: 1,
		Alpha:         0.7,
		EnsembleSize:  1,
		MaxFanout:     1,
	}
	engine, _ := newTestEngine(t, cfg)

	doc, err := engine.Run(context.Background(), "a lighthouse")
	require.NoError(t, err)
	require.Equal(t, session.StatusCompleted, doc.Status)
	require.Len(t, doc.Iterations, 1)
	require.Len(t, doc.Iterations[0].Candidates, 1)
	require.NotNil(t, doc.Winner)
	require.Equal(t, 0, doc.Winner.Iteration)
	require.Len(t, doc.Lineage, 1)
}

// TestEngineRun_ZeroIterationsCompletesImmediately covers the I=0
// boundary (spec §8): the session completes with no iterations and no
// final winner.
func TestEngineRun_ZeroIterationsCompletesImmediately(t *testing.T) {
	cfg := scheduler.Config{
		BeamWidth:     4,
		Survivors:     2,
		MaxIterations: 0,
		Alpha:         0.7,
		EnsembleSize:  1,
	}
	engine, _ := newTestEngine(t, cfg)

	doc, err := engine.Run(context.Background(), "a river")
	require.NoError(t, err)
	require.Equal(t, session.StatusCompleted, doc.Status)
	require.Empty(t, doc.Iterations)
	require.Nil(t, doc.Winner)
}

// TestEngineRun_CancelledContextStopsAtIterationBoundary covers spec
// §4.H's cancellation semantics: a context cancelled before the loop
// starts fails the session cleanly rather than hanging or partially
// mutating state.
func TestEngineRun_CancelledContextStopsAtIterationBoundary(t *testing.T) {
	cfg := scheduler.Config{
		BeamWidth:     4,
		Survivors:     2,
		MaxIterations: 3,
		Alpha:         0.7,
		EnsembleSize:  1,
	}
	engine, _ := newTestEngine(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc, err := engine.Run(ctx, "a forest")
	require.Error(t, err)
	require.Equal(t, session.StatusFailed, doc.Status)
}
