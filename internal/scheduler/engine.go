package scheduler

import (
	"context"
	"fmt"
	"sort"

	"github.com/kestrel-labs/imagerefine/pkg/apperrors"
	"github.com/kestrel-labs/imagerefine/pkg/comparison"
	"github.com/kestrel-labs/imagerefine/pkg/critique"
	"github.com/kestrel-labs/imagerefine/pkg/gpu"
	"github.com/kestrel-labs/imagerefine/pkg/metadata"
	"github.com/kestrel-labs/imagerefine/pkg/moderation"
	"github.com/kestrel-labs/imagerefine/pkg/ranking"
	"github.com/kestrel-labs/imagerefine/pkg/session"
	"github.com/kestrel-labs/imagerefine/pkg/types"
)

// Engine drives one session's beam search end to end (spec §4.H).
type Engine struct {
	llm   types.LLM
	image types.Image
	vlm   types.VLM
	gpu   *gpu.Coordinator

	tracker    *metadata.Tracker
	moderation *moderation.Refiner // optional; nil disables content-policy retry

	sessionID string
	cfg       Config
}

// New builds an Engine. moderationRefiner may be nil. sessionID is
// threaded into every Image.Generate call so providers that stream
// through an off-process service know where to place their output.
func New(llm types.LLM, image types.Image, vlm types.VLM, coordinator *gpu.Coordinator, tracker *metadata.Tracker, moderationRefiner *moderation.Refiner, sessionID string, cfg Config) *Engine {
	if cfg.MaxFanout <= 0 {
		cfg.MaxFanout = cfg.BeamWidth
	}
	return &Engine{
		llm: llm, image: image, vlm: vlm, gpu: coordinator,
		tracker: tracker, moderation: moderationRefiner, sessionID: sessionID, cfg: cfg,
	}
}

// candidate is the engine's in-memory working record for one
// generated image attempt, richer than session.Candidate (which only
// stores what the tracker persists).
type candidate struct {
	id         string
	parentID   *string
	whatPrompt string
	howPrompt  string
	dimension  types.Dimension
	critique   *types.Critique

	combined string
	image    *types.ImageResult
	failed   bool
}

func (c *candidate) imageRef() types.ImageRef {
	return types.ImageRef{LocalPath: c.image.LocalPath}
}

// survivorSeed is what one surviving candidate contributes to the next
// iteration's branching.
type survivorSeed struct {
	id         string
	whatPrompt string
	howPrompt  string
	critique   *types.Critique
}

// globalEntry tracks one iteration's surviving image, for the
// termination-time global ranking (spec §4.H step 7).
type globalEntry struct {
	iteration int
	candidate *candidate
}

// Run executes the full beam search for userPrompt and returns the
// final session document (spec §4.H, §3 Lifecycle).
func (e *Engine) Run(ctx context.Context, userPrompt string) (*session.Session, error) {
	if e.cfg.MaxIterations == 0 {
		if err := e.tracker.Complete(); err != nil {
			return nil, err
		}
		return e.tracker.Snapshot(), nil
	}

	var survivors []survivorSeed
	var globals []globalEntry
	var priorSurvivorGraph *comparison.Graph

	for i := 0; i < e.cfg.MaxIterations; i++ {
		select {
		case <-ctx.Done():
			_ = e.tracker.MarkFailed("session cancelled")
			return e.tracker.Snapshot(), apperrors.New(apperrors.Cancelled, "session cancelled")
		default:
		}

		dimension := DimensionForIteration(i)
		candidates := e.expand(i, survivors, dimension, userPrompt)

		e.generateAll(ctx, i, candidates)

		completed := make([]*candidate, 0, len(candidates))
		for _, c := range candidates {
			if !c.failed {
				completed = append(completed, c)
			}
		}
		if len(completed) == 0 {
			_ = e.tracker.MarkFailed(fmt.Sprintf("iteration %d: all candidates failed generation", i))
			return e.tracker.Snapshot(), apperrors.New(apperrors.Fatal, "all candidates failed in iteration")
		}

		images := make(map[string]types.ImageRef, len(completed))
		for _, c := range completed {
			images[c.id] = c.imageRef()
		}

		result, err := e.rankUnderGPU(ctx, images, userPrompt, priorSurvivorGraph)
		if err != nil {
			_ = e.tracker.MarkFailed(fmt.Sprintf("iteration %d: ranking failed: %v", i, err))
			return e.tracker.Snapshot(), err
		}

		if err := e.tracker.RecordIterationRanking(i, result.Rankings); err != nil {
			return nil, err
		}

		keep := e.cfg.Survivors
		if i == e.cfg.MaxIterations-1 {
			// The last iteration keeps only its best candidate.
			keep = 1
		}
		survivedSet := selectSurvivors(result.Rankings, keep)
		byID := make(map[string]*candidate, len(completed))
		for _, c := range completed {
			byID[c.id] = c
		}

		nextDimension := DimensionForIteration(i + 1)
		var nextSurvivors []survivorSeed
		survivorGraph := comparison.New()

		for _, entry := range result.Rankings {
			c, ok := byID[entry.CandidateID]
			if !ok {
				continue
			}
			survived := survivedSet[entry.CandidateID]

			feedback := result.Feedback[entry.CandidateID]
			var critiqueOut *types.Critique
			if survived {
				out, cerr := critique.New(e.llm).Generate(ctx, critique.Input{
					Dimension:     nextDimension,
					Feedback:      feedback,
					Rank:          entry.Rank,
					TotalRanked:   len(result.Rankings),
					CombinedScore: averageCombined(entry, result.Graph),
				})
				if cerr == nil {
					critiqueOut = &types.Critique{Critique: out.Critique, Recommendation: out.Recommendation, Reason: out.Reason}
				}
			}

			survivedCopy := survived
			aggregated := &session.AggregatedFeedback{Strengths: feedback.Strengths, Weaknesses: feedback.Weaknesses}
			if err := e.tracker.EnrichCandidateWithRankingData(i, entry.CandidateID, comparisonRecordsFor(entry.CandidateID, result.Graph), aggregated, critiqueOut); err != nil {
				return nil, err
			}
			if err := e.tracker.UpdateAttemptWithResults(i, entry.CandidateID, metadata.AttemptResults{
				Combined: c.combined,
				Image:    &session.Image{LocalPath: c.image.LocalPath, URL: c.image.URL, BaseImagePath: c.image.BaseImagePath},
			}, &survivedCopy); err != nil {
				return nil, err
			}

			if survived {
				c.critique = critiqueOut
				nextSurvivors = append(nextSurvivors, survivorSeed{
					id: c.id, whatPrompt: c.whatPrompt, howPrompt: c.howPrompt, critique: critiqueOut,
				})
				globals = append(globals, globalEntry{iteration: i, candidate: c})
			}
		}

		// Seed the next iteration's graph with just the survivor-vs-
		// survivor comparisons already known, so those pairs don't need
		// re-asking (spec §4.H step 4: knownComparisons).
		survivorIDs := make(map[string]bool, len(nextSurvivors))
		for _, s := range nextSurvivors {
			survivorIDs[s.id] = true
		}
		for _, fact := range result.Graph.ToJSON() {
			if survivorIDs[fact.IDA] && survivorIDs[fact.IDB] {
				survivorGraph.Record(fact.IDA, fact.IDB, fact.Winner, fact.RanksA, fact.RanksB)
			}
		}
		priorSurvivorGraph = survivorGraph

		survivors = nextSurvivors
		if len(survivors) <= 1 {
			break
		}
	}

	return e.finalize(ctx, userPrompt, globals)
}

// finalize runs the ranking engine once more over every surviving
// candidate across all iterations to identify the global winner (spec
// §4.H step 7).
func (e *Engine) finalize(ctx context.Context, userPrompt string, globals []globalEntry) (*session.Session, error) {
	if len(globals) == 0 {
		if err := e.tracker.Complete(); err != nil {
			return nil, err
		}
		return e.tracker.Snapshot(), nil
	}

	images := make(map[string]types.ImageRef, len(globals))
	byID := make(map[string]globalEntry, len(globals))
	for _, g := range globals {
		images[g.candidate.id] = g.candidate.imageRef()
		byID[g.candidate.id] = g
	}

	result, err := e.rankUnderGPU(ctx, images, userPrompt, nil)
	if err != nil {
		_ = e.tracker.MarkFailed(fmt.Sprintf("final ranking failed: %v", err))
		return e.tracker.Snapshot(), err
	}
	if err := e.tracker.RecordFinalGlobalRanking(result.Rankings); err != nil {
		return nil, err
	}
	if len(result.Rankings) == 0 {
		return nil, apperrors.New(apperrors.Fatal, "final ranking produced no entries")
	}

	winner := result.Rankings[0]
	winnerEntry := byID[winner.CandidateID]
	if err := e.tracker.MarkFinalWinner(winnerEntry.iteration, winner.CandidateID, averageCombined(winner, result.Graph)); err != nil {
		return nil, err
	}
	return e.tracker.Snapshot(), nil
}

// rankUnderGPU invokes the ranking engine under the GPU coordinator's
// VLM combinator (spec §4.H step 4: "Under the VLM combinator, invoke
// the ranking engine").
func (e *Engine) rankUnderGPU(ctx context.Context, images map[string]types.ImageRef, referencePrompt string, seed *comparison.Graph) (*ranking.Result, error) {
	var result *ranking.Result
	err := e.gpu.WithVLMOperation(ctx, func(ctx context.Context) error {
		engine := ranking.New(e.vlm, ranking.Options{Alpha: e.cfg.Alpha, EnsembleSize: e.cfg.EnsembleSize, GracefulDegradation: true})
		r, rerr := engine.Rank(ctx, images, referencePrompt, seed)
		if rerr != nil {
			return rerr
		}
		result = r
		return nil
	})
	return result, err
}

func comparisonRecordsFor(id string, graph *comparison.Graph) []session.ComparisonRecord {
	var out []session.ComparisonRecord
	for _, fact := range graph.ToJSON() {
		var opponent string
		switch id {
		case fact.IDA:
			opponent = fact.IDB
		case fact.IDB:
			opponent = fact.IDA
		default:
			continue
		}
		ranks := graph.AggregateStats(id)
		out = append(out, session.ComparisonRecord{
			OpponentID: opponent,
			Won:        fact.Winner == id,
			Inferred:   false,
			Ranks:      ranks,
			Timestamp:  fact.Timestamp,
		})
	}
	return out
}

// expand builds the candidate set for iteration i (spec §4.H step 2):
// cold start independently expands both dimensions; warm iterations
// branch each survivor into beamWidth/len(survivors) children on the
// targeted dimension only.
func (e *Engine) expand(iteration int, survivors []survivorSeed, dimension types.Dimension, userPrompt string) []*candidate {
	if iteration == 0 {
		return e.expandColdStart(userPrompt)
	}
	return e.expandWarm(survivors, dimension)
}

func (e *Engine) expandColdStart(userPrompt string) []*candidate {
	n := e.cfg.BeamWidth
	candidates := make([]*candidate, n)
	for i := 0; i < n; i++ {
		candidates[i] = &candidate{
			id:         session.NewCandidateID(),
			whatPrompt: userPrompt,
			howPrompt:  userPrompt,
			dimension:  types.DimensionWhat,
		}
	}
	return candidates
}

func (e *Engine) expandWarm(survivors []survivorSeed, dimension types.Dimension) []*candidate {
	sorted := make([]survivorSeed, len(survivors))
	copy(sorted, survivors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].id < sorted[j].id })

	counts := branchCounts(e.cfg.BeamWidth, len(sorted))
	var candidates []*candidate
	for i, parent := range sorted {
		parentID := parent.id
		for j := 0; j < counts[i]; j++ {
			candidates = append(candidates, &candidate{
				id:         session.NewCandidateID(),
				parentID:   &parentID,
				whatPrompt: parent.whatPrompt,
				howPrompt:  parent.howPrompt,
				dimension:  dimension,
				critique:   parent.critique,
			})
		}
	}
	return candidates
}

// generateAll records each candidate's attempt, refines its targeted
// dimension, combines WHAT/HOW, and generates its image -- fanned out
// on a bounded worker pool (spec §4.H step 3, §5).
func (e *Engine) generateAll(ctx context.Context, iteration int, candidates []*candidate) {
	runBounded(ctx, len(candidates), e.cfg.MaxFanout, func(ctx context.Context, idx int) {
		c := candidates[idx]

		if err := e.tracker.RecordAttempt(iteration, c.id, c.parentID, c.whatPrompt, c.howPrompt, c.dimension, c.critique); err != nil {
			c.failed = true
			return
		}

		if iteration == 0 {
			e.expandPrompts(ctx, c)
		} else {
			e.refineTargetedDimension(ctx, c)
		}

		if err := e.combineAndGenerate(ctx, iteration, c); err != nil {
			c.failed = true
			_ = e.tracker.MarkCandidateFailed(iteration, c.id)
		}
	})
}

// expandPrompts runs the cold-start expand step: both dimensions are
// independently expanded from the user prompt (spec §4.H step 2).
func (e *Engine) expandPrompts(ctx context.Context, c *candidate) {
	_ = e.gpu.WithLLMOperation(ctx, func(ctx context.Context) error {
		if result, err := e.llm.Expand(ctx, c.whatPrompt, types.ExpandParams{
			Dimension: types.DimensionWhat, Style: e.cfg.Style, Descriptiveness: e.cfg.Descriptiveness,
		}); err == nil {
			c.whatPrompt = result.Text
		}
		if result, err := e.llm.Expand(ctx, c.howPrompt, types.ExpandParams{
			Dimension: types.DimensionHow, Style: e.cfg.Style, Descriptiveness: e.cfg.Descriptiveness,
		}); err == nil {
			c.howPrompt = result.Text
		}
		return nil
	})
}

// refineTargetedDimension runs the warm-iteration refine step. A
// refinement failure is tolerated: the candidate keeps its parent's
// prompt for the targeted dimension rather than failing the whole
// candidate over a single refine call.
func (e *Engine) refineTargetedDimension(ctx context.Context, c *candidate) {
	if c.critique == nil {
		return
	}
	_ = e.gpu.WithLLMOperation(ctx, func(ctx context.Context) error {
		result, rerr := e.llm.Refine(ctx, c.targetedPrompt(), types.RefineParams{
			Dimension: c.dimension,
			Critique:  *c.critique,
		})
		if rerr != nil {
			return rerr
		}
		c.setTargetedPrompt(result.Text)
		return nil
	})
}

func (c *candidate) targetedPrompt() string {
	if c.dimension == types.DimensionWhat {
		return c.whatPrompt
	}
	return c.howPrompt
}

func (c *candidate) setTargetedPrompt(text string) {
	if c.dimension == types.DimensionWhat {
		c.whatPrompt = text
	} else {
		c.howPrompt = text
	}
}

func (e *Engine) combineAndGenerate(ctx context.Context, iteration int, c *candidate) error {
	var combined string
	err := e.gpu.WithLLMOperation(ctx, func(ctx context.Context) error {
		result, cerr := e.llm.Combine(ctx, c.whatPrompt, c.howPrompt, types.CombineParams{})
		if cerr != nil {
			return cerr
		}
		combined = result.Text
		return nil
	})
	if err != nil {
		return err
	}
	c.combined = combined

	generate := func(ctx context.Context, prompt string) error {
		return e.gpu.WithImageGenOperation(ctx, func(ctx context.Context) error {
			result, ierr := e.image.Generate(ctx, prompt, types.ImageParams{
				Iteration: iteration, CandidateID: c.id, SessionID: e.sessionID,
			})
			if ierr != nil {
				return ierr
			}
			c.image = &result
			return nil
		})
	}

	if e.moderation == nil {
		return generate(ctx, combined)
	}

	// statusCode/message are left zero-valued: image providers classify
	// a content-policy refusal by tagging the returned error
	// apperrors.ContentPolicy, which Run checks per attempt regardless
	// of these static fields (spec §4.G).
	final, err := e.moderation.Run(ctx, combined, 0, "", generate)
	if err != nil {
		return err
	}
	c.combined = final
	return nil
}

// averageCombined returns the graph's averaged combined rank for a
// ranking entry's candidate, used as the tracker's totalScore-
// equivalent in rank mode.
func averageCombined(entry comparison.RankEntry, graph *comparison.Graph) float64 {
	return graph.AggregateStats(entry.CandidateID).Combined
}
