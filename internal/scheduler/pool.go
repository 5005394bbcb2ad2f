package scheduler

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// runBounded runs fn(i) for i in [0, n) on a worker pool capped at
// limit, the same errgroup.SetLimit fan-out the teacher uses for
// queryTarget/scoreJudge/scoreOnTopic (internal/scheduler/engine.go,
// now retargeted to candidate generation). A single item's error does
// not abort the others; callers collect per-item errors themselves.
func runBounded(ctx context.Context, n, limit int, fn func(ctx context.Context, i int)) {
	if limit <= 0 {
		limit = n
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			fn(gctx, i)
			return nil
		})
	}
	_ = g.Wait()
}
