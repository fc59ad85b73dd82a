package ytapi

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// forEach calls fn for every index in [0, n), running at most limit calls at
// once. It stops starting new calls after the first error and returns it.
func forEach(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) error {
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}

		i := i
		g.Go(func() error { return fn(gctx, i) })
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return ctx.Err()
}
