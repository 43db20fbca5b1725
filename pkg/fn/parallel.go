// Package fn provides small generic concurrency helpers.
package fn

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// FanOut runs every task concurrently with at most limit in flight and
// returns the results in task order. Tasks receive the group context and are
// expected to absorb their own failures into the result value.
func FanOut[T any](ctx context.Context, limit int, tasks []func(context.Context) T) []T {
	if limit <= 0 {
		limit = 1
	}
	results := make([]T, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, task := range tasks {
		g.Go(func() error {
			results[i] = task(gctx)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
