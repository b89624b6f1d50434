package utils

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEach runs fn over items with at most limit calls in flight and returns
// the results and errors in input order. A failing item does not cancel the
// others; only ctx does.
func ForEach[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) (R, error)) ([]R, []error) {
	results := make([]R, len(items))
	errs := make([]error, len(items))
	if len(items) == 0 {
		return results, errs
	}
	if limit <= 0 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			results[i], errs[i] = fn(ctx, item)
			return nil
		})
	}

	_ = g.Wait()
	return results, errs
}
