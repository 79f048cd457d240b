// Package worker
package worker

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Ordered runs do for every index in [0, n) with at most limit calls in
// flight, and passes each result to apply in index order on the calling
// goroutine. apply is never called concurrently, so it can own a store.
//
// A limit of 1 processes items strictly one after another.
func Ordered[T any](ctx context.Context, limit, n int, do func(ctx context.Context, i int) T, apply func(i int, result T)) error {
	if limit < 1 {
		limit = 1
	}
	slots := make([]chan T, n)
	for i := range slots {
		slots[i] = make(chan T, 1)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	launched := make(chan struct{})
	go func() {
		defer close(launched)
		for i := 0; i < n; i++ {
			i := i
			g.Go(func() error {
				slots[i] <- do(gCtx, i)
				return nil
			})
		}
	}()

	for i := 0; i < n; i++ {
		apply(i, <-slots[i])
	}
	<-launched
	_ = g.Wait()
	return ctx.Err()
}
