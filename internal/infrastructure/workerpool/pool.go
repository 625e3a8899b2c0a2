// Package workerpool runs bounded fan-out work on an ants pool.
package workerpool

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// DefaultSize is used when a caller passes a non-positive size
const DefaultSize = 4

// Result holds the outcome of one task, at the same index as its input.
type Result[R any] struct {
	Value R
	Err   error
}

// Map runs fn over inputs with at most size concurrent workers.
// Results are returned in input order. Tasks not yet started when ctx is
// cancelled report ctx.Err().
func Map[T, R any](ctx context.Context, size int, inputs []T, fn func(context.Context, T) (R, error)) ([]Result[R], error) {
	if size <= 0 {
		size = DefaultSize
	}
	results := make([]Result[R], len(inputs))
	if len(inputs) == 0 {
		return results, nil
	}

	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return
			}
			results[i].Value, results[i].Err = fn(ctx, in)
		})
		if err != nil {
			wg.Done()
			results[i].Err = fmt.Errorf("failed to submit task: %w", err)
		}
	}
	wg.Wait()

	return results, nil
}
