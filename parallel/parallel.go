// Package parallel provides bounded fan-out helpers shared by the source
// reader and the locale writer.
package parallel

import (
	"context"
	"sync"
)

// Outcome is the settled result of one task.
type Outcome[T, R any] struct {
	Input T
	Value R
	Err   error
}

// Settle runs fn for every task with at most limit running at once and
// waits for all of them. A failing task never stops the others; the
// returned outcomes are in task order.
//
// Tasks not yet started when ctx is cancelled are settled with ctx.Err().
func Settle[T, R any](ctx context.Context, tasks []T, limit int, fn func(context.Context, T) (R, error)) []Outcome[T, R] {
	if limit <= 0 {
		limit = len(tasks)
	}
	if limit == 0 {
		return nil
	}

	out := make([]Outcome[T, R], len(tasks))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, task := range tasks {
		out[i].Input = task
		if err := ctx.Err(); err != nil {
			out[i].Err = err
			continue
		}

		sem <- struct{}{}
		wg.Add(1)

		go func(i int, t T) {
			defer func() {
				<-sem
				wg.Done()
			}()
			out[i].Value, out[i].Err = fn(ctx, t)
		}(i, task)
	}

	wg.Wait()
	return out
}

// Failed returns the outcomes that carry an error.
func Failed[T, R any](outcomes []Outcome[T, R]) []Outcome[T, R] {
	var failed []Outcome[T, R]
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}
