package util

import (
	"context"
	"errors"
	"sync"
)

// Parallel runs fn for every input on at most workerLimit goroutines and waits
// for all of them. A failing item does not stop its siblings; every error is
// joined into the result. Feeding stops early only when ctx is canceled.
func Parallel[T any](ctx context.Context, inputs []T, workerLimit int, fn func(ctx context.Context, idx int, item T) error) error {
	if len(inputs) == 0 {
		return nil
	}

	if workerLimit <= 0 {
		workerLimit = 1
	}
	if workerLimit > len(inputs) {
		workerLimit = len(inputs)
	}

	type job struct {
		idx  int
		item T
	}
	tasks := make(chan job)

	var (
		mu   sync.Mutex
		errs []error
	)

	// workers
	wg := sync.WaitGroup{}
	for i := 0; i < workerLimit; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range tasks {
				if err := fn(ctx, j.idx, j.item); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}
		}()
	}

	// feed tasks
	go func() {
		defer close(tasks)
		for i, item := range inputs {
			select {
			case <-ctx.Done():
				return
			case tasks <- job{idx: i, item: item}:
			}
		}
	}()

	wg.Wait()

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
