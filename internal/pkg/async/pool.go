// Package async provides a small bounded worker pool for fan-out work.
package async

import (
	"context"
	"sync"
)

// Task is one unit of work identified by name.
type Task[T any] struct {
	Name    string
	Execute func() (T, error)
}

// Result carries a task's output keyed by its name.
type Result[T any] struct {
	Name string
	Data T
	Err  error
}

// Pool runs same-typed tasks with a fixed number of workers.
type Pool[T any] struct {
	workerCount int
}

// NewPool creates a pool with the given worker count.
func NewPool[T any](workerCount int) *Pool[T] {
	return &Pool[T]{workerCount: workerCount}
}

// Execute runs all tasks and returns their results keyed by task name.
// Returns early with partial results if the context is cancelled.
func (p *Pool[T]) Execute(ctx context.Context, tasks []Task[T]) map[string]Result[T] {
	pending := make(chan Task[T])
	results := make(chan Result[T])

	var wg sync.WaitGroup
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case task, ok := <-pending:
					if !ok {
						return
					}
					data, err := task.Execute()
					select {
					case results <- Result[T]{Name: task.Name, Data: data, Err: err}:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(pending)
		for _, task := range tasks {
			select {
			case pending <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	collected := make(map[string]Result[T], len(tasks))
	for range tasks {
		select {
		case result := <-results:
			collected[result.Name] = result
		case <-ctx.Done():
			return collected
		}
	}

	wg.Wait()
	return collected
}
