// Package async provides utilities for bounded parallel task execution.
//
// It is used for the provisioning phases where independent units (networks,
// nodes) run concurrently but the underlying container runtime must not be
// overwhelmed by unbounded parallelism.
package async

import (
	"context"
	"fmt"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// TaskError pairs a failed task's name with its error.
type TaskError struct {
	Name string
	Err  error
}

func (e TaskError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e TaskError) Unwrap() error {
	return e.Err
}

// RunBounded executes the tasks concurrently, at most limit at a time
// (limit <= 0 means no bound). It waits for all tasks to finish and returns
// one TaskError per failed task. Results are collected on a single channel
// consumed by the calling goroutine, so no additional locking is needed.
//
// A cancelled context stops unstarted tasks; tasks already running are
// expected to observe ctx themselves.
func RunBounded(ctx context.Context, limit int, tasks []Task) []TaskError {
	if len(tasks) == 0 {
		return nil
	}
	if limit <= 0 || limit > len(tasks) {
		limit = len(tasks)
	}

	type result struct {
		name string
		err  error
	}

	sem := make(chan struct{}, limit)
	resultChan := make(chan result, len(tasks))

	for _, task := range tasks {
		task := task
		go func() {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				resultChan <- result{name: task.Name, err: ctx.Err()}
				return
			}
			defer func() { <-sem }()
			resultChan <- result{name: task.Name, err: task.Func(ctx)}
		}()
	}

	var failures []TaskError
	for i := 0; i < len(tasks); i++ {
		res := <-resultChan
		if res.err != nil {
			failures = append(failures, TaskError{Name: res.name, Err: res.err})
		}
	}
	return failures
}
