package service

import (
	"context"
	"fmt"
	"sync"

	"plant-care/internal/logger"
)

// Job is a unit of work run on the queue's worker.
type Job func(ctx context.Context) error

type queued struct {
	name string
	ctx  context.Context
	job  Job
	done chan error
}

// Queue runs every store mutation and the daily trigger one at a time on a
// single worker. Jobs already taken off the queue run to completion even when
// the submitter gives up waiting.
type Queue struct {
	jobs     chan queued
	quit     chan struct{}
	stopOnce sync.Once
}

func NewQueue(buffer int) *Queue {
	if buffer < 0 {
		buffer = 0
	}
	return &Queue{
		jobs: make(chan queued, buffer),
		quit: make(chan struct{}),
	}
}

// Run drains the queue until ctx is done. Jobs still waiting fail with ErrQueueStopped.
func (q *Queue) Run(ctx context.Context) error {
	defer q.stopOnce.Do(func() { close(q.quit) })
	for {
		select {
		case <-ctx.Done():
			return nil
		case item := <-q.jobs:
			item.done <- q.execute(item)
		}
	}
}

func (q *Queue) execute(item queued) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked", "job", item.name, "panic", r)
			err = fmt.Errorf("job %s panicked: %v", item.name, r)
		}
	}()
	return item.job(context.WithoutCancel(item.ctx))
}

// Do submits job and waits for its result.
func (q *Queue) Do(ctx context.Context, name string, job Job) error {
	done, err := q.Submit(ctx, name, job)
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-q.quit:
		select {
		case err := <-done:
			return err
		default:
			return ErrQueueStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit enqueues job and returns a channel that receives its result once.
func (q *Queue) Submit(ctx context.Context, name string, job Job) (<-chan error, error) {
	select {
	case <-q.quit:
		return nil, ErrQueueStopped
	default:
	}

	item := queued{name: name, ctx: ctx, job: job, done: make(chan error, 1)}
	select {
	case q.jobs <- item:
		return item.done, nil
	case <-q.quit:
		return nil, ErrQueueStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
