package host

import (
	"context"
	"sync"
)

// Loop is a Scheduler whose main lane is a single goroutine draining a task
// channel, matching the host's cooperative model: tasks run in submission
// order and never concurrently with each other. The async lane spawns plain
// goroutines.
//
// The daemon and tests run against Loop; inside a real host the platform's
// own scheduler satisfies the Scheduler interface instead.
type Loop struct {
	tasks chan func()
	done  chan struct{}
	once  sync.Once
}

// NewLoop returns a Loop with a buffered main-lane queue.
func NewLoop() *Loop {
	return &Loop{
		tasks: make(chan func(), 256),
		done:  make(chan struct{}),
	}
}

// Run drains main-lane tasks until ctx is cancelled. Call it from exactly
// one goroutine; that goroutine becomes the main thread.
func (l *Loop) Run(ctx context.Context) {
	defer l.once.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// RunMain schedules fn onto the main lane. After shutdown the task is
// silently dropped: results arriving for a stopped world are a no-op, not
// an error.
func (l *Loop) RunMain(fn func()) {
	select {
	case l.tasks <- fn:
	case <-l.done:
	}
}

// RunAsync schedules fn onto the worker pool.
func (l *Loop) RunAsync(fn func()) {
	go fn()
}
