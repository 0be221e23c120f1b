package syncer

import (
	"context"
	"sync"
)

type persistTask func(ctx context.Context) (created bool, err error)

type persistResult struct {
	created bool
	err     error
}

// workerPool runs persistence tasks on a fixed number of goroutines. Tasks are
// submitted after run has been called; close signals that no more will come.
type workerPool struct {
	workers int
	tasks   chan persistTask
	wg      sync.WaitGroup
}

func newWorkerPool(workers, buffer int) *workerPool {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	return &workerPool{
		workers: workers,
		tasks:   make(chan persistTask, buffer),
	}
}

func (p *workerPool) submit(ctx context.Context, t persistTask) bool {
	if t == nil {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case p.tasks <- t:
		return true
	}
}

func (p *workerPool) close() {
	close(p.tasks)
}

func (p *workerPool) run(ctx context.Context) <-chan persistResult {
	out := make(chan persistResult, p.workers)

	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func() {
			defer p.wg.Done()
			for t := range p.tasks {
				if ctx.Err() != nil {
					out <- persistResult{err: ctx.Err()}
					continue
				}
				created, err := t(ctx)
				out <- persistResult{created: created, err: err}
			}
		}()
	}

	go func() {
		p.wg.Wait()
		close(out)
	}()

	return out
}
