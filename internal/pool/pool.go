// Package pool runs blocking work on a fixed set of goroutines so the
// caller's loop only ever waits at explicit dispatch points.
package pool

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("pool closed")

type Pool struct {
	jobs    chan func()
	quit    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	workers int
}

// New starts a pool of n workers. n < 1 is treated as 1.
func New(n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{jobs: make(chan func()), quit: make(chan struct{}), workers: n}
	for range n {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case fn := <-p.jobs:
					fn()
				case <-p.quit:
					return
				}
			}
		}()
	}
	return p
}

func (p *Pool) Workers() int {
	return p.workers
}

// Close stops accepting work and waits for running jobs to finish.
func (p *Pool) Close() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}

// Go hands fn to a free worker, blocking until one is available or ctx
// is done. fn is not run when an error is returned.
func (p *Pool) Go(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.jobs <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.quit:
		return ErrClosed
	}
}

// Batch runs fn(0..n-1) on the pool and waits for all of them. If ctx
// ends first Batch returns ctx.Err() immediately; jobs already handed
// out keep running but their effects must not be read by the caller.
func (p *Pool) Batch(ctx context.Context, n int, fn func(i int)) error {
	if n == 0 {
		return ctx.Err()
	}
	var wg sync.WaitGroup
	done := make(chan struct{})
	var dispatchErr error

	go func() {
		defer close(done)
		for i := range n {
			wg.Add(1)
			if err := p.Go(ctx, func() {
				defer wg.Done()
				fn(i)
			}); err != nil {
				wg.Done()
				dispatchErr = err
				break
			}
		}
		wg.Wait()
	}()

	select {
	case <-done:
		return dispatchErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Map applies fn to every element of in on the pool. The output keeps
// the input order regardless of completion order.
func Map[T, R any](ctx context.Context, p *Pool, in []T, fn func(T) R) ([]R, error) {
	out := make([]R, len(in))
	err := p.Batch(ctx, len(in), func(i int) {
		out[i] = fn(in[i])
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
