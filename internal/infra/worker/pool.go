// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

type Task func(ctx context.Context) error

var ErrPoolStopped = errors.New("worker pool stopped")

// Pool runs submitted tasks in their own goroutines. With a positive limit at
// most limit tasks run at once and the rest wait their turn; Submit never
// rejects work for being busy. A limit of 0 means unbounded.
type Pool struct {
	mu      sync.Mutex
	wg      sync.WaitGroup
	sem     chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
	log     *zerolog.Logger
}

func NewPool(limit int, log *zerolog.Logger) *Pool {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	p := &Pool{log: log}
	if limit > 0 {
		p.sem = make(chan struct{}, limit)
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	return p
}

// Start binds the pool to ctx: cancelling it cancels every task.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancel()
	p.ctx, p.cancel = context.WithCancel(ctx)
}

// Stop cancels running tasks and waits for them to return.
func (p *Pool) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.cancel()
	p.mu.Unlock()
	p.wg.Wait()
}

// Wait blocks until every submitted task has returned.
func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrPoolStopped
	}
	ctx := p.ctx
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		if p.sem != nil {
			select {
			case p.sem <- struct{}{}:
				defer func() { <-p.sem }()
			case <-ctx.Done():
				// still run so the task can record the cancellation
			}
		}
		defer func() {
			if r := recover(); r != nil {
				p.log.Error().Interface("panic", r).Msg("worker task panicked")
			}
		}()
		if err := task(ctx); err != nil {
			p.log.Warn().Err(err).Msg("worker task error")
		}
	}()
	return nil
}
