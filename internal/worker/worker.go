// Package worker runs fire-and-forget background jobs, such as attachment
// cleanup, and drains them on shutdown.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Task is a unit of background work. It must return once ctx is done.
type Task func(ctx context.Context) error

// Pool tracks background goroutines so shutdown can wait for them
type Pool struct {
	mu      sync.RWMutex
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger
	running atomic.Int64
	failed  atomic.Int64
	closed  bool
}

// NewPool creates a new worker pool
func NewPool(logger *slog.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Submit runs task in the background. Tasks submitted after Shutdown are dropped.
func (p *Pool) Submit(name string, task Task) bool {
	return p.start(name, 0, task)
}

// SubmitWithTimeout runs task with a deadline derived from the pool's context
func (p *Pool) SubmitWithTimeout(name string, timeout time.Duration, task Task) bool {
	return p.start(name, timeout, task)
}

func (p *Pool) start(name string, timeout time.Duration, task Task) bool {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		p.logger.Warn("⚠️ [Worker] Pool is shut down, dropping task", "task", name)
		return false
	}
	p.wg.Add(1)
	p.running.Add(1)
	p.mu.RUnlock()

	go func() {
		defer p.wg.Done()
		defer p.running.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				p.failed.Add(1)
				p.logger.Error("❌ [Worker] Task panicked", "task", name, "panic", r)
			}
		}()

		ctx := p.ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(p.ctx, timeout)
			defer cancel()
		}

		if err := task(ctx); err != nil {
			p.failed.Add(1)
			p.logger.Error("❌ [Worker] Task failed", "task", name, "error", err)
			return
		}
		p.logger.Debug("✅ [Worker] Task completed", "task", name)
	}()
	return true
}

// Running returns the number of tasks still in flight
func (p *Pool) Running() int64 {
	return p.running.Load()
}

// Failed returns how many tasks returned an error or panicked
func (p *Pool) Failed() int64 {
	return p.failed.Load()
}

// Context returns the pool's context
func (p *Pool) Context() context.Context {
	return p.ctx
}

// Shutdown signals all workers to stop and waits up to timeout for them.
// It reports whether every task finished in time.
func (p *Pool) Shutdown(timeout time.Duration) bool {
	p.logger.Info("🛑 [Worker] Initiating graceful shutdown...", "running", p.Running())

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("✅ [Worker] All background tasks completed")
		return true
	case <-time.After(timeout):
		p.logger.Warn("⚠️ [Worker] Shutdown timeout exceeded, some tasks may not have completed",
			"timeout", timeout,
			"running", p.Running(),
		)
		return false
	}
}
