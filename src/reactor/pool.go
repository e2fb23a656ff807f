package reactor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// Pool runs offloaded work on at most a fixed number of goroutines. A task
// that panics is logged and does not take the worker down.
type Pool struct {
	sem    *semaphore.Weighted
	logger *logrus.Entry

	wg        sync.WaitGroup
	closed    chan struct{}
	closeOnce sync.Once
}

// NewPool returns a Pool with workers slots.
func NewPool(workers int, logger *logrus.Entry) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		sem:    semaphore.NewWeighted(int64(workers)),
		logger: logger,
		closed: make(chan struct{}),
	}
}

// Submit waits for a free slot and runs task on it.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	select {
	case <-p.closed:
		return ErrPoolClosed
	default:
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire worker: %w", err)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				p.logger.WithField("panic", r).Error("Offloaded task panicked")
			}
		}()
		task()
	}()

	return nil
}

// Close rejects new tasks and waits for the running ones.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)
	})
	p.wg.Wait()
}
