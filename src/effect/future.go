package effect

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

var errCancelled = errors.New("future cancelled")

var cancelledCtx = func() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}()

// release lets a started future that will never be awaited give back what
// its start phase took, such as an armed timer.
func release[T any](f Future[T]) {
	f.Await(cancelledCtx)
}

// Future is a deferred value of type T.
//
// A Future has two phases. Start runs once, synchronously, when the executor
// accepts the effect built from it; it may queue events or arm timers but
// never blocks. Await then runs on an executor goroutine and returns false if
// the future was cancelled before producing a value. Immediate futures
// resolve inside Await without blocking, so the executor resolves them in
// place.
//
// A Future is consumed by the effect it ends up in and must not be reused.
type Future[T any] struct {
	start     func()
	immediate bool
	wait      func(ctx context.Context) (T, bool)
}

// Start runs the synchronous phase of the future.
func (f Future[T]) Start() {
	if f.start != nil {
		f.start()
	}
}

// Immediate reports whether Await is guaranteed not to block.
func (f Future[T]) Immediate() bool {
	return f.immediate
}

// Await blocks until the future resolves or ctx is done.
func (f Future[T]) Await(ctx context.Context) (T, bool) {
	if f.wait == nil {
		var zero T
		return zero, false
	}
	return f.wait(ctx)
}

// Run starts f and waits for its value.
func Run[T any](ctx context.Context, f Future[T]) (T, bool) {
	f.Start()
	return f.Await(ctx)
}

// Ready returns an already resolved future.
func Ready[T any](v T) Future[T] {
	return Future[T]{
		immediate: true,
		wait: func(context.Context) (T, bool) {
			return v, true
		},
	}
}

// Then maps the value of f through fn. fn must be cheap: for immediate
// futures it runs on the dispatch goroutine.
func Then[T, U any](f Future[T], fn func(T) U) Future[U] {
	return Future[U]{
		start:     f.start,
		immediate: f.immediate,
		wait: func(ctx context.Context) (U, bool) {
			v, ok := f.Await(ctx)
			if !ok {
				var zero U
				return zero, false
			}
			return fn(v), true
		},
	}
}

// Chain waits for f and then for the future fn builds from its value.
func Chain[T, U any](f Future[T], fn func(T) Future[U]) Future[U] {
	return Future[U]{
		start: f.start,
		wait: func(ctx context.Context) (U, bool) {
			v, ok := f.Await(ctx)
			if !ok {
				var zero U
				return zero, false
			}
			return Run(ctx, fn(v))
		},
	}
}

// Join resolves with the values of all fs, in argument order, once every one
// of them has resolved. If any of them is cancelled the join is cancelled and
// yields nothing.
func Join[T any](fs ...Future[T]) Future[[]T] {
	immediate := true
	for _, f := range fs {
		immediate = immediate && f.immediate
	}

	return Future[[]T]{
		start: func() {
			for _, f := range fs {
				f.Start()
			}
		},
		immediate: immediate,
		wait: func(ctx context.Context) ([]T, bool) {
			out := make([]T, len(fs))

			if immediate {
				for i, f := range fs {
					v, ok := f.Await(ctx)
					if !ok {
						return nil, false
					}
					out[i] = v
				}
				return out, true
			}

			g, gctx := errgroup.WithContext(ctx)
			for i, f := range fs {
				i, f := i, f
				g.Go(func() error {
					v, ok := f.Await(gctx)
					if !ok {
						return errCancelled
					}
					out[i] = v
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return nil, false
			}
			return out, true
		},
	}
}

// Race resolves with the first of fs to produce a value and cancels the
// rest. An immediate future always wins over pending ones; between pending
// futures that resolve at the same instant the winner is unspecified.
func Race[T any](fs ...Future[T]) Future[T] {
	first := -1
	for i, f := range fs {
		if f.immediate {
			first = i
			break
		}
	}

	return Future[T]{
		start: func() {
			for _, f := range fs {
				f.Start()
			}
		},
		immediate: first >= 0,
		wait: func(ctx context.Context) (T, bool) {
			if first >= 0 {
				for i, f := range fs {
					if i != first {
						release(f)
					}
				}
				return fs[first].Await(ctx)
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			type result struct {
				v  T
				ok bool
			}
			results := make(chan result, len(fs))
			for _, f := range fs {
				f := f
				go func() {
					v, ok := f.Await(ctx)
					results <- result{v, ok}
				}()
			}

			for range fs {
				if r := <-results; r.ok {
					return r.v, true
				}
			}
			var zero T
			return zero, false
		},
	}
}

// CancelFunc cancels a future obtained from WithCancel. It is safe to call
// more than once.
type CancelFunc func()

// WithCancel returns a copy of f that yields nothing once cancel has been
// called. Components keep the CancelFunc in their state to abandon a timer or
// request they no longer care about.
func WithCancel[T any](f Future[T]) (Future[T], CancelFunc) {
	stop := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() { close(stop) })
	}

	stopped := func() bool {
		select {
		case <-stop:
			return true
		default:
			return false
		}
	}

	wrapped := Future[T]{
		start:     f.start,
		immediate: f.immediate,
		wait: func(ctx context.Context) (T, bool) {
			var zero T
			if stopped() {
				release(f)
				return zero, false
			}

			ctx, done := context.WithCancel(ctx)
			defer done()
			go func() {
				select {
				case <-stop:
					done()
				case <-ctx.Done():
				}
			}()

			v, ok := f.Await(ctx)
			if !ok || stopped() {
				return zero, false
			}
			return v, true
		},
	}

	return wrapped, CancelFunc(cancel)
}
