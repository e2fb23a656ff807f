package reactor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/reactor/src/clock"
	"github.com/mosaicnetworks/reactor/src/effect"
	"github.com/mosaicnetworks/reactor/src/rng"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Reactor owns a set of components, the routing table between them, the
// event queue and the effect executor, and drives the dispatch loop.
type Reactor struct {
	state

	conf   *Config
	logger *logrus.Entry

	rng      rng.Rng
	routes   *routingTable
	queue    *eventQueue
	pool     *Pool
	clock    clock.Clock
	tracer   trace.Tracer
	recorder *Recorder

	// dispatchLock serializes HandleEvent calls between Run and the harness.
	dispatchLock sync.Mutex

	execCtx    context.Context
	execCancel context.CancelFunc

	running  int32
	stopOnce sync.Once

	errLock sync.Mutex
	err     error
}

// New builds a reactor over the event space kinds. Every kind must be routed
// by exactly one of routes, and every component named by an announcement
// must be registered.
func New(conf *Config, r rng.Rng, kinds []effect.Kind, routes ...Route) (*Reactor, error) {
	rt, err := newRoutingTable(kinds, routes)
	if err != nil {
		return nil, err
	}

	if conf.Clock == nil {
		conf.Clock = clock.Real()
	}
	if conf.Logger == nil {
		conf.Logger = logrus.New()
	}
	if conf.Tracer == nil {
		conf.Tracer = otel.Tracer(tracerName)
	}

	logger := conf.Logger.WithField("prefix", "reactor")

	execCtx, execCancel := context.WithCancel(context.Background())

	reactor := &Reactor{
		conf:       conf,
		logger:     logger,
		rng:        r,
		routes:     rt,
		queue:      newEventQueue(),
		pool:       NewPool(conf.Workers, logger.WithField("prefix", "pool")),
		clock:      conf.Clock,
		tracer:     conf.Tracer,
		recorder:   conf.Recorder,
		execCtx:    execCtx,
		execCancel: execCancel,
	}
	reactor.onDone = reactor.queue.wake

	logger.WithFields(logrus.Fields{
		"components": len(rt.components),
		"kinds":      len(kinds),
	}).Debug("Reactor built")

	return reactor, nil
}

// State returns the current lifecycle state.
func (r *Reactor) State() State {
	return r.getState()
}

// Err returns the reason the reactor started draining, or nil after a plain
// shutdown.
func (r *Reactor) Err() error {
	r.errLock.Lock()
	defer r.errLock.Unlock()
	return r.err
}

// ShutdownHandle returns a handle that stops the reactor.
func (r *Reactor) ShutdownHandle() ShutdownHandle {
	return ShutdownHandle{r: r}
}

// Submit queues an externally sourced event. Submissions are refused once
// the reactor is draining.
func (r *Reactor) Submit(ev effect.Event) error {
	if r.getState() != Running {
		return ErrStopped
	}
	if !r.queue.push(envelope{ev: ev, target: noTarget, external: true}) {
		return ErrStopped
	}
	return nil
}

// Run drives the dispatch loop until the reactor has drained and stopped.
// It returns nil after a Shutdown, an error wrapping ErrFatal or a
// *ContractError when a component stopped the reactor, and ctx.Err() if ctx
// was cancelled first. Cancelling ctx cancels every in-flight effect.
func (r *Reactor) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&r.running, 0, 1) {
		return errors.New("reactor already running")
	}
	if r.getState() == Stopped {
		return ErrStopped
	}
	defer r.Close()

	r.logger.Debug("Run loop")

	var drainTimeout <-chan time.Time

	for {
		if err := ctx.Err(); err != nil {
			r.logger.WithError(err).Debug("Run cancelled")
			return err
		}

		if r.getState() == Draining {
			// effects queue their events before leaving flight
			if r.pending() == 0 && r.queue.len() == 0 {
				r.logger.Debug("Drained")
				return r.Err()
			}
			if drainTimeout == nil && r.conf.DrainTimeout > 0 {
				timer := r.clock.NewTimer(r.conf.DrainTimeout)
				defer timer.Stop()
				drainTimeout = timer.C()
			}
		}

		if env, ok := r.queue.tryPop(); ok {
			r.dispatch(ctx, env)
			continue
		}

		select {
		case <-ctx.Done():
		case <-r.queue.wait():
		case <-drainTimeout:
			r.logger.WithField("in_flight", r.pending()).Warn("Drain timeout, cancelling effects")
			return r.Err()
		}
	}
}

// Close stops the reactor: further events are refused, in-flight effects are
// cancelled and the worker pool is shut down. Run calls it on return; tests
// driving the reactor through the harness call it themselves.
func (r *Reactor) Close() {
	r.stopOnce.Do(func() {
		r.setState(Stopped)
		r.queue.close()
		r.execCancel()
		r.waitRoutines()
		r.pool.Close()
		r.logger.Debug("Stopped")
	})
}

func (r *Reactor) dispatch(ctx context.Context, env envelope) {
	r.dispatchLock.Lock()
	defer r.dispatchLock.Unlock()

	ev := env.ev
	kind := ev.Kind()

	if env.target == noTarget && isControl(kind) {
		r.control(ev)
		return
	}

	var targets []target
	if env.target != noTarget {
		targets = []target{{index: env.target}}
	} else {
		var ok bool
		targets, ok = r.routes.lookup(kind)
		if !ok {
			r.violation(&ContractError{
				Code:    ViolationUnroutable,
				Kind:    kind,
				Message: fmt.Sprintf("no route for %T", ev),
			})
			return
		}
	}

	for _, t := range targets {
		delivered := ev
		if t.convert != nil {
			delivered = t.convert(ev)
		}
		if err := r.deliver(ctx, r.routes.components[t.index], delivered, env.external); err != nil {
			r.violation(err)
			return
		}
	}
}

// deliver makes one HandleEvent call and schedules its effects.
func (r *Reactor) deliver(ctx context.Context, h handler, ev effect.Event, external bool) error {
	_, span := r.tracer.Start(ctx, "reactor.dispatch", trace.WithAttributes(
		attribute.String("component", h.name()),
		attribute.String("kind", string(ev.Kind())),
	))
	defer span.End()

	eb := effect.NewBuilder(h.name(), scheduler{r}, r.clock, r.pool)

	begin := time.Now()
	effs, err := r.invoke(h, eb, ev)
	elapsed := time.Since(begin)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(attribute.Int("effects", len(effs)))

	if r.recorder != nil {
		state, _ := h.snapshot()
		r.recorder.record(h.name(), ev, external, state)
	}

	r.schedule(h.name(), effs)

	if r.conf.HandlerBudget > 0 && elapsed > r.conf.HandlerBudget {
		r.logger.WithFields(logrus.Fields{
			"component": h.name(),
			"kind":      ev.Kind(),
			"elapsed":   elapsed,
		}).Warn("Handler overran its budget")

		if r.conf.HaltOnOverrun {
			return &ContractError{
				Code:      ViolationOverrun,
				Component: h.name(),
				Kind:      ev.Kind(),
				Message:   fmt.Sprintf("handler took %s", elapsed),
			}
		}
	}

	return nil
}

// invoke calls the handler, turning a panic or a mistyped event into a
// ContractError.
func (r *Reactor) invoke(h handler, eb effect.Builder, ev effect.Event) (effs effect.Effects[effect.Event], err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &ContractError{
				Code:      ViolationPanic,
				Component: h.name(),
				Kind:      ev.Kind(),
				Message:   fmt.Sprint(p),
			}
		}
	}()

	effs, ok := h.handle(eb, r.rng, ev)
	if !ok {
		return nil, &ContractError{
			Code:      ViolationEventType,
			Component: h.name(),
			Kind:      ev.Kind(),
			Message:   fmt.Sprintf("cannot handle %T", ev),
		}
	}

	return effs, nil
}

func (r *Reactor) control(ev effect.Event) {
	switch e := ev.(type) {
	case Shutdown:
		r.logger.WithField("reason", e.Reason).Info("Shutdown requested")
		r.drain(nil)
	case Fatal:
		cause := e.err
		if cause == nil {
			cause = errors.New(e.Reason)
		}
		r.logger.WithFields(logrus.Fields{
			"component": e.Component,
			"reason":    e.Reason,
		}).Error("Fatal error")
		r.drain(fmt.Errorf("%w: %s: %w", ErrFatal, e.Component, cause))
	}
}

func (r *Reactor) violation(err error) {
	r.logger.WithError(err).Error("Contract violation")
	r.drain(err)
}

// drain moves to Draining and records the first error that caused it.
func (r *Reactor) drain(err error) {
	r.errLock.Lock()
	if r.err == nil && err != nil {
		r.err = err
	}
	r.errLock.Unlock()

	if r.moveState(Running, Draining) {
		r.logger.Debug("Draining")
	}
}
