package reactor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mosaicnetworks/reactor/src/clock"
	"github.com/mosaicnetworks/reactor/src/effect"
	"github.com/mosaicnetworks/reactor/src/rng"
)

const (
	kindStart  effect.Kind = "watch.start"
	kindTick   effect.Kind = "watch.tick"
	kindWinner effect.Kind = "watch.winner"
	kindJoined effect.Kind = "watch.joined"
	kindNews   effect.Kind = "watch.news"
	kindAnswer effect.Kind = "watch.answer"
	kindAsk    effect.Kind = "echo.ask"
	kindDone   effect.Kind = "watch.done"
)

type watchEvent struct {
	K   effect.Kind
	Val string
}

func (e watchEvent) Kind() effect.Kind { return e.K }

type handlerFunc func(eb effect.Builder, r rng.Rng, ev watchEvent) effect.Effects[watchEvent]

// watch records every event it handles and reacts through on.
type watch struct {
	seen []string
	on   map[effect.Kind]handlerFunc
}

func (p *watch) HandleEvent(eb effect.Builder, r rng.Rng, ev watchEvent) effect.Effects[watchEvent] {
	p.seen = append(p.seen, fmt.Sprintf("%s:%s", ev.K, ev.Val))
	if fn, ok := p.on[ev.K]; ok {
		return fn(eb, r, ev)
	}
	return nil
}

func (p *watch) Snapshot() interface{} {
	return append([]string(nil), p.seen...)
}

func (p *watch) count(k effect.Kind) int {
	n := 0
	for _, s := range p.seen {
		if strings.HasPrefix(s, string(k)+":") {
			n++
		}
	}
	return n
}

type askEvent struct {
	Q     string
	Reply effect.Responder[string]
}

func (askEvent) Kind() effect.Kind { return kindAsk }

type echo struct{}

func (echo) HandleEvent(eb effect.Builder, _ rng.Rng, ev askEvent) effect.Effects[askEvent] {
	return effect.Ignore[askEvent](ev.Reply.Respond("re:" + ev.Q))
}

func newTestReactor(t *testing.T, kinds []effect.Kind, routes ...Route) (*Reactor, *clock.Manual) {
	conf := TestConfig(t)
	r, err := New(conf, rng.NewSeeded(1), kinds, routes...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(r.Close)
	return r, conf.Clock.(*clock.Manual)
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func waitFor(ctx context.Context, cond func() bool) error {
	for !cond() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
	return nil
}

func TestNewRoutingErrors(t *testing.T) {
	p := &watch{}

	cases := []struct {
		name   string
		kinds  []effect.Kind
		routes []Route
		err    error
	}{
		{
			name:   "declared kind without route",
			kinds:  []effect.Kind{kindStart, kindTick},
			routes: []Route{Register[watchEvent]("watch", p, kindStart)},
			err:    ErrUnroutable,
		},
		{
			name:   "route for undeclared kind",
			kinds:  []effect.Kind{kindStart},
			routes: []Route{Register[watchEvent]("watch", p, kindStart, kindTick)},
			err:    ErrUnroutable,
		},
		{
			name:  "kind claimed twice",
			kinds: []effect.Kind{kindStart},
			routes: []Route{
				Register[watchEvent]("a", p, kindStart),
				Register[watchEvent]("b", p, kindStart),
			},
			err: ErrDuplicateRoute,
		},
		{
			name:  "component registered twice",
			kinds: []effect.Kind{kindStart, kindTick},
			routes: []Route{
				Register[watchEvent]("a", p, kindStart),
				Register[watchEvent]("a", p, kindTick),
			},
			err: ErrDuplicateRoute,
		},
		{
			name:  "unknown subscriber",
			kinds: []effect.Kind{kindStart, kindNews},
			routes: []Route{
				Register[watchEvent]("a", p, kindStart),
				Announce(kindNews, Deliver("nobody", nil)),
			},
			err: ErrUnknownComponent,
		},
		{
			name:   "reserved kind",
			kinds:  []effect.Kind{KindShutdown},
			routes: []Route{Register[watchEvent]("a", p, KindShutdown)},
			err:    ErrDuplicateRoute,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := New(TestConfig(t), rng.NewSeeded(1), c.kinds, c.routes...)
			if !errors.Is(err, c.err) {
				t.Fatalf("expected %v, got %v", c.err, err)
			}
		})
	}
}

func TestAnnouncementWithoutSubscribers(t *testing.T) {
	_, err := New(TestConfig(t), rng.NewSeeded(1),
		[]effect.Kind{kindStart, kindNews},
		Register[watchEvent]("a", &watch{}, kindStart),
		Announce(kindNews),
	)
	if err != nil {
		t.Fatalf("announcement without subscribers should be routable: %v", err)
	}
}

func TestTimerDeliversExactlyOneTick(t *testing.T) {
	p := &watch{on: map[effect.Kind]handlerFunc{
		kindStart: func(eb effect.Builder, _ rng.Rng, _ watchEvent) effect.Effects[watchEvent] {
			return effect.Emit(eb.SetTimeout(100*time.Millisecond), func(time.Duration) watchEvent {
				return watchEvent{K: kindTick}
			})
		},
	}}
	r, c := newTestReactor(t, []effect.Kind{kindStart, kindTick},
		Register[watchEvent]("watch", p, kindStart, kindTick))
	ctx := testContext(t)

	if err := r.Submit(watchEvent{K: kindStart}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	r.Settle()

	if c.Armed() != 1 {
		t.Fatalf("expected one armed timer, got %d", c.Armed())
	}

	c.Advance(99 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	if r.Pending() != 0 {
		t.Fatalf("tick delivered early")
	}

	c.Advance(time.Millisecond)
	if err := r.Step(ctx); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if err := r.Step(ctx); !errors.Is(err, ErrIdle) {
		t.Fatalf("expected idle reactor, got %v", err)
	}

	if n := p.count(kindTick); n != 1 {
		t.Fatalf("expected exactly one tick, got %d", n)
	}
}

func TestRaceLoserNeverEmits(t *testing.T) {
	p := &watch{on: map[effect.Kind]handlerFunc{
		kindStart: func(eb effect.Builder, _ rng.Rng, _ watchEvent) effect.Effects[watchEvent] {
			a := effect.Then(eb.SetTimeout(10*time.Millisecond), func(time.Duration) string { return "A" })
			b := effect.Then(eb.SetTimeout(50*time.Millisecond), func(time.Duration) string { return "B" })
			return effect.Emit(effect.Race(a, b), func(v string) watchEvent {
				return watchEvent{K: kindWinner, Val: v}
			})
		},
	}}
	r, c := newTestReactor(t, []effect.Kind{kindStart, kindWinner},
		Register[watchEvent]("watch", p, kindStart, kindWinner))
	ctx := testContext(t)

	r.Submit(watchEvent{K: kindStart})
	r.Settle()

	c.Advance(10 * time.Millisecond)
	if err := r.Step(ctx); err != nil {
		t.Fatalf("Step: %v", err)
	}

	c.Advance(40 * time.Millisecond)
	if err := r.Step(ctx); !errors.Is(err, ErrIdle) {
		t.Fatalf("expected idle reactor, got %v", err)
	}

	want := []string{"watch.start:", "watch.winner:A"}
	if !reflect.DeepEqual(p.seen, want) {
		t.Fatalf("expected trace %v, got %v", want, p.seen)
	}
}

func TestJoinEmitsOnlyWhenAllComplete(t *testing.T) {
	p := &watch{on: map[effect.Kind]handlerFunc{
		kindStart: func(eb effect.Builder, _ rng.Rng, _ watchEvent) effect.Effects[watchEvent] {
			all := effect.Join(
				eb.SetTimeout(10*time.Millisecond),
				eb.SetTimeout(20*time.Millisecond),
				eb.SetTimeout(30*time.Millisecond),
			)
			return effect.Emit(all, func(ds []time.Duration) watchEvent {
				return watchEvent{K: kindJoined, Val: fmt.Sprint(len(ds))}
			})
		},
	}}
	r, c := newTestReactor(t, []effect.Kind{kindStart, kindJoined},
		Register[watchEvent]("watch", p, kindStart, kindJoined))
	ctx := testContext(t)

	r.Submit(watchEvent{K: kindStart})
	r.Settle()

	c.Advance(20 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if r.Pending() != 0 || r.InFlight() != 1 {
		t.Fatalf("join emitted with 2 of 3 complete (pending=%d, in flight=%d)", r.Pending(), r.InFlight())
	}

	c.Advance(10 * time.Millisecond)
	if err := r.Step(ctx); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if p.count(kindJoined) != 1 || p.seen[1] != "watch.joined:3" {
		t.Fatalf("unexpected trace %v", p.seen)
	}
}

func TestAnnouncementFanOut(t *testing.T) {
	source := &watch{on: map[effect.Kind]handlerFunc{
		kindStart: func(eb effect.Builder, _ rng.Rng, ev watchEvent) effect.Effects[watchEvent] {
			return effect.Ignore[watchEvent](eb.Announce(watchEvent{K: kindNews, Val: ev.Val}))
		},
	}}
	left, right := &watch{}, &watch{}

	r, _ := newTestReactor(t, []effect.Kind{kindStart, kindNews},
		Register[watchEvent]("source", source, kindStart),
		Register[watchEvent]("left", left),
		Register[watchEvent]("right", right),
		Announce(kindNews,
			Deliver("left", nil),
			Deliver("right", Convert(func(ev watchEvent) watchEvent {
				return watchEvent{K: kindNews, Val: "converted " + ev.Val}
			})),
		),
	)

	r.Submit(watchEvent{K: kindStart, Val: "x"})
	if n := r.Settle(); n != 2 {
		t.Fatalf("expected 2 dispatch steps, got %d", n)
	}

	if !reflect.DeepEqual(left.seen, []string{"watch.news:x"}) {
		t.Fatalf("left saw %v", left.seen)
	}
	if !reflect.DeepEqual(right.seen, []string{"watch.news:converted x"}) {
		t.Fatalf("right saw %v", right.seen)
	}
}

func TestRequestResponse(t *testing.T) {
	asker := &watch{on: map[effect.Kind]handlerFunc{
		kindStart: func(eb effect.Builder, _ rng.Rng, ev watchEvent) effect.Effects[watchEvent] {
			reply := effect.Request(eb, func(r effect.Responder[string]) effect.Event {
				return askEvent{Q: ev.Val, Reply: r}
			})
			return effect.Emit(reply, func(s string) watchEvent {
				return watchEvent{K: kindAnswer, Val: s}
			})
		},
	}}

	r, _ := newTestReactor(t, []effect.Kind{kindStart, kindAnswer, kindAsk},
		Register[watchEvent]("asker", asker, kindStart, kindAnswer),
		Register[askEvent]("echo", echo{}, kindAsk),
	)
	ctx := testContext(t)

	r.Submit(watchEvent{K: kindStart, Val: "ping"})
	if err := r.StepUntil(ctx, func() bool { return asker.count(kindAnswer) == 1 }); err != nil {
		t.Fatalf("StepUntil: %v", err)
	}

	if asker.seen[1] != "watch.answer:re:ping" {
		t.Fatalf("unexpected answer %v", asker.seen)
	}
}

func TestInject(t *testing.T) {
	p := &watch{}
	r, _ := newTestReactor(t, []effect.Kind{kindStart},
		Register[watchEvent]("watch", p, kindStart))

	if err := r.Inject("nobody", watchEvent{K: kindStart}); !errors.Is(err, ErrUnknownComponent) {
		t.Fatalf("expected ErrUnknownComponent, got %v", err)
	}

	// kindTick is not routed anywhere, injection bypasses the table
	if err := r.Inject("watch", watchEvent{K: kindTick, Val: "direct"}); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if !r.TryStep() {
		t.Fatalf("nothing to step")
	}
	if r.TryStep() {
		t.Fatalf("expected an empty queue")
	}

	snap, err := r.Snapshot("watch")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !reflect.DeepEqual(snap, []string{"watch.tick:direct"}) {
		t.Fatalf("unexpected snapshot %v", snap)
	}
}

func TestContractViolations(t *testing.T) {
	t.Run("wrong event type", func(t *testing.T) {
		r, _ := newTestReactor(t, []effect.Kind{kindStart, kindAsk},
			Register[watchEvent]("watch", &watch{}, kindStart),
			Register[askEvent]("echo", echo{}, kindAsk),
		)
		r.Inject("echo", watchEvent{K: kindStart})
		r.Settle()

		var ce *ContractError
		if !errors.As(r.Err(), &ce) || ce.Code != ViolationEventType {
			t.Fatalf("expected event type violation, got %v", r.Err())
		}
		if r.State() != Draining {
			t.Fatalf("expected Draining, got %s", r.State())
		}
	})

	t.Run("unroutable at runtime", func(t *testing.T) {
		r, _ := newTestReactor(t, []effect.Kind{kindStart},
			Register[watchEvent]("watch", &watch{}, kindStart))
		r.Submit(watchEvent{K: "watch.nowhere"})
		r.Settle()

		var ce *ContractError
		if !errors.As(r.Err(), &ce) || ce.Code != ViolationUnroutable {
			t.Fatalf("expected unroutable violation, got %v", r.Err())
		}
	})

	t.Run("overrun", func(t *testing.T) {
		p := &watch{on: map[effect.Kind]handlerFunc{
			kindStart: func(effect.Builder, rng.Rng, watchEvent) effect.Effects[watchEvent] {
				time.Sleep(5 * time.Millisecond)
				return nil
			},
		}}
		conf := TestConfig(t)
		conf.HandlerBudget = time.Millisecond
		conf.HaltOnOverrun = true
		r, err := New(conf, rng.NewSeeded(1), []effect.Kind{kindStart},
			Register[watchEvent]("watch", p, kindStart))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		defer r.Close()

		r.Submit(watchEvent{K: kindStart})
		r.Settle()

		var ce *ContractError
		if !errors.As(r.Err(), &ce) || ce.Code != ViolationOverrun {
			t.Fatalf("expected overrun violation, got %v", r.Err())
		}
	})
}

func TestRunShutdown(t *testing.T) {
	p := &watch{}
	r, _ := newTestReactor(t, []effect.Kind{kindStart},
		Register[watchEvent]("watch", p, kindStart))
	ctx := testContext(t)

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(ctx)
	}()

	for i := 0; i < 3; i++ {
		if err := r.Submit(watchEvent{K: kindStart, Val: fmt.Sprint(i)}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	r.ShutdownHandle().Shutdown("test over")

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-ctx.Done():
		t.Fatalf("reactor did not stop")
	}

	if r.State() != Stopped {
		t.Fatalf("expected Stopped, got %s", r.State())
	}
	if err := r.Submit(watchEvent{K: kindStart}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if r.ShutdownHandle().Shutdown("again") {
		t.Fatalf("second shutdown accepted")
	}
	if len(p.seen) != 3 {
		t.Fatalf("expected 3 events handled, got %v", p.seen)
	}
}

func TestDrainRunsInFlightEffects(t *testing.T) {
	p := &watch{on: map[effect.Kind]handlerFunc{
		kindStart: func(eb effect.Builder, _ rng.Rng, _ watchEvent) effect.Effects[watchEvent] {
			return effect.Emit(eb.SetTimeout(10*time.Millisecond), func(time.Duration) watchEvent {
				return watchEvent{K: kindTick}
			})
		},
	}}
	r, c := newTestReactor(t, []effect.Kind{kindStart, kindTick},
		Register[watchEvent]("watch", p, kindStart, kindTick))
	ctx := testContext(t)

	r.Submit(watchEvent{K: kindStart})
	r.ShutdownHandle().Shutdown("drain")

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(ctx)
	}()

	if err := waitFor(ctx, func() bool { return r.State() == Draining }); err != nil {
		t.Fatalf("never started draining")
	}
	if err := r.Submit(watchEvent{K: kindStart}); !errors.Is(err, ErrStopped) {
		t.Fatalf("external event accepted while draining: %v", err)
	}
	if err := c.BlockUntil(ctx, 1); err != nil {
		t.Fatalf("timer never armed")
	}

	c.Advance(10 * time.Millisecond)

	if err := <-errCh; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.count(kindTick) != 1 {
		t.Fatalf("in-flight timer lost during drain: %v", p.seen)
	}
}

func TestDrainTimeout(t *testing.T) {
	p := &watch{on: map[effect.Kind]handlerFunc{
		kindStart: func(eb effect.Builder, _ rng.Rng, _ watchEvent) effect.Effects[watchEvent] {
			return effect.Emit(eb.SetTimeout(time.Hour), func(time.Duration) watchEvent {
				return watchEvent{K: kindTick}
			})
		},
	}}
	conf := TestConfig(t)
	conf.DrainTimeout = time.Second
	r, err := New(conf, rng.NewSeeded(1), []effect.Kind{kindStart, kindTick},
		Register[watchEvent]("watch", p, kindStart, kindTick))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c := conf.Clock.(*clock.Manual)
	ctx := testContext(t)

	r.Submit(watchEvent{K: kindStart})
	r.ShutdownHandle().Shutdown("drain")

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(ctx)
	}()

	// the hour-long timer and the drain timer
	if err := c.BlockUntil(ctx, 2); err != nil {
		t.Fatalf("timers never armed")
	}
	c.Advance(time.Second)

	if err := <-errCh; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.count(kindTick) != 0 {
		t.Fatalf("cancelled timer delivered a tick")
	}
	if r.InFlight() != 0 {
		t.Fatalf("effects still in flight after stop")
	}
}

func TestFatalStopsReactor(t *testing.T) {
	diskErr := errors.New("disk gone")
	p := &watch{on: map[effect.Kind]handlerFunc{
		kindStart: func(eb effect.Builder, _ rng.Rng, _ watchEvent) effect.Effects[watchEvent] {
			return effect.Ignore[watchEvent](eb.Fatal(diskErr))
		},
	}}
	r, _ := newTestReactor(t, []effect.Kind{kindStart},
		Register[watchEvent]("watch", p, kindStart))

	r.Submit(watchEvent{K: kindStart})
	err := r.Run(testContext(t))

	if !errors.Is(err, ErrFatal) || !errors.Is(err, diskErr) {
		t.Fatalf("expected fatal error wrapping %v, got %v", diskErr, err)
	}
	if !strings.Contains(err.Error(), "watch") {
		t.Fatalf("error does not name the component: %v", err)
	}
}

func TestPanicIsContractViolation(t *testing.T) {
	p := &watch{on: map[effect.Kind]handlerFunc{
		kindStart: func(effect.Builder, rng.Rng, watchEvent) effect.Effects[watchEvent] {
			panic("handler bug")
		},
	}}
	r, _ := newTestReactor(t, []effect.Kind{kindStart},
		Register[watchEvent]("watch", p, kindStart))

	r.Submit(watchEvent{K: kindStart})
	err := r.Run(testContext(t))

	var ce *ContractError
	if !errors.As(err, &ce) || ce.Code != ViolationPanic || ce.Component != "watch" {
		t.Fatalf("expected panic violation, got %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	r, _ := newTestReactor(t, []effect.Kind{kindStart},
		Register[watchEvent]("watch", &watch{}, kindStart))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := r.Run(context.Background()); err == nil {
		t.Fatalf("second Run should fail")
	}
}

// mixer draws from the shared rng and offloads work, so its trace depends
// on both the seed and the order effects complete in.
func newMixer() *watch {
	return &watch{on: map[effect.Kind]handlerFunc{
		kindStart: func(eb effect.Builder, r rng.Rng, ev watchEvent) effect.Effects[watchEvent] {
			salt := r.Uint64() % 1000
			work := effect.Offload(eb, func(context.Context) string {
				return fmt.Sprintf("%s/%d", ev.Val, salt)
			})
			return effect.Emit(work, func(s string) watchEvent {
				return watchEvent{K: kindDone, Val: s}
			})
		},
	}}
}

func runMixer(t *testing.T, seed uint64) ([]byte, interface{}) {
	var trace bytes.Buffer

	conf := TestConfig(t)
	conf.Recorder = NewRecorder(&trace)
	m := newMixer()
	r, err := New(conf, rng.NewSeeded(seed), []effect.Kind{kindStart, kindDone},
		Register[watchEvent]("mixer", m, kindStart, kindDone))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()
	ctx := testContext(t)

	for i, v := range []string{"a", "b", "c"} {
		r.Submit(watchEvent{K: kindStart, Val: v})
		if err := r.StepUntil(ctx, func() bool { return m.count(kindDone) == i+1 }); err != nil {
			t.Fatalf("StepUntil: %v", err)
		}
	}

	if err := conf.Recorder.Err(); err != nil {
		t.Fatalf("Recorder: %v", err)
	}
	snap, err := r.Snapshot("mixer")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return trace.Bytes(), snap
}

func TestReplayDeterminism(t *testing.T) {
	trace1, snap1 := runMixer(t, 42)
	trace2, snap2 := runMixer(t, 42)

	if len(trace1) == 0 {
		t.Fatalf("nothing recorded")
	}
	if !bytes.Equal(trace1, trace2) {
		t.Fatalf("traces differ:\n%s\n%s", trace1, trace2)
	}
	if !reflect.DeepEqual(snap1, snap2) {
		t.Fatalf("snapshots differ: %v vs %v", snap1, snap2)
	}

	trace3, _ := runMixer(t, 43)
	if bytes.Equal(trace1, trace3) {
		t.Fatalf("different seeds produced the same trace")
	}
}
