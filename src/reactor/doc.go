// Package reactor composes independently written components into one
// process.
//
// Each component is a state machine with its own event type and a single
// entry point, HandleEvent. The reactor owns the components and one FIFO
// event queue. Its dispatch loop pops an event, looks up the component that
// owns the event's kind in a routing table built at construction, and calls
// HandleEvent with a fresh effect.Builder and the shared rng.Rng. Handlers
// never block; the effects they return run on the executor and feed the
// events they yield back into the queue.
//
// Construction checks the routing table: every declared kind must have
// exactly one route, either a component or an announcement with a list of
// subscribers.
//
//	r, err := reactor.New(conf, rng, kinds,
//		reactor.Register("storage", store, storage.KindPutDeploy),
//		reactor.Announce(deploybuffer.KindDeployAccepted,
//			reactor.Deliver("gossiper", toGossip),
//		),
//	)
//
// A reactor is Running until it sees a Shutdown event, a Fatal event raised
// through Builder.Fatal, or a contract violation. It then drains: external
// submissions are refused while in-flight effects and the events they yield
// are still processed. Once nothing is left it is Stopped and Run returns.
//
// Events are dispatched strictly in the order they were queued. The events
// of one effect are queued together and keep their order; effects that
// complete concurrently are queued in completion order.
package reactor
