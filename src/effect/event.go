package effect

// Kind names one variant of the global event space. Kinds are namespaced by
// the owning component, e.g. "storage.put_deploy".
type Kind string

// Event is implemented by every event the reactor routes. Events are values:
// once constructed they are never modified.
type Event interface {
	Kind() Kind
}
