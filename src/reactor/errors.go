package reactor

import (
	"errors"
	"fmt"

	"github.com/mosaicnetworks/reactor/src/effect"
)

var (
	// ErrUnroutable is returned when an event kind has no route.
	ErrUnroutable = errors.New("unroutable event kind")
	// ErrDuplicateRoute is returned when an event kind is claimed twice.
	ErrDuplicateRoute = errors.New("duplicate route")
	// ErrUnknownComponent is returned when a route or an injection names a
	// component that was never registered.
	ErrUnknownComponent = errors.New("unknown component")
	// ErrFatal wraps the reason a component gave for stopping the reactor.
	ErrFatal = errors.New("fatal component error")
	// ErrStopped is returned by Submit once the reactor no longer accepts
	// external events.
	ErrStopped = errors.New("reactor is not running")
)

// ViolationCode categorizes contract violations.
type ViolationCode string

const (
	// ViolationUnroutable is an event whose kind has no route at runtime.
	ViolationUnroutable ViolationCode = "UNROUTABLE"
	// ViolationEventType is an event routed to a component whose event type
	// it does not implement.
	ViolationEventType ViolationCode = "EVENT_TYPE"
	// ViolationPanic is a handler that panicked.
	ViolationPanic ViolationCode = "PANIC"
	// ViolationOverrun is a handler that ran longer than the handler budget.
	ViolationOverrun ViolationCode = "OVERRUN"
)

// ContractError is a programming error detected by the dispatch loop. The
// reactor drains and stops when it sees one.
type ContractError struct {
	Code      ViolationCode
	Component string
	Kind      effect.Kind
	Message   string
}

// Error implements the error interface.
func (e *ContractError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("%s: %s (component=%s, kind=%s)", e.Code, e.Message, e.Component, e.Kind)
	}
	return fmt.Sprintf("%s: %s (kind=%s)", e.Code, e.Message, e.Kind)
}

// IsContractError returns true if err is, or wraps, a ContractError.
func IsContractError(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}
