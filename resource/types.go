package resource

import (
	"github.com/wippyai/owned/errors"
)

// Handle is an opaque reference to a resource in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Event types for resource lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	EventRemoved
	EventBorrowed
	EventBorrowReturned
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	case EventRemoved:
		return "removed"
	case EventBorrowed:
		return "borrowed"
	case EventBorrowReturned:
		return "borrow-returned"
	default:
		return "unknown"
	}
}

// Event represents a resource lifecycle event.
type Event struct {
	Err    error
	Handle Handle
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
// Functions are not comparable, so an ObserverFunc cannot be unsubscribed.
type ObserverFunc func(Event)

// OnResourceEvent implements Observer.
func (f ObserverFunc) OnResourceEvent(e Event) {
	f(e)
}

var (
	ErrClosed = &errors.Error{
		Phase:  errors.PhaseTable,
		Kind:   errors.KindClosed,
		Detail: "resource table closed",
	}
	ErrOutstandingBorrow = &errors.Error{
		Phase:  errors.PhaseTable,
		Kind:   errors.KindBorrowed,
		Detail: "cannot drop resource with outstanding borrows",
	}
	ErrInvalidHandle = &errors.Error{
		Phase:  errors.PhaseTable,
		Kind:   errors.KindNotFound,
		Detail: "invalid resource handle",
	}
)
