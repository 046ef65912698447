package resource

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/owned"
	"github.com/wippyai/owned/errors"
)

// Table owns resources of type T and hands out integer handles for them.
//
// Inserting a pointer moves its ownership into the table. A handle can be
// borrowed any number of times; while borrows are outstanding it cannot be
// dropped or removed. Dropping destroys the resource through the deleter it
// was inserted with, Remove moves ownership back out.
//
// Table is safe for concurrent use. Deleters run without the table lock
// held, so a deleter may call back into the table.
type Table[T any] struct {
	backend   *LocalBackend[T]
	observers []Observer
	obsMu     sync.RWMutex
}

// NewTable creates a new table with a LocalBackend.
func NewTable[T any]() *Table[T] {
	return &Table[T]{
		backend: NewLocalBackend[T](),
	}
}

// Insert takes ownership of p's resource and returns its handle.
// On success p is left empty. Empty pointers are rejected.
func (t *Table[T]) Insert(p *owned.Pointer[T]) (Handle, error) {
	if !p.Valid() {
		return 0, errors.Empty(errors.PhaseTable, typeName[T]())
	}

	handle, err := t.backend.Create(p)
	if err != nil {
		return 0, err
	}

	t.notify(Event{Type: EventCreated, Handle: handle})
	return handle, nil
}

// Get retrieves the owned value by handle without transferring ownership.
func (t *Table[T]) Get(handle Handle) (*T, bool) {
	return t.backend.Get(handle)
}

// Borrow registers a borrow of handle. Every successful Borrow must be
// paired with a ReturnBorrow before the handle can be dropped.
func (t *Table[T]) Borrow(handle Handle) bool {
	if !t.backend.Borrow(handle) {
		return false
	}
	t.notify(Event{Type: EventBorrowed, Handle: handle})
	return true
}

// ReturnBorrow ends a borrow started with Borrow.
func (t *Table[T]) ReturnBorrow(handle Handle) bool {
	if !t.backend.ReturnBorrow(handle) {
		return false
	}
	t.notify(Event{Type: EventBorrowReturned, Handle: handle})
	return true
}

// Drop destroys the resource behind handle. The handle is released even if
// the deleter fails; the deleter's error is returned.
func (t *Table[T]) Drop(handle Handle) error {
	p, err := t.backend.Take(handle)
	if err != nil {
		return err
	}

	err = p.Close()
	if err != nil {
		Logger().Warn("drop: deleter failed",
			zap.Uint32("handle", uint32(handle)),
			zap.Error(err))
	}

	t.notify(Event{Type: EventDropped, Handle: handle, Err: err})
	return err
}

// Remove moves ownership of the resource behind handle back to the caller.
func (t *Table[T]) Remove(handle Handle) (*owned.Pointer[T], error) {
	p, err := t.backend.Take(handle)
	if err != nil {
		return nil, err
	}

	t.notify(Event{Type: EventRemoved, Handle: handle})
	return p, nil
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[T]) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table[T]) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of active resources.
func (t *Table[T]) Len() int {
	return t.backend.Len()
}

// Each iterates over all active resources.
func (t *Table[T]) Each(fn func(Handle, *T) bool) {
	t.backend.Each(fn)
}

// Clear drops every resource that is not borrowed. Errors from deleters
// and from borrowed handles are combined.
func (t *Table[T]) Clear() error {
	// Collect handles first to avoid holding the lock during Drop
	var handles []Handle
	t.backend.Each(func(h Handle, _ *T) bool {
		handles = append(handles, h)
		return true
	})

	var errs error
	for _, h := range handles {
		errs = multierr.Append(errs, t.Drop(h))
	}
	return errs
}

// Close destroys every resource, borrowed or not, and stops accepting
// operations. Deleter errors are combined.
func (t *Table[T]) Close() error {
	live := t.backend.Close()

	var errs error
	for _, p := range live {
		errs = multierr.Append(errs, p.Close())
	}

	Logger().Debug("table closed",
		zap.String("type", typeName[T]()),
		zap.Int("destroyed", len(live)),
		zap.Int("failed", len(multierr.Errors(errs))))
	return errs
}

// Backend returns the underlying slot store.
func (t *Table[T]) Backend() *LocalBackend[T] {
	return t.backend
}

func (t *Table[T]) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}

func typeName[T any]() string {
	return fmt.Sprintf("%T", (*T)(nil))[1:]
}
