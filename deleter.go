package owned

import "io"

// Deleter destroys a resource owned by a Pointer.
//
// Any type can act as a deleter: a stateless struct, a struct carrying its
// own state (a pool, a counter, a logger) or a closure wrapped in
// DeleterFunc. A Pointer stores the deleter behind this interface, so the
// deleter's concrete type never shows up in the Pointer's type.
//
// Delete receives exactly the address the Pointer owned.
type Deleter[T any] interface {
	Delete(p *T) error
}

// DeleterFunc adapts a function to the Deleter interface.
type DeleterFunc[T any] func(p *T) error

// Delete implements Deleter.
func (f DeleterFunc[T]) Delete(p *T) error {
	return f(p)
}

// Dropper is optionally implemented by values that release external
// state when their owner destroys them.
type Dropper interface {
	Drop()
}

// DefaultDeleter is the destruction action used when a Pointer has no
// custom deleter. If *T implements io.Closer it is closed; otherwise if it
// implements Dropper it is dropped; otherwise the value is overwritten with
// its zero value so that anything it referenced can be collected.
type DefaultDeleter[T any] struct{}

// Delete implements Deleter.
func (DefaultDeleter[T]) Delete(p *T) error {
	switch v := any(p).(type) {
	case io.Closer:
		return v.Close()
	case Dropper:
		v.Drop()
		return nil
	}
	var zero T
	*p = zero
	return nil
}
