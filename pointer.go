package owned

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/owned/errors"
)

// Pointer owns at most one *T and destroys it exactly once.
//
// The zero value is an empty pointer ready to use. A Pointer must not be
// copied after first use; pass it by address and move ownership with Take,
// Assign or Swap. go vet reports accidental copies.
//
// A Pointer is not safe for concurrent use.
type Pointer[T any] struct {
	noCopy   noCopy
	resource *T
	deleter  Deleter[T]
}

// New returns a pointer owning p with the default destruction action.
// New(nil) returns an empty pointer.
func New[T any](p *T) *Pointer[T] {
	return &Pointer[T]{resource: p}
}

// NewWithDeleter returns a pointer owning p that is destroyed by d.
// The deleter value is copied. Passing a nil Deleter[T] interface selects
// the default action.
func NewWithDeleter[T any, D Deleter[T]](p *T, d D) *Pointer[T] {
	return &Pointer[T]{resource: p, deleter: d}
}

// Get returns the owned resource without transferring ownership.
func (p *Pointer[T]) Get() *T {
	if p == nil {
		return nil
	}
	return p.resource
}

// Valid reports whether the pointer owns a resource.
func (p *Pointer[T]) Valid() bool {
	return p.Get() != nil
}

// Value returns a copy of the owned value.
// It panics with a KindEmpty error if the pointer is empty.
func (p *Pointer[T]) Value() T {
	if !p.Valid() {
		panic(errors.Empty(errors.PhaseAccess, typeName[T]()))
	}
	return *p.resource
}

// Deleter returns the custom deleter, or nil when the default action applies.
func (p *Pointer[T]) Deleter() Deleter[T] {
	if p == nil {
		return nil
	}
	return p.deleter
}

// Take moves ownership into a new pointer and leaves p empty.
func (p *Pointer[T]) Take() *Pointer[T] {
	if p == nil {
		return &Pointer[T]{}
	}
	moved := &Pointer[T]{resource: p.resource, deleter: p.deleter}
	p.resource, p.deleter = nil, nil
	return moved
}

// Assign destroys the resource p owns, then takes over src's resource and
// deleter, leaving src empty. Assigning a pointer to itself is a no-op.
// A nil src empties p.
//
// The returned error comes from destroying p's previous resource; src is
// adopted either way. Assigning into a nil *Pointer fails with
// KindInvalidInput and leaves src untouched.
func (p *Pointer[T]) Assign(src *Pointer[T]) error {
	if p == src {
		return nil
	}
	if p == nil {
		return errors.InvalidInput(errors.PhaseTransfer, "assign into nil pointer")
	}
	err := p.destroy()
	if src != nil {
		p.resource, p.deleter = src.resource, src.deleter
		src.resource, src.deleter = nil, nil
	}
	return err
}

// Release gives up ownership of the resource without destroying it.
// The deleter is discarded and never invoked; the caller becomes
// responsible for the returned value.
func (p *Pointer[T]) Release() *T {
	if p == nil {
		return nil
	}
	r := p.resource
	p.resource, p.deleter = nil, nil
	if r != nil {
		Logger().Debug("released resource", zap.String("type", typeName[T]()))
	}
	return r
}

// Reset destroys the current resource and adopts r with the default
// destruction action. Reset(nil) leaves p empty.
func (p *Pointer[T]) Reset(r *T) error {
	return p.ResetWithDeleter(r, nil)
}

// ResetWithDeleter destroys the current resource and adopts r, to be
// destroyed by d. Adopting the address p already owns is rejected with a
// KindAliased error and leaves p unchanged. Resetting a nil *Pointer fails
// with KindInvalidInput; r is not adopted.
func (p *Pointer[T]) ResetWithDeleter(r *T, d Deleter[T]) error {
	if p == nil {
		return errors.InvalidInput(errors.PhaseTransfer, "reset nil pointer")
	}
	if r != nil && r == p.resource {
		return errors.Aliased(typeName[T](), r)
	}
	err := p.destroy()
	p.resource, p.deleter = r, d
	return err
}

// Swap exchanges the resources and deleters of p and other.
// Nothing is destroyed. Swapping with or on a nil *Pointer is a no-op.
func (p *Pointer[T]) Swap(other *Pointer[T]) {
	if p == nil || other == nil || p == other {
		return
	}
	p.resource, other.resource = other.resource, p.resource
	p.deleter, other.deleter = other.deleter, p.deleter
}

// Close destroys the owned resource. It is safe to call on an empty
// pointer and more than once.
func (p *Pointer[T]) Close() error {
	if p == nil {
		return nil
	}
	return p.destroy()
}

// String renders the pointer for logs.
func (p *Pointer[T]) String() string {
	if !p.Valid() {
		return fmt.Sprintf("owned.Pointer[%s](empty)", typeName[T]())
	}
	return fmt.Sprintf("owned.Pointer[%s](%p)", typeName[T](), p.resource)
}

// destroy runs the deleter for the current resource. State is cleared
// before the deleter runs, so a failing or re-entrant deleter cannot cause
// a second destruction.
func (p *Pointer[T]) destroy() (err error) {
	r, d := p.resource, p.deleter
	p.resource, p.deleter = nil, nil

	switch {
	case r == nil:
		// a deleter without a resource is dropped uninvoked
		return nil
	case d == nil:
		d = DefaultDeleter[T]{}
	}

	defer func() {
		if v := recover(); v != nil {
			err = errors.DeleterPanicked(typeName[T](), v)
			Logger().Warn("deleter panicked", zap.String("type", typeName[T]()), zap.Any("panic", v))
		}
	}()

	if derr := d.Delete(r); derr != nil {
		Logger().Warn("deleter failed", zap.String("type", typeName[T]()), zap.Error(derr))
		return errors.DeleterFailed(typeName[T](), derr)
	}
	Logger().Debug("destroyed resource", zap.String("type", typeName[T]()), zap.Bool("custom", !isDefault(d)))
	return nil
}

func isDefault[T any](d Deleter[T]) bool {
	_, ok := d.(DefaultDeleter[T])
	return ok
}

func typeName[T any]() string {
	return fmt.Sprintf("%T", (*T)(nil))[1:]
}
