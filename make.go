package owned

import "github.com/wippyai/owned/errors"

// Make allocates a new T holding v and returns a pointer that owns it with
// the default destruction action. The allocation is never visible outside
// the returned pointer.
//
// Go has no constructor overloading; pick the constructor at the call site:
//
//	p := owned.Make(NewPoint(3, 4))
//	q := owned.Make(ScaledPoint(10))
func Make[T any](v T) *Pointer[T] {
	r := new(T)
	*r = v
	return &Pointer[T]{resource: r}
}

// MakeFunc runs ctor and wraps its result like Make. If ctor fails nothing
// is allocated and the error is returned with PhaseAcquire/KindConstructor.
func MakeFunc[T any](ctor func() (T, error)) (*Pointer[T], error) {
	v, err := ctor()
	if err != nil {
		return nil, errors.ConstructorFailed(typeName[T](), err)
	}
	return Make(v), nil
}
