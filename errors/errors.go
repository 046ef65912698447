package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which stage of an ownership lifecycle produced the error
type Phase string

const (
	PhaseAcquire  Phase = "acquire"  // construction and allocation
	PhaseTransfer Phase = "transfer" // move, reset, swap
	PhaseDestroy  Phase = "destroy"  // deleter invocation
	PhaseAccess   Phase = "access"   // dereference
	PhaseTable    Phase = "table"    // handle table operations
	PhaseGuest    Phase = "guest"    // guest memory operations
)

// Kind categorizes the error
type Kind string

const (
	KindEmpty        Kind = "empty"
	KindAliased      Kind = "aliased"
	KindDeleter      Kind = "deleter"
	KindConstructor  Kind = "constructor"
	KindAllocation   Kind = "allocation"
	KindNotFound     Kind = "not_found"
	KindInvalidInput Kind = "invalid_input"
	KindClosed       Kind = "closed"
	KindBorrowed     Kind = "borrowed"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.GoType != "" {
		b.WriteString(": Go type ")
		b.WriteString(e.GoType)
	}

	if e.Detail != "" {
		if e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// Two errors match when phase and kind are equal.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Empty creates an error for an operation that needs an owned resource
func Empty(phase Phase, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindEmpty,
		GoType: goType,
		Detail: "pointer owns no resource",
	}
}

// Aliased creates an error for adopting an address that is already owned
func Aliased(goType string, addr any) *Error {
	return &Error{
		Phase:  PhaseTransfer,
		Kind:   KindAliased,
		GoType: goType,
		Detail: fmt.Sprintf("resource %p is already owned by this pointer", addr),
		Value:  addr,
	}
}

// DeleterFailed wraps an error returned by a deleter
func DeleterFailed(goType string, cause error) *Error {
	return &Error{
		Phase:  PhaseDestroy,
		Kind:   KindDeleter,
		GoType: goType,
		Detail: "deleter failed",
		Cause:  cause,
	}
}

// DeleterPanicked converts a recovered deleter panic into an error
func DeleterPanicked(goType string, recovered any) *Error {
	return &Error{
		Phase:  PhaseDestroy,
		Kind:   KindDeleter,
		GoType: goType,
		Detail: fmt.Sprintf("deleter panicked: %v", recovered),
		Value:  recovered,
	}
}

// ConstructorFailed wraps an error returned by a constructor
func ConstructorFailed(goType string, cause error) *Error {
	return &Error{
		Phase:  PhaseAcquire,
		Kind:   KindConstructor,
		GoType: goType,
		Detail: "construct value",
		Cause:  cause,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
