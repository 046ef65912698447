// Package errors provides structured error types for the owned module.
//
// Errors are categorized by Phase (which lifecycle stage failed) and Kind
// (error category). The Error type carries the Go type of the owned value,
// a detail message and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseTransfer, errors.KindAliased).
//		GoType("*main.Conn").
//		Detail("reset to the owned address").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Empty(errors.PhaseAccess, "*main.Conn")
//	err := errors.DeleterFailed("*main.Conn", cause)
//
// All errors implement the standard error interface and support errors.Is/As.
// Is matches on Phase and Kind only, so a bare &Error{Phase, Kind} works as
// a comparison target.
package errors
