// Package errors provides structured error types for the property bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: value path, Go/declared type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindMalformedLength).
//		Path("inventory", "[3]").
//		TypeName("string").
//		Detail("string length %d exceeds remaining %d bytes", 40, 12).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.KeyNotFound(errors.PhaseContainer, path, key)
//	err := errors.TrailingData(errors.PhaseDispatch, path, 3)
//
// All errors implement the standard error interface and support errors.Is/As.
// The package-level sentinels (ErrKeyNotFound, ErrTrailingData, ...) match an
// error of the same Kind in any Phase.
package errors
