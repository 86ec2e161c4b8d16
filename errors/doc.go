// Package errors provides structured error types for the structlay library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes rich context: field path, type name,
// offending value, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseWrite, errors.KindTypeMismatch).
//		Path("rect", "origin", "x").
//		Type("int32").
//		Detail("cannot store string into integer field").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NoSuchField(errors.PhaseRead, "bogus")
//	err := errors.UninitializedArray([]string{"samples"})
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
