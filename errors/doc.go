// Package errors provides structured error types for the postal binding.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). Capability failures also record which capability was being
// enabled.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseSetup, errors.KindCapabilityFailed).
//		Capability(errors.CapabilityParse).
//		Detail("libpostal_setup_parser failed").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotReady(errors.PhaseExpand, errors.CapabilityExpand)
//	err := errors.NulByte(errors.PhaseParse, "address", text)
//
// Match errors with the standard library against the sentinels:
//
//	if stderrors.Is(err, errors.ErrNotReady) {
//		// Init was not called with the capability
//	}
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
