// Package engine declares the boundary to the native libpostal engine.
//
// The Engine interface mirrors libpostal's public header: base setup and
// teardown, the two capability subsystems (language classifier for
// expansion, parser for parsing), the query calls and their destructors.
// Option structs are plain Go mirrors of the C structs; the implementation
// converts them at call time.
//
// # Implementations
//
//	engine/libpostal    cgo binding to the installed libpostal
//	engine/enginetest   recording fake for tests
//
// # Thread Safety
//
// Engine implementations are NOT safe for concurrent use. libpostal keeps its
// models in process-global state and is not reentrant, so every call into an
// Engine, including destructors and teardown, must be serialized by the
// caller. The postal package does this with a single process-wide lock.
//
// # Ownership
//
// ExpandAddress and ParseAddress return native allocations. Each must be
// destroyed exactly once with its Destroy method; a result with no backing
// allocation (the engine returned NULL) has Len 0 and a no-op Destroy.
package engine
