// Package libpostal binds the engine.Engine interface to the installed
// libpostal C library through cgo.
//
// Building requires libpostal's headers and a pkg-config entry:
//
//	pkg-config --cflags --libs libpostal
//
// Binaries built with CGO_ENABLED=0 get an engine whose setup always fails,
// so Init reports a setup error instead of the build breaking.
//
// The engine is process-global. New always returns the same value and its
// methods are not synchronized; use the postal package, which serializes
// every call behind one lock.
package libpostal
