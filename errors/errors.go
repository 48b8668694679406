package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the binding the error occurred
type Phase string

const (
	PhaseSetup  Phase = "setup"  // engine and capability setup
	PhaseExpand Phase = "expand" // address expansion
	PhaseParse  Phase = "parse"  // address parsing
	PhaseDecode Phase = "decode" // native result to Go
	PhaseConfig Phase = "config" // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindSetupFailed      Kind = "setup_failed"
	KindCapabilityFailed Kind = "capability_failed"
	KindInvalidInput     Kind = "invalid_input"
	KindNotReady         Kind = "not_ready"
	KindInvalidUTF8      Kind = "invalid_utf8"
	KindBusy             Kind = "busy"
	KindClosed           Kind = "closed"
)

// Capability names one of the independently enabled engine subsystems.
type Capability string

const (
	CapabilityExpand Capability = "expand"
	CapabilityParse  Capability = "parse"
)

// Error is the structured error type returned by every layer of the binding
type Error struct {
	Value      any
	Cause      error
	Phase      Phase
	Kind       Kind
	Capability Capability
	Detail     string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Capability != "" {
		b.WriteString(" (")
		b.WriteString(string(e.Capability))
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
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
// Kinds must match; Phase and Capability only when the target sets them.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	if t.Phase != "" && e.Phase != t.Phase {
		return false
	}
	if t.Capability != "" && e.Capability != t.Capability {
		return false
	}
	return true
}

// Sentinels for errors.Is. They carry only a Kind (and Capability where it
// distinguishes the failure), so they match errors from any phase.
var (
	ErrSetup           = &Error{Kind: KindSetupFailed}
	ErrEnableExpansion = &Error{Kind: KindCapabilityFailed, Capability: CapabilityExpand}
	ErrEnableParsing   = &Error{Kind: KindCapabilityFailed, Capability: CapabilityParse}
	ErrInvalidInput    = &Error{Kind: KindInvalidInput}
	ErrNotReady        = &Error{Kind: KindNotReady}
	ErrInvalidUTF8     = &Error{Kind: KindInvalidUTF8}
	ErrBusy            = &Error{Kind: KindBusy}
	ErrClosed          = &Error{Kind: KindClosed}
)

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

// Capability sets the capability the error relates to
func (b *Builder) Capability(c Capability) *Builder {
	b.err.Capability = c
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

// SetupFailed creates a base setup failure error
func SetupFailed(dataDir string) *Error {
	detail := "libpostal_setup failed"
	if dataDir != "" {
		detail = fmt.Sprintf("libpostal_setup_datadir(%q) failed", dataDir)
	}
	return &Error{
		Phase:  PhaseSetup,
		Kind:   KindSetupFailed,
		Detail: detail,
	}
}

// CapabilityFailed creates a capability enable failure error
func CapabilityFailed(c Capability, dataDir string) *Error {
	fn := "libpostal_setup_language_classifier"
	if c == CapabilityParse {
		fn = "libpostal_setup_parser"
	}
	b := New(PhaseSetup, KindCapabilityFailed).Capability(c)
	if dataDir != "" {
		return b.Detail("%s_datadir(%q) failed", fn, dataDir).Build()
	}
	return b.Detail("%s failed", fn).Build()
}

// NotReady creates a not-ready error for a capability queried before Init
func NotReady(phase Phase, c Capability) *Error {
	return New(phase, KindNotReady).
		Capability(c).
		Detail("libpostal is not ready, call Init with the %s capability", c).
		Build()
}

// NulByte creates an invalid input error for text holding an embedded NUL
func NulByte(phase Phase, what string, s string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Value:  s,
		Detail: fmt.Sprintf("%s contains a NUL byte at offset %d", what, strings.IndexByte(s, 0)),
	}
}

// InvalidUTF8 creates an invalid UTF-8 error for a native result element
func InvalidUTF8(phase Phase, index int, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Value:  index,
		Detail: fmt.Sprintf("element %d: invalid UTF-8 sequence: %x", index, preview),
	}
}

// Busy creates an error for an engine already claimed by a live context
func Busy(detail string) *Error {
	return &Error{
		Phase:  PhaseSetup,
		Kind:   KindBusy,
		Detail: detail,
	}
}

// Closed creates an error for use of a closed context
func Closed(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: "context is closed",
	}
}

// InvalidConfig creates a configuration error
func InvalidConfig(detail string, cause error) *Error {
	return New(PhaseConfig, KindInvalidInput).
		Detail("%s", detail).
		Cause(cause).
		Build()
}
