// Package postal is a Go binding to libpostal, the statistical address
// normalizer and parser.
//
// The package wraps libpostal's process-global state in a Context that
// sets up only the capabilities it is asked for and tears down exactly
// those, serializes every native call, and hands results back as views
// that release their native memory exactly once.
//
// # Layout
//
//	postal/             Context, options, result views
//	├── engine/         Engine interface mirroring libpostal's header
//	│   ├── libpostal/  cgo implementation (pkg-config: libpostal)
//	│   └── enginetest/ recording fake for tests
//	├── resource/       live-result table with lifecycle events
//	├── errors/         structured errors with phase and kind
//	├── config/         YAML and environment configuration
//	└── cmd/postal/     command-line tool
//
// # Quick Start
//
//	ctx := postal.New()
//	if err := ctx.Init(postal.InitOptions{Expand: true, Parse: true}); err != nil {
//	    log.Fatal(err)
//	}
//	defer ctx.Close()
//
//	exps, err := ctx.Expand("1234 Cherry Ln, Podunk, TX")
//	// [1234 cherry lane podunk texas 1234 cherry lane podunk tx ...]
//
//	comps, err := ctx.Parse("1234 Main St, Podunk TX 55555")
//	// [{house_number 1234} {road main st} {city podunk} ...]
//
// # Capabilities
//
// Expansion needs the language classifier and parsing needs the parser
// model. Each is loaded only when InitOptions asks for it, and a query on a
// capability that was not enabled fails with errors.ErrNotReady without
// touching the engine.
//
// # Results
//
// ExpandAddress and ParseAddress return Expansions and Components. They
// are lazy forward-only iterators over native memory:
//
//	exps, err := ctx.ExpandAddress(addr, opts)
//	if err != nil {
//	    return err
//	}
//	defer exps.Close()
//	for e := range exps.All() {
//	    fmt.Println(e)
//	}
//	return exps.Err()
//
// The native memory is released when the view is closed, when iteration
// ends, or when the Context closes. Values are copied to Go strings and
// outlive the view. Invalid UTF-8 in a result is reported, replaced or
// silently truncated according to InitOptions.Decode.
//
// # Concurrency
//
// libpostal is not reentrant. Every native call from every Context goes
// through one process-wide lock, and only one Context per engine may be
// initialized at a time; a second Init fails with errors.ErrBusy until the
// first Context is closed. Context methods are safe for concurrent use.
//
// # Errors
//
// All failures are *errors.Error values with a Phase and a Kind. Match
// them with the standard library:
//
//	if errors.Is(err, perrors.ErrNotReady) { ... }
package postal
