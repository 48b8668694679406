// Package enginetest provides a recording engine.Engine for tests.
//
// The fake tracks every native call in order, counts destroys per result,
// flags double frees and detects concurrent entry, which is exactly what the
// postal package promises never to do.
package enginetest

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/wippyai/postal/engine"
)

// Call names recorded by Engine.
const (
	CallSetup                      = "setup"
	CallTeardown                   = "teardown"
	CallSetupLanguageClassifier    = "setup_language_classifier"
	CallTeardownLanguageClassifier = "teardown_language_classifier"
	CallSetupParser                = "setup_parser"
	CallTeardownParser             = "teardown_parser"
	CallExpandAddress              = "expand_address"
	CallParseAddress               = "parse_address"
	CallExpansionArrayDestroy      = "expansion_array_destroy"
	CallParserResponseDestroy      = "parser_response_destroy"
)

// Pair is one raw parser component.
type Pair struct {
	Label []byte
	Value []byte
}

// Engine is a fake engine. Configure the exported fields before use.
type Engine struct {
	// Expansions maps an input to the raw elements returned for it.
	Expansions map[string][][]byte
	// Components maps an input to the raw pairs returned for it.
	Components map[string][]Pair

	// Fail* make the matching setup call return false.
	FailSetup              bool
	FailLanguageClassifier bool
	FailParser             bool

	// Delay is slept inside every query to widen race windows.
	Delay time.Duration

	NormalizeDefaults engine.NormalizeOptions
	ParserDefaults    engine.ParserOptions

	mu            sync.Mutex
	calls         []string
	dataDirs      []string
	lastOpts      engine.NormalizeOptions
	lastLanguages []string
	lastParser    engine.ParserOptions
	results       int
	destroyed     int
	doubleFrees   int

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

// DefaultNormalizeOptions are the normalization flags libpostal reports
// as its defaults.
var DefaultNormalizeOptions = engine.NormalizeOptions{
	AddressComponents: engine.AddressName | engine.AddressHouseNumber | engine.AddressStreet |
		engine.AddressPoBox | engine.AddressUnit | engine.AddressLevel | engine.AddressEntrance |
		engine.AddressStaircase | engine.AddressPostalCode,
	LatinASCII:             true,
	Transliterate:          true,
	StripAccents:           true,
	Lowercase:              true,
	TrimString:             true,
	ReplaceNumericHyphens:  true,
	DeleteFinalPeriods:     true,
	DeleteAcronymPeriods:   true,
	DropEnglishPossessives: true,
	DeleteApostrophes:      true,
	ExpandNumex:            true,
	RomanNumerals:          true,
}

// New returns a fake reporting DefaultNormalizeOptions.
func New() *Engine {
	return &Engine{
		Expansions:        make(map[string][][]byte),
		Components:        make(map[string][]Pair),
		NormalizeDefaults: DefaultNormalizeOptions,
	}
}

// SetExpansions registers string expansions for input.
func (e *Engine) SetExpansions(input string, values ...string) {
	raw := make([][]byte, len(values))
	for i, v := range values {
		raw[i] = []byte(v)
	}
	e.Expansions[input] = raw
}

// SetComponents registers label/value pairs for input, given as
// alternating label and value strings.
func (e *Engine) SetComponents(input string, labelValues ...string) {
	pairs := make([]Pair, 0, len(labelValues)/2)
	for i := 0; i+1 < len(labelValues); i += 2 {
		pairs = append(pairs, Pair{Label: []byte(labelValues[i]), Value: []byte(labelValues[i+1])})
	}
	e.Components[input] = pairs
}

func (e *Engine) enter() func() {
	n := e.inFlight.Add(1)
	for {
		m := e.maxInFlight.Load()
		if n <= m || e.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	return func() { e.inFlight.Add(-1) }
}

func (e *Engine) record(call string) {
	e.mu.Lock()
	e.calls = append(e.calls, call)
	e.mu.Unlock()
}

func (e *Engine) Setup(dataDir string) bool {
	defer e.enter()()
	e.record(CallSetup)
	e.mu.Lock()
	e.dataDirs = append(e.dataDirs, dataDir)
	e.mu.Unlock()
	return !e.FailSetup
}

func (e *Engine) Teardown() {
	defer e.enter()()
	e.record(CallTeardown)
}

func (e *Engine) SetupLanguageClassifier(dataDir string) bool {
	defer e.enter()()
	e.record(CallSetupLanguageClassifier)
	e.mu.Lock()
	e.dataDirs = append(e.dataDirs, dataDir)
	e.mu.Unlock()
	return !e.FailLanguageClassifier
}

func (e *Engine) TeardownLanguageClassifier() {
	defer e.enter()()
	e.record(CallTeardownLanguageClassifier)
}

func (e *Engine) SetupParser(dataDir string) bool {
	defer e.enter()()
	e.record(CallSetupParser)
	e.mu.Lock()
	e.dataDirs = append(e.dataDirs, dataDir)
	e.mu.Unlock()
	return !e.FailParser
}

func (e *Engine) TeardownParser() {
	defer e.enter()()
	e.record(CallTeardownParser)
}

func (e *Engine) DefaultNormalizeOptions() engine.NormalizeOptions {
	return e.NormalizeDefaults
}

func (e *Engine) DefaultParserOptions() engine.ParserOptions {
	return e.ParserDefaults
}

func (e *Engine) ExpandAddress(input string, opts engine.NormalizeOptions, languages []string) engine.StringArray {
	defer e.enter()()
	e.record(CallExpandAddress)
	if e.Delay > 0 {
		time.Sleep(e.Delay)
	}

	e.mu.Lock()
	e.lastOpts = opts
	e.lastLanguages = append([]string(nil), languages...)
	e.results++
	e.mu.Unlock()

	return &stringArray{owner: e, elems: e.Expansions[input]}
}

func (e *Engine) ParseAddress(input string, opts engine.ParserOptions) engine.ParserResponse {
	defer e.enter()()
	e.record(CallParseAddress)
	if e.Delay > 0 {
		time.Sleep(e.Delay)
	}

	e.mu.Lock()
	e.lastParser = opts
	e.results++
	e.mu.Unlock()

	return &parserResponse{owner: e, pairs: e.Components[input]}
}

func (e *Engine) destroy(call string, done *bool) {
	defer e.enter()()
	e.record(call)
	e.mu.Lock()
	defer e.mu.Unlock()
	if *done {
		e.doubleFrees++
		return
	}
	*done = true
	e.destroyed++
}

// Calls returns the recorded native calls in order.
func (e *Engine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// Count returns how many times call was recorded.
func (e *Engine) Count(call string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		if c == call {
			n++
		}
	}
	return n
}

// DataDirs returns the data directories passed to the setup calls.
func (e *Engine) DataDirs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.dataDirs...)
}

// LastNormalizeOptions returns the options of the latest expansion.
func (e *Engine) LastNormalizeOptions() engine.NormalizeOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastOpts
}

// LastLanguages returns the languages of the latest expansion.
func (e *Engine) LastLanguages() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.lastLanguages...)
}

// LastParserOptions returns the options of the latest parse.
func (e *Engine) LastParserOptions() engine.ParserOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastParser
}

// Live returns the number of results not yet destroyed.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.results - e.destroyed
}

// Destroyed returns the number of results destroyed exactly once.
func (e *Engine) Destroyed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroyed
}

// DoubleFrees returns how many destroys hit an already destroyed result.
func (e *Engine) DoubleFrees() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doubleFrees
}

// MaxInFlight returns the highest number of concurrent calls observed.
func (e *Engine) MaxInFlight() int {
	return int(e.maxInFlight.Load())
}

type stringArray struct {
	owner     *Engine
	elems     [][]byte
	destroyed bool
}

func (a *stringArray) Len() int { return len(a.elems) }

func (a *stringArray) At(i int) []byte {
	return append([]byte(nil), a.elems[i]...)
}

func (a *stringArray) Destroy() {
	a.owner.destroy(CallExpansionArrayDestroy, &a.destroyed)
}

type parserResponse struct {
	owner     *Engine
	pairs     []Pair
	destroyed bool
}

func (r *parserResponse) Len() int { return len(r.pairs) }

func (r *parserResponse) Component(i int) []byte {
	return append([]byte(nil), r.pairs[i].Value...)
}

func (r *parserResponse) Label(i int) []byte {
	return append([]byte(nil), r.pairs[i].Label...)
}

func (r *parserResponse) Destroy() {
	r.owner.destroy(CallParserResponseDestroy, &r.destroyed)
}
