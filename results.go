package postal

import (
	"iter"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/postal/errors"
	"github.com/wippyai/postal/resource"
)

// nativeResult owns one engine allocation. It is what the context's
// resource table tracks, and what the GC cleanup of an abandoned view
// receives, so it must never point back at the view.
type nativeResult struct {
	elem     func(int) []byte
	label    func(int) []byte
	destroy  func()
	table    *resource.Table
	log      *zap.Logger
	handle   resource.Handle
	kind     resource.Kind
	mu       sync.Mutex
	released bool
}

// Drop releases the native allocation. Only the first call has an effect.
func (r *nativeResult) Drop() {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return
	}
	engineMu.Lock()
	r.destroy()
	engineMu.Unlock()
	r.released = true
	r.mu.Unlock()

	r.table.Remove(r.handle)
}

// read runs fn while the allocation is guaranteed live.
func (r *nativeResult) read(fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return false
	}
	fn()
	return true
}

func reclaim(r *nativeResult) {
	r.log.Warn("result reclaimed by garbage collector without Close",
		zap.Stringer("kind", r.kind),
		zap.Uint32("handle", uint32(r.handle)))
	r.Drop()
}

// view is the iteration state shared by Expansions and Components.
type view struct {
	res     *nativeResult
	cleanup runtime.Cleanup
	err     error
	policy  DecodePolicy
	phase   errors.Phase
	n       int
	idx     int
	done    bool
}

// finish ends iteration for good and releases the native allocation.
func (v *view) finish(err error) {
	v.done = true
	v.err = err
	v.cleanup.Stop()
	v.res.Drop()
}

func (v *view) close() {
	v.done = true
	v.cleanup.Stop()
	v.res.Drop()
}

func (v *view) decode(raw []byte) (string, bool) {
	s, ok, err := v.policy.decode(v.idx, raw)
	if !ok {
		if err != nil {
			v.res.log.Debug("invalid UTF-8 in result", zap.Stringer("kind", v.res.kind), zap.Int("index", v.idx))
		}
		v.finish(err)
	}
	return s, ok
}

// Expansions is a forward-only view over the expansions the engine returned
// for one address. It owns the native array until Close, until iteration
// ends, or until the owning Context closes, whichever comes first.
//
//	exps, err := ctx.ExpandAddress(addr, opts)
//	if err != nil {
//	    return err
//	}
//	defer exps.Close()
//	for exps.Next() {
//	    fmt.Println(exps.Value())
//	}
//	return exps.Err()
//
// Values are copied into Go memory and stay valid after Close. An
// Expansions is not safe for concurrent iteration.
type Expansions struct {
	view
	value string
}

func newExpansions(res *nativeResult, n int, policy DecodePolicy) *Expansions {
	e := &Expansions{view: view{res: res, n: n, policy: policy, phase: errors.PhaseExpand}}
	e.cleanup = runtime.AddCleanup(e, reclaim, res)
	return e
}

// Len returns the number of expansions the engine reported.
func (e *Expansions) Len() int {
	return e.n
}

// Next advances to the next expansion. It returns false when the sequence
// is exhausted, closed, or an element failed to decode; check Err.
func (e *Expansions) Next() bool {
	if e.done {
		return false
	}
	if e.idx >= e.n {
		e.finish(nil)
		return false
	}

	var raw []byte
	if !e.res.read(func() { raw = e.res.elem(e.idx) }) {
		e.finish(errors.Closed(e.phase))
		return false
	}

	s, ok := e.decode(raw)
	if !ok {
		return false
	}
	e.value = s
	e.idx++
	return true
}

// Value returns the expansion Next advanced to.
func (e *Expansions) Value() string {
	return e.value
}

// Err returns the error that ended iteration, if any.
func (e *Expansions) Err() error {
	return e.err
}

// Close releases the native array. It is safe to call more than once.
func (e *Expansions) Close() error {
	e.close()
	return nil
}

// All returns an iterator over the remaining expansions. The view is closed
// when the loop ends, including on break. Check Err afterwards.
func (e *Expansions) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		defer e.Close()
		for e.Next() {
			if !yield(e.value) {
				return
			}
		}
	}
}

// Collect drains the remaining expansions and closes the view.
func (e *Expansions) Collect() ([]string, error) {
	defer e.Close()
	out := make([]string, 0, e.n-e.idx)
	for e.Next() {
		out = append(out, e.value)
	}
	return out, e.err
}

// Component is one labeled part of a parsed address.
type Component struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Components is a forward-only view over the labeled components the parser
// returned for one address. Ownership and iteration follow Expansions.
type Components struct {
	view
	value Component
}

func newComponents(res *nativeResult, n int, policy DecodePolicy) *Components {
	c := &Components{view: view{res: res, n: n, policy: policy, phase: errors.PhaseParse}}
	c.cleanup = runtime.AddCleanup(c, reclaim, res)
	return c
}

// Len returns the number of components the parser reported.
func (c *Components) Len() int {
	return c.n
}

// Next advances to the next component. Label and value stay index-aligned:
// a bad label or value ends iteration at that index.
func (c *Components) Next() bool {
	if c.done {
		return false
	}
	if c.idx >= c.n {
		c.finish(nil)
		return false
	}

	var rawValue, rawLabel []byte
	if !c.res.read(func() {
		rawValue = c.res.elem(c.idx)
		rawLabel = c.res.label(c.idx)
	}) {
		c.finish(errors.Closed(c.phase))
		return false
	}

	value, ok := c.decode(rawValue)
	if !ok {
		return false
	}
	label, ok := c.decode(rawLabel)
	if !ok {
		return false
	}
	c.value = Component{Label: label, Value: value}
	c.idx++
	return true
}

// Value returns the component Next advanced to.
func (c *Components) Value() Component {
	return c.value
}

// Err returns the error that ended iteration, if any.
func (c *Components) Err() error {
	return c.err
}

// Close releases the native response. It is safe to call more than once.
func (c *Components) Close() error {
	c.close()
	return nil
}

// All returns an iterator over the remaining components. The view is closed
// when the loop ends, including on break. Check Err afterwards.
func (c *Components) All() iter.Seq[Component] {
	return func(yield func(Component) bool) {
		defer c.Close()
		for c.Next() {
			if !yield(c.value) {
				return
			}
		}
	}
}

// Collect drains the remaining components and closes the view.
func (c *Components) Collect() ([]Component, error) {
	defer c.Close()
	out := make([]Component, 0, c.n-c.idx)
	for c.Next() {
		out = append(out, c.value)
	}
	return out, c.err
}
