package postal

import (
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/postal/engine"
	"github.com/wippyai/postal/engine/libpostal"
	"github.com/wippyai/postal/errors"
	"github.com/wippyai/postal/resource"
)

// InitOptions selects what Init sets up.
type InitOptions struct {
	// DataDir overrides the compiled-in libpostal data directory when set.
	DataDir string
	// Expand enables address expansion (the language classifier).
	Expand bool
	// Parse enables address parsing (the parser model).
	Parse bool
	// Decode selects how result views treat invalid UTF-8.
	Decode DecodePolicy
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger a Context writes to.
func WithLogger(l *zap.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.log = l
		}
	}
}

// Context owns the engine setup for its lifetime. At most one initialized
// Context exists per engine; Close tears down what Init set up.
//
// All methods are safe for concurrent use. Native calls are serialized
// process-wide.
type Context struct {
	engine  engine.Engine
	results *resource.Table
	log     *zap.Logger
	id      string

	// Written under engineMu, read without it on the query fast path.
	setupDone     atomic.Bool
	expandEnabled atomic.Bool
	parseEnabled  atomic.Bool
	closed        atomic.Bool

	decode DecodePolicy // guarded by engineMu
}

// New creates an uninitialized Context over the libpostal engine.
// No native call is made until Init.
func New(opts ...Option) *Context {
	return NewWithEngine(libpostal.New(), opts...)
}

// NewWithEngine creates an uninitialized Context over e.
func NewWithEngine(e engine.Engine, opts ...Option) *Context {
	c := &Context{
		engine:  e,
		results: resource.NewTable(),
		log:     Logger(),
		id:      uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(zap.String("context", c.id))
	return c
}

// ID returns the identifier used in this context's log fields.
func (c *Context) ID() string {
	return c.id
}

// Init sets up the engine and the requested capabilities. It may be called
// once. If base setup fails the context stays uninitialized. If a
// capability fails, capabilities enabled before it stay enabled and Close
// still tears them down.
func (c *Context) Init(opts InitOptions) error {
	engineMu.Lock()
	defer engineMu.Unlock()

	if c.closed.Load() {
		return errors.Closed(errors.PhaseSetup)
	}
	if c.setupDone.Load() {
		return errors.Busy("context is already initialized")
	}
	if !claim(c.engine, c) {
		return errors.Busy("engine is initialized by another live context")
	}

	log := c.log.With(zap.String("datadir", opts.DataDir))

	if !c.engine.Setup(opts.DataDir) {
		unclaim(c.engine, c)
		log.Error("libpostal setup failed")
		return errors.SetupFailed(opts.DataDir)
	}
	c.setupDone.Store(true)
	c.decode = opts.Decode
	log.Debug("libpostal setup", zap.Stringer("decode", opts.Decode))

	if opts.Expand {
		if !c.engine.SetupLanguageClassifier(opts.DataDir) {
			log.Error("language classifier setup failed")
			return errors.CapabilityFailed(errors.CapabilityExpand, opts.DataDir)
		}
		c.expandEnabled.Store(true)
		log.Debug("language classifier setup")
	}

	if opts.Parse {
		if !c.engine.SetupParser(opts.DataDir) {
			log.Error("parser setup failed")
			return errors.CapabilityFailed(errors.CapabilityParse, opts.DataDir)
		}
		c.parseEnabled.Store(true)
		log.Debug("parser setup")
	}

	return nil
}

// Ready reports whether base setup succeeded and the context is not closed.
func (c *Context) Ready() bool {
	return c.setupDone.Load() && !c.closed.Load()
}

// ExpandEnabled reports whether ExpandAddress can be called.
func (c *Context) ExpandEnabled() bool {
	return c.expandEnabled.Load() && !c.closed.Load()
}

// ParseEnabled reports whether ParseAddress can be called.
func (c *Context) ParseEnabled() bool {
	return c.parseEnabled.Load() && !c.closed.Load()
}

// Live returns the number of result views not yet released.
func (c *Context) Live() int {
	return c.results.Len()
}

// Subscribe registers an observer for result acquire and release events.
func (c *Context) Subscribe(o resource.Observer) {
	c.results.Subscribe(o)
}

// DefaultExpandOptions returns the engine's default normalization options.
func (c *Context) DefaultExpandOptions() *ExpandAddressOptions {
	return newExpandAddressOptions(c.engine)
}

// DefaultParseOptions returns the engine's default parser options.
func (c *Context) DefaultParseOptions() *ParseAddressOptions {
	return newParseAddressOptions(c.engine)
}

// ExpandAddress returns the normalized variants of text. A nil opts uses
// the engine defaults. The caller must Close the result or drain it.
func (c *Context) ExpandAddress(text string, opts *ExpandAddressOptions) (*Expansions, error) {
	if strings.IndexByte(text, 0) >= 0 {
		return nil, errors.NulByte(errors.PhaseExpand, "address", text)
	}
	if c.closed.Load() {
		return nil, errors.Closed(errors.PhaseExpand)
	}
	if !c.setupDone.Load() || !c.expandEnabled.Load() {
		return nil, errors.NotReady(errors.PhaseExpand, errors.CapabilityExpand)
	}
	if opts == nil {
		opts = c.DefaultExpandOptions()
	}

	engineMu.Lock()
	defer engineMu.Unlock()

	if c.closed.Load() {
		return nil, errors.Closed(errors.PhaseExpand)
	}

	arr := c.engine.ExpandAddress(text, opts.Normalize, opts.languages)
	res := &nativeResult{
		elem:    arr.At,
		destroy: arr.Destroy,
		table:   c.results,
		log:     c.log,
		kind:    resource.KindExpansions,
	}
	if err := c.track(res); err != nil {
		arr.Destroy()
		return nil, errors.Closed(errors.PhaseExpand)
	}
	return newExpansions(res, arr.Len(), c.decode), nil
}

// ParseAddress returns the labeled components of text. A nil opts uses the
// engine defaults. The caller must Close the result or drain it.
func (c *Context) ParseAddress(text string, opts *ParseAddressOptions) (*Components, error) {
	if strings.IndexByte(text, 0) >= 0 {
		return nil, errors.NulByte(errors.PhaseParse, "address", text)
	}
	if c.closed.Load() {
		return nil, errors.Closed(errors.PhaseParse)
	}
	if !c.setupDone.Load() || !c.parseEnabled.Load() {
		return nil, errors.NotReady(errors.PhaseParse, errors.CapabilityParse)
	}
	if opts == nil {
		opts = c.DefaultParseOptions()
	}

	engineMu.Lock()
	defer engineMu.Unlock()

	if c.closed.Load() {
		return nil, errors.Closed(errors.PhaseParse)
	}

	resp := c.engine.ParseAddress(text, opts.opts)
	res := &nativeResult{
		elem:    resp.Component,
		label:   resp.Label,
		destroy: resp.Destroy,
		table:   c.results,
		log:     c.log,
		kind:    resource.KindComponents,
	}
	if err := c.track(res); err != nil {
		resp.Destroy()
		return nil, errors.Closed(errors.PhaseParse)
	}
	return newComponents(res, resp.Len(), c.decode), nil
}

// track registers res in the live-result table. Called with engineMu held.
func (c *Context) track(res *nativeResult) error {
	h, err := c.results.Insert(res.kind, res)
	if err != nil {
		return err
	}
	res.handle = h
	return nil
}

// Expand collects the expansions of text with optional language hints.
func (c *Context) Expand(text string, langs ...string) ([]string, error) {
	var opts *ExpandAddressOptions
	if len(langs) > 0 {
		opts = c.DefaultExpandOptions()
		if err := opts.SetLanguages(langs...); err != nil {
			return nil, err
		}
	}
	exps, err := c.ExpandAddress(text, opts)
	if err != nil {
		return nil, err
	}
	return exps.Collect()
}

// Parse collects the labeled components of text.
func (c *Context) Parse(text string) ([]Component, error) {
	comps, err := c.ParseAddress(text, nil)
	if err != nil {
		return nil, err
	}
	return comps.Collect()
}

// Close releases outstanding result views, then tears down exactly the
// capabilities Init set up, in reverse order. It is idempotent.
func (c *Context) Close() error {
	engineMu.Lock()
	if c.closed.Load() {
		engineMu.Unlock()
		return nil
	}
	c.closed.Store(true)
	engineMu.Unlock()

	live := make(map[resource.Kind]int)
	c.results.Each(func(_ resource.Handle, k resource.Kind, _ any) bool {
		live[k]++
		return true
	})

	// Droppers take engineMu themselves.
	if n := c.results.Close(); n > 0 {
		c.log.Warn("released outstanding results on close",
			zap.Int("count", n),
			zap.Int("expansions", live[resource.KindExpansions]),
			zap.Int("components", live[resource.KindComponents]))
	}

	engineMu.Lock()
	defer engineMu.Unlock()

	if c.parseEnabled.Load() {
		c.engine.TeardownParser()
		c.parseEnabled.Store(false)
		c.log.Debug("parser teardown")
	}
	if c.expandEnabled.Load() {
		c.engine.TeardownLanguageClassifier()
		c.expandEnabled.Store(false)
		c.log.Debug("language classifier teardown")
	}
	if c.setupDone.Load() {
		c.engine.Teardown()
		c.setupDone.Store(false)
		c.log.Debug("libpostal teardown")
	}
	unclaim(c.engine, c)
	return nil
}
