package postal

import (
	"strings"

	"github.com/wippyai/postal/engine"
	"github.com/wippyai/postal/engine/libpostal"
	"github.com/wippyai/postal/errors"
)

// ExpandAddressOptions holds the normalization options for ExpandAddress
// plus an optional ordered list of language codes.
//
// The language codes are owned Go strings. The C table pointing at them is
// built inside each ExpandAddress call and freed before it returns, so the
// options value may be reused, copied or modified between calls.
type ExpandAddressOptions struct {
	// Normalize starts as the engine defaults and may be adjusted freely.
	Normalize engine.NormalizeOptions
	languages []string
}

// NewExpandAddressOptions returns libpostal's default normalization options.
func NewExpandAddressOptions() *ExpandAddressOptions {
	return newExpandAddressOptions(libpostal.New())
}

func newExpandAddressOptions(e engine.Engine) *ExpandAddressOptions {
	engineMu.Lock()
	defaults := e.DefaultNormalizeOptions()
	engineMu.Unlock()
	return &ExpandAddressOptions{Normalize: defaults}
}

// SetLanguages replaces the language hints with trimmed, lowercased copies
// of langs, skipping empty codes. A code containing a NUL byte is rejected
// and leaves the previous languages in place.
func (o *ExpandAddressOptions) SetLanguages(langs ...string) error {
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		if strings.IndexByte(l, 0) >= 0 {
			return errors.NulByte(errors.PhaseExpand, "language code", l)
		}
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" {
			continue
		}
		out = append(out, l)
	}
	o.languages = out
	return nil
}

// Languages returns a copy of the language hints.
func (o *ExpandAddressOptions) Languages() []string {
	if len(o.languages) == 0 {
		return nil
	}
	return append([]string(nil), o.languages...)
}

// ParseAddressOptions holds the parser options for ParseAddress. libpostal
// ignores the language and country hints when parsing, so they are exposed
// read-only as the engine reports them.
type ParseAddressOptions struct {
	opts engine.ParserOptions
}

// NewParseAddressOptions returns libpostal's default parser options.
func NewParseAddressOptions() *ParseAddressOptions {
	return newParseAddressOptions(libpostal.New())
}

func newParseAddressOptions(e engine.Engine) *ParseAddressOptions {
	engineMu.Lock()
	defaults := e.DefaultParserOptions()
	engineMu.Unlock()
	return &ParseAddressOptions{opts: defaults}
}

// Language returns the language hint passed to the parser.
func (o *ParseAddressOptions) Language() string {
	return o.opts.Language
}

// Country returns the country hint passed to the parser.
func (o *ParseAddressOptions) Country() string {
	return o.opts.Country
}
