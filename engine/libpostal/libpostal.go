//go:build cgo

package libpostal

/*
#cgo pkg-config: libpostal
#include <stdlib.h>
#include <string.h>
#include <libpostal/libpostal.h>
*/
import "C"

import (
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/postal/engine"
)

type nativeEngine struct{}

var native = &nativeEngine{}

// New returns the process-wide libpostal engine. Every call returns the same
// value: libpostal's state is global, so there is exactly one engine.
func New() engine.Engine {
	return native
}

// Available reports whether this build links libpostal.
func Available() bool {
	return true
}

func (*nativeEngine) Setup(dataDir string) bool {
	if dataDir == "" {
		return bool(C.libpostal_setup())
	}
	cdir := C.CString(dataDir)
	defer C.free(unsafe.Pointer(cdir))
	return bool(C.libpostal_setup_datadir(cdir))
}

func (*nativeEngine) Teardown() {
	C.libpostal_teardown()
}

func (*nativeEngine) SetupLanguageClassifier(dataDir string) bool {
	if dataDir == "" {
		return bool(C.libpostal_setup_language_classifier())
	}
	cdir := C.CString(dataDir)
	defer C.free(unsafe.Pointer(cdir))
	return bool(C.libpostal_setup_language_classifier_datadir(cdir))
}

func (*nativeEngine) TeardownLanguageClassifier() {
	C.libpostal_teardown_language_classifier()
}

func (*nativeEngine) SetupParser(dataDir string) bool {
	if dataDir == "" {
		return bool(C.libpostal_setup_parser())
	}
	cdir := C.CString(dataDir)
	defer C.free(unsafe.Pointer(cdir))
	return bool(C.libpostal_setup_parser_datadir(cdir))
}

func (*nativeEngine) TeardownParser() {
	C.libpostal_teardown_parser()
}

func (*nativeEngine) DefaultNormalizeOptions() engine.NormalizeOptions {
	return fromCNormalize(C.libpostal_get_default_options())
}

func (*nativeEngine) DefaultParserOptions() engine.ParserOptions {
	copts := C.libpostal_get_address_parser_default_options()
	var opts engine.ParserOptions
	if copts.language != nil {
		opts.Language = C.GoString(copts.language)
	}
	if copts.country != nil {
		opts.Country = C.GoString(copts.country)
	}
	return opts
}

func (*nativeEngine) ExpandAddress(input string, opts engine.NormalizeOptions, languages []string) engine.StringArray {
	cinput := C.CString(input)
	defer C.free(unsafe.Pointer(cinput))

	copts := toCNormalize(opts)
	if len(languages) > 0 {
		table := newCStringTable(languages)
		defer table.free()
		copts.languages = table.ptr
		copts.num_languages = C.size_t(len(languages))
	}

	var n C.size_t
	arr := C.libpostal_expand_address(cinput, copts, &n)
	if arr == nil {
		engine.Logger().Debug("libpostal_expand_address returned NULL", zap.Int("input_len", len(input)))
		return &stringArray{}
	}
	return &stringArray{ptr: arr, n: int(n)}
}

func (*nativeEngine) ParseAddress(input string, opts engine.ParserOptions) engine.ParserResponse {
	cinput := C.CString(input)
	defer C.free(unsafe.Pointer(cinput))

	var copts C.libpostal_address_parser_options_t
	if opts.Language != "" {
		copts.language = C.CString(opts.Language)
		defer C.free(unsafe.Pointer(copts.language))
	}
	if opts.Country != "" {
		copts.country = C.CString(opts.Country)
		defer C.free(unsafe.Pointer(copts.country))
	}

	resp := C.libpostal_parse_address(cinput, copts)
	if resp == nil {
		engine.Logger().Debug("libpostal_parse_address returned NULL", zap.Int("input_len", len(input)))
	}
	return &parserResponse{resp: resp}
}

// cStringTable is a C-allocated char** built for the duration of one call.
type cStringTable struct {
	ptr   **C.char
	elems []*C.char
}

func newCStringTable(strs []string) *cStringTable {
	size := C.size_t(len(strs)) * C.size_t(unsafe.Sizeof((*C.char)(nil)))
	ptr := (**C.char)(C.malloc(size))
	elems := unsafe.Slice(ptr, len(strs))
	for i, s := range strs {
		elems[i] = C.CString(s)
	}
	return &cStringTable{ptr: ptr, elems: elems}
}

func (t *cStringTable) free() {
	for _, p := range t.elems {
		C.free(unsafe.Pointer(p))
	}
	C.free(unsafe.Pointer(t.ptr))
	t.ptr = nil
	t.elems = nil
}

type stringArray struct {
	ptr **C.char
	n   int
}

func (a *stringArray) Len() int {
	if a.ptr == nil {
		return 0
	}
	return a.n
}

func (a *stringArray) At(i int) []byte {
	return goBytes(unsafe.Slice(a.ptr, a.n)[i])
}

func (a *stringArray) Destroy() {
	if a.ptr == nil {
		return
	}
	C.libpostal_expansion_array_destroy(a.ptr, C.size_t(a.n))
	a.ptr = nil
	a.n = 0
}

type parserResponse struct {
	resp *C.libpostal_address_parser_response_t
}

func (r *parserResponse) Len() int {
	if r.resp == nil {
		return 0
	}
	return int(r.resp.num_components)
}

func (r *parserResponse) Component(i int) []byte {
	return goBytes(unsafe.Slice(r.resp.components, r.Len())[i])
}

func (r *parserResponse) Label(i int) []byte {
	return goBytes(unsafe.Slice(r.resp.labels, r.Len())[i])
}

func (r *parserResponse) Destroy() {
	if r.resp == nil {
		return
	}
	C.libpostal_address_parser_response_destroy(r.resp)
	r.resp = nil
}

func goBytes(p *C.char) []byte {
	if p == nil {
		return nil
	}
	return C.GoBytes(unsafe.Pointer(p), C.int(C.strlen(p)))
}

func toCNormalize(o engine.NormalizeOptions) C.libpostal_normalize_options_t {
	var c C.libpostal_normalize_options_t
	c.address_components = C.uint16_t(o.AddressComponents)
	c.latin_ascii = C.bool(o.LatinASCII)
	c.transliterate = C.bool(o.Transliterate)
	c.strip_accents = C.bool(o.StripAccents)
	c.decompose = C.bool(o.Decompose)
	c.lowercase = C.bool(o.Lowercase)
	c.trim_string = C.bool(o.TrimString)
	c.drop_parentheticals = C.bool(o.DropParentheticals)
	c.replace_numeric_hyphens = C.bool(o.ReplaceNumericHyphens)
	c.delete_numeric_hyphens = C.bool(o.DeleteNumericHyphens)
	c.split_alpha_from_numeric = C.bool(o.SplitAlphaFromNumeric)
	c.replace_word_hyphens = C.bool(o.ReplaceWordHyphens)
	c.delete_word_hyphens = C.bool(o.DeleteWordHyphens)
	c.delete_final_periods = C.bool(o.DeleteFinalPeriods)
	c.delete_acronym_periods = C.bool(o.DeleteAcronymPeriods)
	c.drop_english_possessives = C.bool(o.DropEnglishPossessives)
	c.delete_apostrophes = C.bool(o.DeleteApostrophes)
	c.expand_numex = C.bool(o.ExpandNumex)
	c.roman_numerals = C.bool(o.RomanNumerals)
	return c
}

func fromCNormalize(c C.libpostal_normalize_options_t) engine.NormalizeOptions {
	return engine.NormalizeOptions{
		AddressComponents:      engine.AddressComponent(c.address_components),
		LatinASCII:             bool(c.latin_ascii),
		Transliterate:          bool(c.transliterate),
		StripAccents:           bool(c.strip_accents),
		Decompose:              bool(c.decompose),
		Lowercase:              bool(c.lowercase),
		TrimString:             bool(c.trim_string),
		DropParentheticals:     bool(c.drop_parentheticals),
		ReplaceNumericHyphens:  bool(c.replace_numeric_hyphens),
		DeleteNumericHyphens:   bool(c.delete_numeric_hyphens),
		SplitAlphaFromNumeric:  bool(c.split_alpha_from_numeric),
		ReplaceWordHyphens:     bool(c.replace_word_hyphens),
		DeleteWordHyphens:      bool(c.delete_word_hyphens),
		DeleteFinalPeriods:     bool(c.delete_final_periods),
		DeleteAcronymPeriods:   bool(c.delete_acronym_periods),
		DropEnglishPossessives: bool(c.drop_english_possessives),
		DeleteApostrophes:      bool(c.delete_apostrophes),
		ExpandNumex:            bool(c.expand_numex),
		RomanNumerals:          bool(c.roman_numerals),
	}
}
