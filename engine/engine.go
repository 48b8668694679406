package engine

// Engine is the native address engine. See the package documentation for
// the serialization and ownership rules every caller must follow.
type Engine interface {
	// Setup performs base global setup. A non-empty dataDir selects the
	// model directory instead of the compiled-in default.
	Setup(dataDir string) bool
	Teardown()

	// SetupLanguageClassifier enables the expansion capability.
	SetupLanguageClassifier(dataDir string) bool
	TeardownLanguageClassifier()

	// SetupParser enables the parsing capability.
	SetupParser(dataDir string) bool
	TeardownParser()

	DefaultNormalizeOptions() NormalizeOptions
	DefaultParserOptions() ParserOptions

	// ExpandAddress returns the expansions of input, restricted to
	// languages when non-empty. Neither input nor languages may contain
	// NUL bytes.
	ExpandAddress(input string, opts NormalizeOptions, languages []string) StringArray

	// ParseAddress returns the labeled components of input. input must
	// not contain NUL bytes.
	ParseAddress(input string, opts ParserOptions) ParserResponse
}

// StringArray is a native array of C strings owned by the engine.
type StringArray interface {
	Len() int
	// At copies the bytes of element i out of native memory.
	At(i int) []byte
	Destroy()
}

// ParserResponse is a native parser response with parallel arrays of
// component values and labels.
type ParserResponse interface {
	Len() int
	Component(i int) []byte
	Label(i int) []byte
	Destroy()
}

// AddressComponent is a bit set selecting which address components an
// expansion applies to (libpostal's LIBPOSTAL_ADDRESS_* constants).
type AddressComponent uint16

const (
	AddressNone        AddressComponent = 0
	AddressAny         AddressComponent = 1 << 0
	AddressName        AddressComponent = 1 << 1
	AddressHouseNumber AddressComponent = 1 << 2
	AddressStreet      AddressComponent = 1 << 3
	AddressUnit        AddressComponent = 1 << 4
	AddressLevel       AddressComponent = 1 << 5
	AddressStaircase   AddressComponent = 1 << 6
	AddressEntrance    AddressComponent = 1 << 7
	AddressCategory    AddressComponent = 1 << 8
	AddressNear        AddressComponent = 1 << 9
	AddressToponym     AddressComponent = 1 << 13
	AddressPostalCode  AddressComponent = 1 << 14
	AddressPoBox       AddressComponent = 1 << 15
	AddressAll         AddressComponent = (1 << 16) - 1
)

// NormalizeOptions mirrors libpostal_normalize_options_t without the
// languages table. Languages travel as a separate ExpandAddress argument;
// the implementation builds the C string table right before the native call
// and frees it right after.
type NormalizeOptions struct {
	AddressComponents      AddressComponent
	LatinASCII             bool
	Transliterate          bool
	StripAccents           bool
	Decompose              bool
	Lowercase              bool
	TrimString             bool
	DropParentheticals     bool
	ReplaceNumericHyphens  bool
	DeleteNumericHyphens   bool
	SplitAlphaFromNumeric  bool
	ReplaceWordHyphens     bool
	DeleteWordHyphens      bool
	DeleteFinalPeriods     bool
	DeleteAcronymPeriods   bool
	DropEnglishPossessives bool
	DeleteApostrophes      bool
	ExpandNumex            bool
	RomanNumerals          bool
}

// ParserOptions mirrors libpostal_address_parser_options_t.
// libpostal currently ignores both hints when parsing.
type ParserOptions struct {
	Language string
	Country  string
}
