//go:build !cgo

package libpostal

import (
	"github.com/wippyai/postal/engine"
)

// unavailableEngine stands in when the binary is built without cgo. Every
// setup call fails, so a Context never becomes ready and no query reaches it.
type unavailableEngine struct{}

var native = &unavailableEngine{}

// New returns an engine whose setup always fails: this build has no cgo.
func New() engine.Engine {
	return native
}

// Available reports whether this build links libpostal.
func Available() bool {
	return false
}

func (*unavailableEngine) Setup(string) bool {
	engine.Logger().Warn("libpostal unavailable: binary built without cgo")
	return false
}

func (*unavailableEngine) Teardown() {}

func (*unavailableEngine) SetupLanguageClassifier(string) bool { return false }

func (*unavailableEngine) TeardownLanguageClassifier() {}

func (*unavailableEngine) SetupParser(string) bool { return false }

func (*unavailableEngine) TeardownParser() {}

func (*unavailableEngine) DefaultNormalizeOptions() engine.NormalizeOptions {
	return engine.NormalizeOptions{}
}

func (*unavailableEngine) DefaultParserOptions() engine.ParserOptions {
	return engine.ParserOptions{}
}

func (*unavailableEngine) ExpandAddress(string, engine.NormalizeOptions, []string) engine.StringArray {
	return emptyArray{}
}

func (*unavailableEngine) ParseAddress(string, engine.ParserOptions) engine.ParserResponse {
	return emptyResponse{}
}

type emptyArray struct{}

func (emptyArray) Len() int      { return 0 }
func (emptyArray) At(int) []byte { return nil }
func (emptyArray) Destroy()      {}

type emptyResponse struct{}

func (emptyResponse) Len() int             { return 0 }
func (emptyResponse) Component(int) []byte { return nil }
func (emptyResponse) Label(int) []byte     { return nil }
func (emptyResponse) Destroy()             {}
