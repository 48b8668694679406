package postal

import (
	"sync"

	"github.com/wippyai/postal/engine"
)

// engineMu serializes every call into any engine: setup, queries,
// destructors and teardown. libpostal state is process-global, so one lock
// covers all contexts.
var engineMu sync.Mutex

// owners maps each engine to the context that initialized it.
// Guarded by engineMu.
var owners = make(map[engine.Engine]*Context)

func claim(e engine.Engine, c *Context) bool {
	if owner, ok := owners[e]; ok && owner != c {
		return false
	}
	owners[e] = c
	return true
}

func unclaim(e engine.Engine, c *Context) {
	if owners[e] == c {
		delete(owners, e)
	}
}
