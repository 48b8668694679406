// Package resource tracks native allocations handed out by the engine.
//
// Every expansion array and parser response returned to a caller is
// registered in a Table owned by the Context that produced it. The entry
// disappears when the result releases itself; anything still registered when
// the Context closes is dropped before the engine is torn down.
//
// # Handle Table
//
//	table := resource.NewTable()
//
//	// Register a live result, get a handle
//	handle, err := table.Insert(resource.KindExpansions, guard)
//
//	// The result released its memory on its own
//	table.Remove(handle)
//
//	// Drop everything still live
//	n := table.Close()
//
// # Observers
//
// Register observers to track lifecycle events:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    switch e.Type {
//	    case resource.EventAcquired:
//	        log.Printf("%s %d acquired", e.Kind, e.Handle)
//	    case resource.EventReleased:
//	        log.Printf("%s %d released", e.Kind, e.Handle)
//	    }
//	}))
//
// Values implementing Dropper are dropped by Close. Remove never calls Drop:
// it is the path a value takes after releasing itself.
package resource
