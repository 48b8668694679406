package resource

// Handle is an opaque reference to a live native result in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Kind identifies what sort of native allocation a handle tracks.
type Kind uint8

const (
	KindExpansions Kind = iota + 1
	KindComponents
)

func (k Kind) String() string {
	switch k {
	case KindExpansions:
		return "expansions"
	case KindComponents:
		return "components"
	default:
		return "unknown"
	}
}

// EventType enumerates resource lifecycle notifications.
type EventType uint8

const (
	EventAcquired EventType = iota
	EventReleased
)

// Event represents a resource lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Kind   Kind
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnResourceEvent calls f(e).
func (f ObserverFunc) OnResourceEvent(e Event) {
	f(e)
}

// Dropper is implemented by values that release native memory.
// Drop must be safe to call more than once.
type Dropper interface {
	Drop()
}
