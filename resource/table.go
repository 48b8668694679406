package resource

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("resource table closed")

// Table tracks live native results so that whatever the caller leaves
// open can be released before the engine is torn down.
type Table struct {
	entries   []entry
	freeList  []Handle
	observers []Observer
	mu        sync.Mutex
	obsMu     sync.RWMutex
	closed    bool
}

type entry struct {
	value any
	kind  Kind
	valid bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		entries:  make([]entry, 0, 16),
		freeList: make([]Handle, 0, 4),
	}
}

// Insert adds a value and returns its handle.
func (t *Table) Insert(kind Kind, value any) (Handle, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, ErrClosed
	}

	e := entry{kind: kind, value: value, valid: true}

	var handle Handle
	if n := len(t.freeList); n > 0 {
		handle = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		t.entries[handle-1] = e
	} else {
		t.entries = append(t.entries, e)
		handle = Handle(len(t.entries))
	}
	t.mu.Unlock()

	t.notify(Event{
		Type:   EventAcquired,
		Handle: handle,
		Kind:   kind,
		Value:  value,
	})

	return handle, nil
}

// Remove forgets a handle whose value has already released itself and
// returns (value, true) if it was live. Drop is not called.
func (t *Table) Remove(handle Handle) (any, bool) {
	if handle == 0 {
		return nil, false
	}

	t.mu.Lock()
	idx := int(handle - 1)
	if idx >= len(t.entries) || !t.entries[idx].valid {
		t.mu.Unlock()
		return nil, false
	}

	e := t.entries[idx]
	t.entries[idx] = entry{}
	t.freeList = append(t.freeList, handle)
	t.mu.Unlock()

	t.notify(Event{
		Type:   EventReleased,
		Handle: handle,
		Kind:   e.kind,
		Value:  e.value,
	})

	return e.value, true
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Len returns the number of live resources.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for _, e := range t.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// Each calls fn for every live resource until fn returns false. It works on
// a snapshot, so fn may release resources.
func (t *Table) Each(fn func(Handle, Kind, any) bool) {
	t.mu.Lock()
	live := make([]Event, 0, len(t.entries))
	for i, e := range t.entries {
		if e.valid {
			live = append(live, Event{Handle: Handle(i + 1), Kind: e.kind, Value: e.value})
		}
	}
	t.mu.Unlock()

	for _, e := range live {
		if !fn(e.Handle, e.Kind, e.Value) {
			return
		}
	}
}

// Close stops accepting inserts and drops every live value.
// It returns how many values were still live.
func (t *Table) Close() int {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0
	}
	t.closed = true

	var live []Event
	for i, e := range t.entries {
		if e.valid {
			live = append(live, Event{
				Type:   EventReleased,
				Handle: Handle(i + 1),
				Kind:   e.kind,
				Value:  e.value,
			})
		}
	}
	t.entries = nil
	t.freeList = nil
	t.mu.Unlock()

	// Drop runs without the table lock: droppers call back into Remove.
	for _, e := range live {
		if d, ok := e.Value.(Dropper); ok {
			d.Drop()
		}
		t.notify(e)
	}

	return len(live)
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
