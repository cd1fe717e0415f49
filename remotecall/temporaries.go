package remotecall

import (
	"sync"

	"github.com/wippyai/propbridge"
)

// temporaries holds the containers decoded for one inbound call. Callers
// add only values the decode created.
type temporaries struct {
	items []propbridge.RefCounted
}

var temporariesPool = sync.Pool{
	New: func() any {
		return &temporaries{items: make([]propbridge.RefCounted, 0, 8)}
	},
}

const maxPooledTemporaries = 128

func newTemporaries() *temporaries {
	return temporariesPool.Get().(*temporaries)
}

func (t *temporaries) Add(v any) {
	if rc, ok := v.(propbridge.RefCounted); ok && rc != nil {
		t.items = append(t.items, rc)
	}
}

func (t *temporaries) Count() int {
	return len(t.items)
}

// ReleaseAll drops every held reference in insertion order.
func (t *temporaries) ReleaseAll() {
	for i, rc := range t.items {
		rc.Release()
		t.items[i] = nil
	}
	t.items = t.items[:0]
}

// Release returns the list to the pool. The list is invalid afterwards.
func (t *temporaries) Release() {
	t.ReleaseAll()
	if cap(t.items) > maxPooledTemporaries {
		return
	}
	temporariesPool.Put(t)
}
