package gc

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the gc package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the gc package's logger.
func SetLogger(l *zap.Logger) {
	logger = l
}

// Collector tracks live collectable objects and breaks unreachable cycles.
type Collector struct {
	entries   []entry
	freeList  []Handle
	observers []Observer
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	collectMu sync.Mutex
}

type entry struct {
	value    Collectable
	typeName string
	valid    bool
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Track registers obj and returns its handle.
func (c *Collector) Track(typeName string, obj Collectable) Handle {
	if obj == nil {
		return 0
	}

	c.mu.Lock()
	e := entry{value: obj, typeName: typeName, valid: true}
	var handle Handle
	if len(c.freeList) > 0 {
		handle = c.freeList[len(c.freeList)-1]
		c.freeList = c.freeList[:len(c.freeList)-1]
		c.entries[handle-1] = e
	} else {
		c.entries = append(c.entries, e)
		handle = Handle(len(c.entries))
	}
	c.mu.Unlock()

	c.notify(Event{Type: EventTracked, Handle: handle, TypeName: typeName, Value: obj})
	return handle
}

// Untrack removes handle. It reports false for unknown or stale handles.
func (c *Collector) Untrack(handle Handle) bool {
	if handle == 0 {
		return false
	}

	c.mu.Lock()
	idx := int(handle - 1)
	if idx >= len(c.entries) || !c.entries[idx].valid {
		c.mu.Unlock()
		return false
	}
	e := c.entries[idx]
	c.entries[idx] = entry{}
	c.freeList = append(c.freeList, handle)
	c.mu.Unlock()

	c.notify(Event{Type: EventUntracked, Handle: handle, TypeName: e.typeName, Value: e.value})
	return true
}

// Get returns the object tracked under handle.
func (c *Collector) Get(handle Handle) (Collectable, bool) {
	if handle == 0 {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	idx := int(handle - 1)
	if idx >= len(c.entries) || !c.entries[idx].valid {
		return nil, false
	}
	return c.entries[idx].value, true
}

// Len returns the number of tracked objects.
func (c *Collector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for _, e := range c.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// Each iterates over all tracked objects.
func (c *Collector) Each(fn func(Handle, string, Collectable) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i, e := range c.entries {
		if e.valid {
			if !fn(Handle(i+1), e.typeName, e.value) {
				break
			}
		}
	}
}

// Subscribe adds an observer for collector events.
func (c *Collector) Subscribe(o Observer) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, o)
}

// Unsubscribe removes an observer.
func (c *Collector) Unsubscribe(o Observer) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	for i, obs := range c.observers {
		if obs == o {
			c.observers = append(c.observers[:i], c.observers[i+1:]...)
			return
		}
	}
}

// Collect runs one full trace and returns the number of objects whose
// handles were released to break cycles.
func (c *Collector) Collect() int {
	c.collectMu.Lock()
	defer c.collectMu.Unlock()

	type node struct {
		obj      Collectable
		typeName string
		handle   Handle
		internal int32
	}

	// Snapshot first; releasing handles below untracks objects.
	var nodes []*node
	index := make(map[Collectable]*node)
	c.Each(func(h Handle, typeName string, obj Collectable) bool {
		n := &node{obj: obj, typeName: typeName, handle: h}
		nodes = append(nodes, n)
		index[obj] = n
		return true
	})
	if len(nodes) == 0 {
		return 0
	}

	for _, n := range nodes {
		n.obj.SetGCFlag(false)
		n.obj.EnumReferences(func(ref any) {
			if target, ok := ref.(Collectable); ok {
				if tn, ok := index[target]; ok {
					tn.internal++
				}
			}
		})
	}

	var stack []*node
	for _, n := range nodes {
		if n.obj.RefCount() > n.internal {
			n.obj.SetGCFlag(true)
			stack = append(stack, n)
		}
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n.obj.EnumReferences(func(ref any) {
			target, ok := ref.(Collectable)
			if !ok {
				return
			}
			tn, ok := index[target]
			if !ok || tn.obj.GCFlag() {
				return
			}
			tn.obj.SetGCFlag(true)
			stack = append(stack, tn)
		})
	}

	var garbage []*node
	for _, n := range nodes {
		if !n.obj.GCFlag() {
			garbage = append(garbage, n)
		}
		n.obj.SetGCFlag(false)
	}
	if len(garbage) == 0 {
		return 0
	}

	// Hold every garbage object while breaking links so none is destroyed
	// while another still walks it.
	for _, n := range garbage {
		n.obj.AddRef()
	}
	for _, n := range garbage {
		n.obj.ReleaseAllHandles()
		c.notify(Event{Type: EventCollected, Handle: n.handle, TypeName: n.typeName, Value: n.obj})
	}
	for _, n := range garbage {
		n.obj.Release()
	}

	Logger().Debug("cycle collection",
		zap.Int("tracked", len(nodes)),
		zap.Int("collected", len(garbage)))
	return len(garbage)
}

func (c *Collector) notify(e Event) {
	c.obsMu.RLock()
	defer c.obsMu.RUnlock()
	for _, o := range c.observers {
		o.OnCollectorEvent(e)
	}
}
