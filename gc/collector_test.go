package gc

import (
	"sync/atomic"
	"testing"
)

// fakeObj is a minimal collectable holding references to other objects.
type fakeObj struct {
	col       *Collector
	refs      []*fakeObj
	handle    Handle
	count     atomic.Int32
	flag      bool
	destroyed int
}

func newFake(col *Collector) *fakeObj {
	o := &fakeObj{col: col}
	o.count.Store(1)
	o.handle = col.Track("fake", o)
	return o
}

func (o *fakeObj) hold(other *fakeObj) {
	other.AddRef()
	o.refs = append(o.refs, other)
}

func (o *fakeObj) AddRef() int32    { return o.count.Add(1) }
func (o *fakeObj) RefCount() int32  { return o.count.Load() }
func (o *fakeObj) SetGCFlag(v bool) { o.flag = v }
func (o *fakeObj) GCFlag() bool     { return o.flag }

func (o *fakeObj) Release() int32 {
	n := o.count.Add(-1)
	if n == 0 {
		o.destroyed++
		o.col.Untrack(o.handle)
		o.ReleaseAllHandles()
	}
	return n
}

func (o *fakeObj) EnumReferences(visit func(any)) {
	for _, r := range o.refs {
		visit(r)
	}
}

func (o *fakeObj) ReleaseAllHandles() {
	refs := o.refs
	o.refs = nil
	for _, r := range refs {
		r.Release()
	}
}

type recorder struct {
	events []Event
}

func (r *recorder) OnCollectorEvent(e Event) {
	r.events = append(r.events, e)
}

func TestCollector_TrackUntrack(t *testing.T) {
	col := NewCollector()
	obs := &recorder{}
	col.Subscribe(obs)

	a := newFake(col)
	if a.handle == 0 {
		t.Fatal("Expected non-zero handle")
	}
	if got, ok := col.Get(a.handle); !ok || got != a {
		t.Fatal("Get failed")
	}
	if col.Len() != 1 {
		t.Fatalf("Expected Len() == 1, got %d", col.Len())
	}

	if !col.Untrack(a.handle) {
		t.Fatal("Untrack failed")
	}
	if col.Untrack(a.handle) {
		t.Fatal("second Untrack should fail")
	}
	if col.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Untrack")
	}

	if len(obs.events) != 2 || obs.events[0].Type != EventTracked || obs.events[1].Type != EventUntracked {
		t.Fatalf("unexpected events %+v", obs.events)
	}

	col.Unsubscribe(obs)
	newFake(col)
	if len(obs.events) != 2 {
		t.Fatal("unsubscribed observer still notified")
	}
}

func TestCollector_HandleReuse(t *testing.T) {
	col := NewCollector()
	a := newFake(col)
	col.Untrack(a.handle)
	b := newFake(col)
	if b.handle != a.handle {
		t.Errorf("Expected freed handle %d to be reused, got %d", a.handle, b.handle)
	}
	if col.Track("nil", nil) != 0 {
		t.Error("tracking nil should return the invalid handle")
	}
}

func TestCollector_BreaksCycle(t *testing.T) {
	col := NewCollector()
	a := newFake(col)
	b := newFake(col)
	a.hold(b)
	b.hold(a)

	// Drop the external references; the cycle keeps both alive.
	a.Release()
	b.Release()
	if col.Len() != 2 {
		t.Fatalf("cycle should keep both objects tracked, got %d", col.Len())
	}

	if n := col.Collect(); n != 2 {
		t.Fatalf("Collect() = %d, want 2", n)
	}
	if col.Len() != 0 {
		t.Errorf("Expected empty collector after Collect, got %d", col.Len())
	}
	if a.destroyed != 1 || b.destroyed != 1 {
		t.Errorf("each object must be destroyed exactly once: a=%d b=%d", a.destroyed, b.destroyed)
	}
}

func TestCollector_KeepsRootedCycle(t *testing.T) {
	col := NewCollector()
	a := newFake(col)
	b := newFake(col)
	a.hold(b)
	b.hold(a)
	b.Release()

	// a is still held from outside, so the whole cycle is reachable.
	if n := col.Collect(); n != 0 {
		t.Fatalf("Collect() = %d, want 0", n)
	}
	if col.Len() != 2 {
		t.Errorf("Expected 2 tracked objects, got %d", col.Len())
	}
	if a.GCFlag() || b.GCFlag() {
		t.Error("flags must be cleared after Collect")
	}

	a.Release()
	if n := col.Collect(); n != 2 {
		t.Errorf("Collect() after dropping root = %d, want 2", n)
	}
}

func TestCollector_SelfReference(t *testing.T) {
	col := NewCollector()
	obs := &recorder{}
	col.Subscribe(obs)

	a := newFake(col)
	a.hold(a)
	a.Release()

	if n := col.Collect(); n != 1 {
		t.Fatalf("Collect() = %d, want 1", n)
	}
	var collected int
	for _, e := range obs.events {
		if e.Type == EventCollected {
			collected++
		}
	}
	if collected != 1 {
		t.Errorf("Expected 1 collected event, got %d", collected)
	}
}
