package container

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/propbridge/errors"
	"github.com/wippyai/propbridge/gc"
	"github.com/wippyai/propbridge/typedesc"
)

// Array is a reference-counted sequence of elements of one base type.
// It is not safe for concurrent mutation; reference counting is.
type Array struct {
	factory *Factory
	elem    *typedesc.BaseTypeDesc
	items   []any
	handle  gc.Handle
	refs    atomic.Int32
	flag    atomic.Bool
	dead    atomic.Bool
}

// ElemType returns the element base type.
func (a *Array) ElemType() *typedesc.BaseTypeDesc { return a.elem }

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.items) }

// GetSize is Len as a uint32, the width used on the wire.
func (a *Array) GetSize() uint32 { return uint32(len(a.items)) }

// IsEmpty reports whether the array has no elements.
func (a *Array) IsEmpty() bool { return len(a.items) == 0 }

// Reserve grows capacity to at least n elements.
func (a *Array) Reserve(n int) {
	if n > cap(a.items) {
		items := make([]any, len(a.items), n)
		copy(items, a.items)
		a.items = items
	}
}

// Resize sets the length to n, default-constructing new elements and
// destroying truncated ones.
func (a *Array) Resize(n int) error {
	if n < 0 {
		return errors.IndexOutOfRange(errors.PhaseContainer, nil, n, len(a.items))
	}
	if n < len(a.items) {
		dropped := append([]any(nil), a.items[n:]...)
		clear(a.items[n:])
		a.items = a.items[:n]
		for _, v := range dropped {
			DestroyElement(a.elem, v)
		}
		return nil
	}
	a.Reserve(n)
	for len(a.items) < n {
		a.items = append(a.items, a.factory.CreateElement(a.elem))
	}
	return nil
}

// InsertLast appends a copy of v.
func (a *Array) InsertLast(v any) error {
	if err := CheckElement(a.elem, v); err != nil {
		return err
	}
	a.items = append(a.items, CopyElement(a.elem, v))
	return nil
}

// InsertAt inserts a copy of v before index i.
func (a *Array) InsertAt(i int, v any) error {
	if i < 0 || i > len(a.items) {
		return errors.IndexOutOfRange(errors.PhaseContainer, nil, i, len(a.items))
	}
	if err := CheckElement(a.elem, v); err != nil {
		return err
	}
	a.items = append(a.items, nil)
	copy(a.items[i+1:], a.items[i:])
	a.items[i] = CopyElement(a.elem, v)
	return nil
}

// At returns the element at i. Handles are returned without a new reference.
func (a *Array) At(i int) (any, error) {
	if i < 0 || i >= len(a.items) {
		return nil, errors.IndexOutOfRange(errors.PhaseContainer, nil, i, len(a.items))
	}
	return a.items[i], nil
}

// Set replaces the element at i, destroying the previous one.
func (a *Array) Set(i int, v any) error {
	if i < 0 || i >= len(a.items) {
		return errors.IndexOutOfRange(errors.PhaseContainer, nil, i, len(a.items))
	}
	if err := CheckElement(a.elem, v); err != nil {
		return err
	}
	old := a.items[i]
	a.items[i] = CopyElement(a.elem, v)
	DestroyElement(a.elem, old)
	return nil
}

// RemoveAt removes and destroys the element at i.
func (a *Array) RemoveAt(i int) error {
	if i < 0 || i >= len(a.items) {
		return errors.IndexOutOfRange(errors.PhaseContainer, nil, i, len(a.items))
	}
	old := a.items[i]
	copy(a.items[i:], a.items[i+1:])
	a.items[len(a.items)-1] = nil
	a.items = a.items[:len(a.items)-1]
	DestroyElement(a.elem, old)
	return nil
}

// RemoveLast removes and destroys the last element.
func (a *Array) RemoveLast() error {
	return a.RemoveAt(len(a.items) - 1)
}

// Each calls fn for every element in order until fn returns false.
func (a *Array) Each(fn func(i int, v any) bool) {
	for i, v := range a.items {
		if !fn(i, v) {
			return
		}
	}
}

// Find returns the index of the first element equal to v, or -1.
func (a *Array) Find(v any) (int, error) {
	c := ComparatorFor(a.elem)
	for i, item := range a.items {
		eq, err := c.Equal(item, v)
		if err != nil {
			return -1, err
		}
		if eq {
			return i, nil
		}
	}
	return -1, nil
}

// Equals reports whether other holds equal elements in the same order.
// Elements that cannot be compared make the arrays unequal.
func (a *Array) Equals(other *Array) bool {
	if other == nil || len(a.items) != len(other.items) {
		return false
	}
	if a == other {
		return true
	}
	c := ComparatorFor(a.elem)
	for i := range a.items {
		eq, err := c.Equal(a.items[i], other.items[i])
		if err != nil {
			Logger().Debug("array element comparison failed", zap.Error(err))
			return false
		}
		if !eq {
			return false
		}
	}
	return true
}

// Clear destroys all elements.
func (a *Array) Clear() {
	var handles []any
	a.forEachHandle(func(v any) { handles = append(handles, v) })
	clear(a.items)
	a.items = a.items[:0]
	for _, v := range handles {
		DestroyElement(a.elem, v)
	}
}

// AddRef adds a reference and returns the new count.
func (a *Array) AddRef() int32 {
	return a.refs.Add(1)
}

// Release drops a reference. The array is destroyed when the count reaches
// zero.
func (a *Array) Release() int32 {
	n := a.refs.Add(-1)
	if n == 0 && a.dead.CompareAndSwap(false, true) {
		a.destroy()
	}
	return n
}

// RefCount returns the current reference count.
func (a *Array) RefCount() int32 { return a.refs.Load() }

func (a *Array) SetGCFlag(v bool) { a.flag.Store(v) }
func (a *Array) GCFlag() bool     { return a.flag.Load() }

// EnumReferences visits every handle element.
func (a *Array) EnumReferences(visit func(ref any)) {
	a.forEachHandle(visit)
}

// ReleaseAllHandles clears the array. The collector calls it to break
// cycles.
func (a *Array) ReleaseAllHandles() {
	a.Clear()
}

// forEachHandle visits exactly the values Clear releases.
func (a *Array) forEachHandle(visit func(any)) {
	if !a.elem.IsRefType() {
		return
	}
	for _, v := range a.items {
		if v != nil {
			visit(v)
		}
	}
}

func (a *Array) destroy() {
	if a.handle != 0 && a.factory.collector != nil {
		a.factory.collector.Untrack(a.handle)
	}
	a.Clear()
}
