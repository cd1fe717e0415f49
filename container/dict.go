package container

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/propbridge/errors"
	"github.com/wippyai/propbridge/gc"
	"github.com/wippyai/propbridge/typedesc"
)

type pair struct {
	key   any
	value any
}

// Dict is a reference-counted map with unique keys kept in ascending order.
// It is not safe for concurrent mutation; reference counting is.
type Dict struct {
	factory *Factory
	keyType *typedesc.BaseTypeDesc
	valType *typedesc.BaseTypeDesc
	keyCmp  Comparator
	valCmp  Comparator
	pairs   []pair
	handle  gc.Handle
	refs    atomic.Int32
	flag    atomic.Bool
	dead    atomic.Bool
}

// KeyType returns the key base type.
func (d *Dict) KeyType() *typedesc.BaseTypeDesc { return d.keyType }

// ValueType returns the value base type. Dicts of arrays report an array
// base type.
func (d *Dict) ValueType() *typedesc.BaseTypeDesc { return d.valType }

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.pairs) }

// GetSize is Len as a uint32.
func (d *Dict) GetSize() uint32 { return uint32(len(d.pairs)) }

// IsEmpty reports whether the dict has no entries.
func (d *Dict) IsEmpty() bool { return len(d.pairs) == 0 }

// search returns the position of key, or where it would be inserted.
func (d *Dict) search(key any) (int, bool, error) {
	lo, hi := 0, len(d.pairs)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		c, err := d.keyCmp.Compare(d.pairs[mid].key, key)
		if err != nil {
			return 0, false, err
		}
		switch {
		case c < 0:
			lo = mid + 1
		case c > 0:
			hi = mid
		default:
			return mid, true, nil
		}
	}
	return lo, false, nil
}

func (d *Dict) check(key, value any) error {
	if err := CheckElement(d.keyType, key); err != nil {
		return err
	}
	return CheckElement(d.valType, value)
}

func (d *Dict) insertAt(i int, key, value any) {
	d.pairs = append(d.pairs, pair{})
	copy(d.pairs[i+1:], d.pairs[i:])
	d.pairs[i] = pair{
		key:   CopyElement(d.keyType, key),
		value: CopyElement(d.valType, value),
	}
}

// Set stores value under key. An existing value is destroyed and replaced;
// the stored key is kept.
func (d *Dict) Set(key, value any) error {
	if err := d.check(key, value); err != nil {
		return err
	}
	i, found, err := d.search(key)
	if err != nil {
		return err
	}
	if found {
		old := d.pairs[i].value
		d.pairs[i].value = CopyElement(d.valType, value)
		DestroyElement(d.valType, old)
		return nil
	}
	d.insertAt(i, key, value)
	return nil
}

// SetIfNotExist stores value only when key is absent and reports whether it
// did.
func (d *Dict) SetIfNotExist(key, value any) (bool, error) {
	if err := d.check(key, value); err != nil {
		return false, err
	}
	i, found, err := d.search(key)
	if err != nil || found {
		return false, err
	}
	d.insertAt(i, key, value)
	return true, nil
}

// Insert adds a new entry during construction. A repeated key fails with
// ErrDuplicateKey.
func (d *Dict) Insert(key, value any) error {
	if err := d.check(key, value); err != nil {
		return err
	}
	i, found, err := d.search(key)
	if err != nil {
		return err
	}
	if found {
		return errors.DuplicateKey(errors.PhaseContainer, nil, key)
	}
	d.insertAt(i, key, value)
	return nil
}

// Remove deletes key and reports whether it was present.
func (d *Dict) Remove(key any) (bool, error) {
	i, found, err := d.search(key)
	if err != nil || !found {
		return false, err
	}
	d.removeAt(i)
	return true, nil
}

func (d *Dict) removeAt(i int) {
	p := d.pairs[i]
	copy(d.pairs[i:], d.pairs[i+1:])
	d.pairs[len(d.pairs)-1] = pair{}
	d.pairs = d.pairs[:len(d.pairs)-1]
	DestroyElement(d.keyType, p.key)
	DestroyElement(d.valType, p.value)
}

// RemoveValues deletes every entry whose value equals value and returns the
// number removed.
func (d *Dict) RemoveValues(value any) (int, error) {
	removed := 0
	for i := 0; i < len(d.pairs); {
		eq, err := d.valCmp.Equal(d.pairs[i].value, value)
		if err != nil {
			return removed, err
		}
		if eq {
			d.removeAt(i)
			removed++
			continue
		}
		i++
	}
	return removed, nil
}

// Get returns the value stored under key.
func (d *Dict) Get(key any) (any, error) {
	i, found, err := d.search(key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.KeyNotFound(errors.PhaseContainer, nil, key)
	}
	return d.pairs[i].value, nil
}

// GetOrCreate returns the value under key, inserting a default value first
// when key is absent.
func (d *Dict) GetOrCreate(key any) (any, error) {
	if err := CheckElement(d.keyType, key); err != nil {
		return nil, err
	}
	i, found, err := d.search(key)
	if err != nil {
		return nil, err
	}
	if !found {
		v := d.factory.CreateElement(d.valType)
		d.insertAt(i, key, v)
		// CreateElement handed us the only reference.
		DestroyElement(d.valType, v)
	}
	return d.pairs[i].value, nil
}

// GetDefault returns the value under key or fallback when absent.
func (d *Dict) GetDefault(key, fallback any) (any, error) {
	i, found, err := d.search(key)
	if err != nil {
		return nil, err
	}
	if !found {
		return fallback, nil
	}
	return d.pairs[i].value, nil
}

// Exists reports whether key is present.
func (d *Dict) Exists(key any) (bool, error) {
	_, found, err := d.search(key)
	return found, err
}

// Keys returns a new array holding the keys in order. The caller owns the
// returned reference.
func (d *Dict) Keys() *Array {
	arr := d.factory.NewArray(d.keyType)
	arr.Reserve(len(d.pairs))
	for _, p := range d.pairs {
		arr.items = append(arr.items, CopyElement(d.keyType, p.key))
	}
	return arr
}

// Values returns a new array holding the values in key order. The caller
// owns the returned reference.
func (d *Dict) Values() *Array {
	arr := d.factory.NewArray(d.valType)
	arr.Reserve(len(d.pairs))
	for _, p := range d.pairs {
		arr.items = append(arr.items, CopyElement(d.valType, p.value))
	}
	return arr
}

// Each calls fn for every entry in ascending key order until fn returns
// false.
func (d *Dict) Each(fn func(key, value any) bool) {
	for _, p := range d.pairs {
		if !fn(p.key, p.value) {
			return
		}
	}
}

// Equals reports whether other holds the same keys mapped to equal values.
func (d *Dict) Equals(other *Dict) bool {
	if other == nil || len(d.pairs) != len(other.pairs) {
		return false
	}
	if d == other {
		return true
	}
	for i := range d.pairs {
		keq, err := d.keyCmp.Equal(d.pairs[i].key, other.pairs[i].key)
		if err != nil || !keq {
			return false
		}
		veq, err := d.valCmp.Equal(d.pairs[i].value, other.pairs[i].value)
		if err != nil {
			Logger().Debug("dict value comparison failed", zap.Error(err))
			return false
		}
		if !veq {
			return false
		}
	}
	return true
}

// Clear destroys all entries.
func (d *Dict) Clear() {
	var handles []handleRef
	d.forEachHandle(func(t *typedesc.BaseTypeDesc, v any) {
		handles = append(handles, handleRef{t, v})
	})
	clear(d.pairs)
	d.pairs = d.pairs[:0]
	for _, h := range handles {
		DestroyElement(h.t, h.v)
	}
}

type handleRef struct {
	t *typedesc.BaseTypeDesc
	v any
}

// AddRef adds a reference and returns the new count.
func (d *Dict) AddRef() int32 {
	return d.refs.Add(1)
}

// Release drops a reference. The dict is destroyed when the count reaches
// zero.
func (d *Dict) Release() int32 {
	n := d.refs.Add(-1)
	if n == 0 && d.dead.CompareAndSwap(false, true) {
		d.destroy()
	}
	return n
}

// RefCount returns the current reference count.
func (d *Dict) RefCount() int32 { return d.refs.Load() }

func (d *Dict) SetGCFlag(v bool) { d.flag.Store(v) }
func (d *Dict) GCFlag() bool     { return d.flag.Load() }

// EnumReferences visits every handle key and value.
func (d *Dict) EnumReferences(visit func(ref any)) {
	d.forEachHandle(func(_ *typedesc.BaseTypeDesc, v any) { visit(v) })
}

// ReleaseAllHandles clears the dict. The collector calls it to break
// cycles.
func (d *Dict) ReleaseAllHandles() {
	d.Clear()
}

// forEachHandle visits exactly the values Clear releases.
func (d *Dict) forEachHandle(visit func(*typedesc.BaseTypeDesc, any)) {
	keys, vals := d.keyType.IsRefType(), d.valType.IsRefType()
	if !keys && !vals {
		return
	}
	for _, p := range d.pairs {
		if keys && p.key != nil {
			visit(d.keyType, p.key)
		}
		if vals && p.value != nil {
			visit(d.valType, p.value)
		}
	}
}

func (d *Dict) destroy() {
	if d.handle != 0 && d.factory.collector != nil {
		d.factory.collector.Untrack(d.handle)
	}
	d.Clear()
}
