// Package container implements the reference-counted runtime containers
// shared between the property codec and the scripting runtime.
//
// # Array
//
// An Array is an ordered sequence of elements of one base type fixed at
// creation:
//
//	f := container.NewFactory(types, collector)
//	arr := f.NewArray(types.MustLookup("int32"))
//	_ = arr.InsertLast(int32(7))
//	v, err := arr.At(0)
//
// # Dict
//
// A Dict maps unique keys to values and iterates in ascending key order.
// Dicts of arrays use an array base type as the value type:
//
//	d, err := f.CreateDict("dict<string,int32[]>")
//
// # Element ownership
//
// Containers own their elements. Inserting copies the value (CopyElement),
// removing destroys it (DestroyElement). For reference handles copy means
// AddRef and destroy means Release; value objects are deep copied; plain
// values are copied by assignment.
//
// # Ordering
//
// Primitives, enums and strings compare natively. Hashed strings compare by
// hash. Reference handles compare nil first, then by identity, then through
// the handle's own methods. Struct values need a Compare/OpCmp method for
// ordering and may supply Equals/OpEquals for equality; these are resolved
// once per Go type and cached. A type with no usable method fails with
// ErrNoComparisonMethod, one with two candidates with
// ErrAmbiguousComparison, both at the first comparison.
//
// # Lifetime
//
// Reference counts are atomic. A container is destroyed exactly once, when
// its count reaches zero, releasing every element. Containers made by a
// Factory with a collector are tracked for cycle collection.
package container
