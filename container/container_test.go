package container

import (
	"cmp"
	"reflect"
	"testing"

	"github.com/wippyai/propbridge"
	"github.com/wippyai/propbridge/errors"
	"github.com/wippyai/propbridge/gc"
	"github.com/wippyai/propbridge/hashstr"
	"github.com/wippyai/propbridge/typedesc"
)

type point struct{ X, Y int32 }

type score struct{ V int32 }

func (s score) Compare(o score) int { return cmp.Compare(s.V, o.V) }

type twoWay struct{ V int32 }

func (t twoWay) Compare(o twoWay) int { return cmp.Compare(t.V, o.V) }
func (t twoWay) OpCmp(o twoWay) int   { return cmp.Compare(t.V, o.V) }

type byPtr struct{ V int32 }

func (b *byPtr) OpCmp(o *byPtr) int { return cmp.Compare(b.V, o.V) }

type eqOnly struct{ V int32 }

func (e eqOnly) Equals(o eqOnly) bool { return e.V == o.V }

func newTestFactory(t *testing.T) (*Factory, *gc.Collector) {
	t.Helper()
	types := typedesc.NewRegistry()
	structs := []struct {
		name string
		typ  reflect.Type
	}{
		{"point", reflect.TypeOf(point{})},
		{"score", reflect.TypeOf(score{})},
		{"twoWay", reflect.TypeOf(twoWay{})},
		{"byPtr", reflect.TypeOf(byPtr{})},
		{"eqOnly", reflect.TypeOf(eqOnly{})},
	}
	for _, s := range structs {
		size := uint32(s.typ.Size())
		if _, err := types.RegisterStruct(s.name, size, s.typ); err != nil {
			t.Fatalf("RegisterStruct(%s): %v", s.name, err)
		}
	}
	if _, err := types.RegisterObject("Node"); err != nil {
		t.Fatal(err)
	}
	if _, err := types.RegisterEntity("Critter", false); err != nil {
		t.Fatal(err)
	}
	col := gc.NewCollector()
	return NewFactory(types, col), col
}

func TestArray_Basic(t *testing.T) {
	f, col := newTestFactory(t)
	arr, err := f.CreateArray("int32")
	if err != nil {
		t.Fatalf("CreateArray failed: %v", err)
	}

	for _, v := range []int32{1, 2, 3} {
		if err := arr.InsertLast(v); err != nil {
			t.Fatalf("InsertLast(%d): %v", v, err)
		}
	}
	if arr.GetSize() != 3 {
		t.Fatalf("Expected size 3, got %d", arr.GetSize())
	}

	v, err := arr.At(1)
	if err != nil || v != int32(2) {
		t.Errorf("At(1) = %v, %v", v, err)
	}

	for _, i := range []int{-1, 3} {
		if _, err := arr.At(i); !errors.Is(err, errors.ErrIndexOutOfRange) {
			t.Errorf("At(%d): expected index out of range, got %v", i, err)
		}
	}

	if err := arr.InsertLast("nope"); !errors.Is(err, errors.ErrTypeMismatch) {
		t.Errorf("Expected type mismatch, got %v", err)
	}

	if err := arr.Set(0, int32(10)); err != nil {
		t.Fatal(err)
	}
	if err := arr.RemoveAt(1); err != nil {
		t.Fatal(err)
	}
	if idx, err := arr.Find(int32(3)); err != nil || idx != 1 {
		t.Errorf("Find(3) = %d, %v", idx, err)
	}
	if idx, _ := arr.Find(int32(99)); idx != -1 {
		t.Errorf("Find(99) = %d, want -1", idx)
	}
	if err := arr.InsertAt(0, int32(-5)); err != nil {
		t.Fatal(err)
	}
	if v, _ := arr.At(0); v != int32(-5) {
		t.Errorf("InsertAt(0) put %v first", v)
	}

	if err := arr.Resize(5); err != nil {
		t.Fatal(err)
	}
	if v, _ := arr.At(4); v != int32(0) {
		t.Errorf("Resize should default-construct, got %v", v)
	}
	if err := arr.Resize(1); err != nil || arr.Len() != 1 {
		t.Errorf("Resize(1) left %d elements, %v", arr.Len(), err)
	}

	arr.Release()
	if col.Len() != 0 {
		t.Errorf("Expected collector to be empty, got %d", col.Len())
	}
}

func TestArray_Equals(t *testing.T) {
	f, _ := newTestFactory(t)
	str := f.Types().MustLookup("string")
	a, b := f.NewArray(str), f.NewArray(str)
	defer a.Release()
	defer b.Release()

	for _, s := range []string{"x", "y"} {
		_ = a.InsertLast(s)
		_ = b.InsertLast(s)
	}
	if !a.Equals(b) {
		t.Error("Expected arrays to be equal")
	}
	_ = b.Set(1, "z")
	if a.Equals(b) {
		t.Error("Expected arrays to differ")
	}
	if a.Equals(nil) {
		t.Error("nil array must not be equal")
	}
}

func TestDict_Ordering(t *testing.T) {
	f, _ := newTestFactory(t)
	types := f.Types()
	tab := hashstr.NewTable()

	tests := []struct {
		name string
		key  string
		in   []any
		want []any
	}{
		{"int32", "int32", []any{int32(5), int32(-1), int32(3), int32(0)}, []any{int32(-1), int32(0), int32(3), int32(5)}},
		{"uint8", "uint8", []any{uint8(200), uint8(1), uint8(100)}, []any{uint8(1), uint8(100), uint8(200)}},
		{"float64", "float64", []any{2.5, -1.0, 0.25}, []any{-1.0, 0.25, 2.5}},
		{"bool", "bool", []any{true, false}, []any{false, true}},
		{"string", "string", []any{"pear", "apple", "fig"}, []any{"apple", "fig", "pear"}},
		{"struct", "score", []any{score{9}, score{2}, score{4}}, []any{score{2}, score{4}, score{9}}},
		{"pointer param", "byPtr", []any{byPtr{3}, byPtr{1}}, []any{byPtr{1}, byPtr{3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := f.NewDict(types.MustLookup(tt.key), types.MustLookup("int32"))
			defer d.Release()
			for i, k := range tt.in {
				if err := d.Set(k, int32(i)); err != nil {
					t.Fatalf("Set(%v): %v", k, err)
				}
			}
			var got []any
			d.Each(func(k, _ any) bool {
				got = append(got, k)
				return true
			})
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("keys = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("hashed string by hash", func(t *testing.T) {
		d := f.NewDict(types.MustLookup("hstring"), types.MustLookup("int32"))
		defer d.Release()
		for _, s := range []string{"alpha", "beta", "gamma", "delta"} {
			if err := d.Set(tab.Intern(s), int32(0)); err != nil {
				t.Fatal(err)
			}
		}
		var prev uint64
		d.Each(func(k, _ any) bool {
			h := k.(hashstr.HString).Hash
			if h < prev {
				t.Errorf("hash %x after %x", h, prev)
			}
			prev = h
			return true
		})
	})
}

func TestDict_UnhashedKeys(t *testing.T) {
	f, _ := newTestFactory(t)
	types := f.Types()
	tab := hashstr.NewTable()

	d := f.NewDict(types.MustLookup("hstring"), types.MustLookup("int32"))
	defer d.Release()
	if err := d.Set(tab.Intern("a"), int32(1)); err != nil {
		t.Fatal(err)
	}

	unhashed := hashstr.HString{Text: "a"}
	if err := d.Set(unhashed, int32(2)); !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("Set with unhashed key: expected type_mismatch, got %v", err)
	}
	if _, err := d.Get(unhashed); !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("Get with unhashed key: expected type_mismatch, got %v", err)
	}
	if _, err := d.Exists(unhashed); !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("Exists with unhashed key: expected type_mismatch, got %v", err)
	}

	v, err := d.Get(tab.Intern("a"))
	if err != nil || v != int32(1) {
		t.Errorf("Get(interned a) = %v, %v", v, err)
	}
	if d.Len() != 1 {
		t.Errorf("Len = %d, want 1", d.Len())
	}
	if err := d.Set(hashstr.HString{}, int32(3)); err != nil {
		t.Errorf("empty hashed string is a valid key: %v", err)
	}
}

func TestDict_Operations(t *testing.T) {
	f, _ := newTestFactory(t)
	d, err := f.CreateDict("dict<string,int32>")
	if err != nil {
		t.Fatalf("CreateDict failed: %v", err)
	}
	defer d.Release()

	_ = d.Set("a", int32(1))
	_ = d.Set("b", int32(2))
	_ = d.Set("a", int32(10))
	if d.Len() != 2 {
		t.Fatalf("Expected 2 entries, got %d", d.Len())
	}
	if v, err := d.Get("a"); err != nil || v != int32(10) {
		t.Errorf("Get(a) = %v, %v", v, err)
	}
	if _, err := d.Get("zz"); !errors.Is(err, errors.ErrKeyNotFound) {
		t.Errorf("Expected key not found, got %v", err)
	}

	if ok, _ := d.SetIfNotExist("a", int32(99)); ok {
		t.Error("SetIfNotExist should not overwrite")
	}
	if ok, _ := d.SetIfNotExist("c", int32(2)); !ok {
		t.Error("SetIfNotExist should insert a new key")
	}

	if v, _ := d.GetDefault("missing", int32(-1)); v != int32(-1) {
		t.Errorf("GetDefault = %v", v)
	}
	if v, _ := d.GetOrCreate("d"); v != int32(0) {
		t.Errorf("GetOrCreate = %v", v)
	}
	if ok, _ := d.Exists("d"); !ok {
		t.Error("GetOrCreate should insert the key")
	}

	if n, err := d.RemoveValues(int32(2)); err != nil || n != 2 {
		t.Errorf("RemoveValues(2) = %d, %v", n, err)
	}
	if ok, _ := d.Remove("a"); !ok {
		t.Error("Remove(a) should succeed")
	}
	if ok, _ := d.Remove("a"); ok {
		t.Error("second Remove(a) should report false")
	}

	if err := d.Insert("d", int32(1)); !errors.Is(err, errors.ErrDuplicateKey) {
		t.Errorf("Expected duplicate key, got %v", err)
	}

	keys := d.Keys()
	defer keys.Release()
	values := d.Values()
	defer values.Release()
	if keys.Len() != d.Len() || values.Len() != d.Len() {
		t.Errorf("snapshots have %d/%d entries, dict has %d", keys.Len(), values.Len(), d.Len())
	}

	d.Clear()
	if !d.IsEmpty() {
		t.Error("Clear should empty the dict")
	}
}

func TestDict_OfArray(t *testing.T) {
	f, col := newTestFactory(t)
	d, err := f.CreateDict("dict<string,int32[]>")
	if err != nil {
		t.Fatal(err)
	}

	v, err := d.GetOrCreate("x")
	if err != nil {
		t.Fatal(err)
	}
	arr := v.(*Array)
	if arr.RefCount() != 1 {
		t.Errorf("dict should hold the only reference, got %d", arr.RefCount())
	}
	_ = arr.InsertLast(int32(7))

	other := f.NewArray(f.Types().MustLookup("int32"))
	if err := d.Set("y", other); err != nil {
		t.Fatal(err)
	}
	if other.RefCount() != 2 {
		t.Errorf("Set should add a reference, got %d", other.RefCount())
	}

	if err := d.Set("z", f.NewArray(f.Types().MustLookup("string"))); !errors.Is(err, errors.ErrTypeMismatch) {
		t.Errorf("Expected type mismatch for wrong element type, got %v", err)
	}

	d.Release()
	if other.RefCount() != 1 {
		t.Errorf("destroying the dict should release values, got %d", other.RefCount())
	}
	other.Release()
	// The mistyped array above was never inserted and still holds its reference.
	if col.Len() != 1 {
		t.Errorf("Expected 1 live container, got %d", col.Len())
	}
}

func TestComparatorResolution(t *testing.T) {
	f, _ := newTestFactory(t)
	types := f.Types()
	i32 := types.MustLookup("int32")

	t.Run("no method fails at first comparison", func(t *testing.T) {
		d := f.NewDict(types.MustLookup("point"), i32)
		defer d.Release()
		if err := d.Set(point{1, 2}, int32(1)); err != nil {
			t.Fatalf("single Set must not compare: %v", err)
		}
		err := d.Set(point{3, 4}, int32(2))
		if !errors.Is(err, errors.ErrNoComparisonMethod) {
			t.Errorf("Expected no comparison method, got %v", err)
		}
	})

	t.Run("ambiguous", func(t *testing.T) {
		d := f.NewDict(types.MustLookup("twoWay"), i32)
		defer d.Release()
		if err := d.Set(twoWay{1}, int32(1)); err != nil {
			t.Fatal(err)
		}
		err := d.Set(twoWay{2}, int32(2))
		if !errors.Is(err, errors.ErrAmbiguousComparison) {
			t.Errorf("Expected ambiguous comparison, got %v", err)
		}
	})

	t.Run("equals only", func(t *testing.T) {
		c := ComparatorFor(types.MustLookup("eqOnly"))
		eq, err := c.Equal(eqOnly{1}, eqOnly{1})
		if err != nil || !eq {
			t.Errorf("Equal = %v, %v", eq, err)
		}
		if _, err := c.Compare(eqOnly{1}, eqOnly{2}); !errors.Is(err, errors.ErrNoComparisonMethod) {
			t.Errorf("ordering without Compare should fail, got %v", err)
		}

		d := f.NewDict(types.MustLookup("string"), types.MustLookup("eqOnly"))
		defer d.Release()
		_ = d.Set("a", eqOnly{1})
		_ = d.Set("b", eqOnly{2})
		_ = d.Set("c", eqOnly{1})
		if n, err := d.RemoveValues(eqOnly{1}); err != nil || n != 2 {
			t.Errorf("RemoveValues = %d, %v", n, err)
		}
	})

	t.Run("equality falls back to compare", func(t *testing.T) {
		c := ComparatorFor(types.MustLookup("score"))
		eq, err := c.Equal(score{4}, score{4})
		if err != nil || !eq {
			t.Errorf("Equal = %v, %v", eq, err)
		}
	})

	t.Run("cached", func(t *testing.T) {
		first := methodsFor(reflect.TypeOf(score{}))
		if methodsFor(reflect.TypeOf(score{})) != first {
			t.Error("method resolution should be memoized")
		}
	})

	t.Run("raw struct", func(t *testing.T) {
		raw, err := types.RegisterStruct("blob", 2, nil)
		if err != nil {
			t.Fatal(err)
		}
		d := f.NewDict(raw, i32)
		defer d.Release()
		_ = d.Set(RawStruct{2, 0}, int32(1))
		_ = d.Set(RawStruct{1, 0}, int32(2))
		keys := d.Keys()
		defer keys.Release()
		if k, _ := keys.At(0); !reflect.DeepEqual(k, RawStruct{1, 0}) {
			t.Errorf("raw structs should order bytewise, first key %v", k)
		}
	})
}

func TestHandleComparison(t *testing.T) {
	f, _ := newTestFactory(t)
	node := f.Types().MustLookup("Node")
	c := ComparatorFor(node)
	a := f.NewArray(f.Types().MustLookup("int32"))
	defer a.Release()

	if eq, _ := c.Equal(nil, nil); !eq {
		t.Error("two nil handles must be equal")
	}
	if eq, _ := c.Equal(nil, a); eq {
		t.Error("nil and non-nil must differ")
	}
	if eq, _ := c.Equal(a, a); !eq {
		t.Error("identical handles must be equal")
	}
	if n, _ := c.Compare(nil, a); n >= 0 {
		t.Error("nil must sort first")
	}

	critter := ComparatorFor(f.Types().MustLookup("Critter"))
	if n, err := critter.Compare(propbridge.EntityID(2), propbridge.EntityID(9)); err != nil || n >= 0 {
		t.Errorf("entities should order by id, got %d, %v", n, err)
	}
}

func TestGCHooks(t *testing.T) {
	f, _ := newTestFactory(t)
	node := f.Types().MustLookup("Node")
	arr := f.NewArray(node)
	defer arr.Release()

	child := f.NewArray(f.Types().MustLookup("int32"))
	_ = arr.InsertLast(child)
	_ = arr.InsertLast(nil)
	child.Release()

	var seen []any
	arr.EnumReferences(func(ref any) { seen = append(seen, ref) })
	if len(seen) != 1 || seen[0] != any(child) {
		t.Fatalf("EnumReferences visited %v", seen)
	}

	arr.SetGCFlag(true)
	if !arr.GCFlag() {
		t.Error("flag not set")
	}

	arr.ReleaseAllHandles()
	if arr.Len() != 0 {
		t.Error("ReleaseAllHandles should clear the array")
	}
	seen = nil
	arr.EnumReferences(func(ref any) { seen = append(seen, ref) })
	if len(seen) != 0 {
		t.Errorf("nothing should be enumerated after release, got %v", seen)
	}
}

func TestCycleCollection(t *testing.T) {
	f, col := newTestFactory(t)
	node := f.Types().MustLookup("Node")

	d := f.NewDict(f.Types().MustLookup("string"), node)
	arr := f.NewArray(node)
	if err := d.Set("arr", arr); err != nil {
		t.Fatal(err)
	}
	if err := arr.InsertLast(d); err != nil {
		t.Fatal(err)
	}
	d.Release()
	arr.Release()

	if col.Len() != 2 {
		t.Fatalf("cycle should keep both containers alive, got %d", col.Len())
	}
	if n := col.Collect(); n != 2 {
		t.Fatalf("Collect() = %d, want 2", n)
	}
	if col.Len() != 0 {
		t.Errorf("Expected no live containers, got %d", col.Len())
	}
}
