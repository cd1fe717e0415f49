package typedesc

import (
	"reflect"
	"testing"

	"github.com/wippyai/propbridge/errors"
)

type vec3 struct {
	X, Y, Z float32
}

func TestKindNames(t *testing.T) {
	if KindHashedString.String() != "hashed-string" {
		t.Errorf("KindHashedString = %q", KindHashedString.String())
	}
	if BaseKind(200).String() != "unknown" {
		t.Error("out of range base kind should be unknown")
	}
	if DictOfArray.String() != "dict-of-array" {
		t.Errorf("DictOfArray = %q", DictOfArray.String())
	}
	if Uint16.Size() != 2 || Float64.Size() != 8 || Bool.Size() != 1 {
		t.Error("unexpected primitive sizes")
	}
	if !Int8.IsSigned() || Uint8.IsSigned() || !Float32.IsFloat() {
		t.Error("unexpected primitive classification")
	}
}

func TestBuiltins(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"bool", "int8", "int32", "uint64", "float32", "string", "hstring", "hstring32"} {
		if _, ok := r.Lookup(name); !ok {
			t.Errorf("builtin %q missing", name)
		}
	}

	i32 := r.MustLookup("int32")
	if !i32.IsPrimitive() || i32.Size != 4 || i32.IsRefType() {
		t.Errorf("int32 = %+v", i32)
	}
	if r.MustLookup("hstring32").Size != 4 {
		t.Error("hstring32 should be 4 bytes wide")
	}
}

func TestRegister(t *testing.T) {
	t.Run("enum widths", func(t *testing.T) {
		r := NewRegistry()
		for _, size := range []uint32{1, 2, 4} {
			if _, err := r.RegisterEnum("E"+string(rune('0'+size)), size); err != nil {
				t.Errorf("width %d: %v", size, err)
			}
		}
		_, err := r.RegisterEnum("Bad", 3)
		if !errors.IsKind(err, errors.KindUnsupported) {
			t.Errorf("width 3 should be unsupported, got %v", err)
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		r := NewRegistry()
		if _, err := r.RegisterObject("Item"); err != nil {
			t.Fatal(err)
		}
		_, err := r.RegisterObject("Item")
		if !errors.IsKind(err, errors.KindRegistration) {
			t.Errorf("expected registration error, got %v", err)
		}
	})

	t.Run("struct with go type", func(t *testing.T) {
		r := NewRegistry()
		desc, err := r.RegisterStruct("vec3", 12, reflect.TypeOf(vec3{}))
		if err != nil {
			t.Fatal(err)
		}
		if !desc.IsStruct() || !desc.IsValueObject() || desc.IsNativeOrdered() {
			t.Errorf("unexpected classification %+v", desc)
		}
		_, err = r.RegisterStruct("vec3bad", 16, reflect.TypeOf(vec3{}))
		if !errors.IsKind(err, errors.KindTypeMismatch) {
			t.Errorf("size mismatch should fail, got %v", err)
		}
	})

	t.Run("entity", func(t *testing.T) {
		r := NewRegistry()
		desc, err := r.RegisterEntity("Critter", false)
		if err != nil {
			t.Fatal(err)
		}
		if !desc.IsEntity() || !desc.IsRefType() || desc.Size != 8 {
			t.Errorf("unexpected entity desc %+v", desc)
		}
	})

	t.Run("empty name", func(t *testing.T) {
		r := NewRegistry()
		if err := r.Register(&BaseTypeDesc{Kind: KindString}); err == nil {
			t.Error("empty name should fail")
		}
	})
}

func TestArrayOf(t *testing.T) {
	r := NewRegistry()
	i32 := r.MustLookup("int32")
	a := r.ArrayOf(i32)
	if a != r.ArrayOf(i32) {
		t.Error("ArrayOf should be cached")
	}
	if a.Name != "int32[]" || !a.IsArray() || !a.IsRefType() || a.Elem != i32 {
		t.Errorf("unexpected array desc %+v", a)
	}
}

func TestParse(t *testing.T) {
	r := NewRegistry()
	if _, err := r.RegisterEnum("Dir", 1); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		expr string
		kind ComplexKind
		base string
		key  string
		want string
	}{
		{"int32", Simple, "int32", "", "int32"},
		{" string[] ", Array, "string", "", "string[]"},
		{"dict<string,int32>", Dict, "int32", "string", "dict<string,int32>"},
		{"dict< string , int32[] >", DictOfArray, "int32", "string", "dict<string,int32[]>"},
		{"Dir[]", Array, "Dir", "", "Dir[]"},
		{"callback(int32,dict<string,Dir>)", Callback, "callback", "", "callback(int32,dict<string,Dir>)"},
		{"callback()", Callback, "callback", "", "callback()"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := r.Parse(tt.expr)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if got.Base.Name != tt.base {
				t.Errorf("Base = %v, want %v", got.Base.Name, tt.base)
			}
			if tt.key != "" && (got.Key == nil || got.Key.Name != tt.key) {
				t.Errorf("Key = %v, want %v", got.Key, tt.key)
			}
			if got.String() != tt.want {
				t.Errorf("String() = %q, want %q", got.String(), tt.want)
			}
			// String output must parse back to the same shape.
			again, err := r.Parse(got.String())
			if err != nil || again.String() != got.String() {
				t.Errorf("reparse of %q failed: %v", got.String(), err)
			}
		})
	}

	t.Run("mutable", func(t *testing.T) {
		got := r.MustParse("mutable int32[]")
		if !got.IsMutable || got.Kind != Array {
			t.Errorf("unexpected %+v", got)
		}
	})

	bad := []string{"", "nope", "dict<string>", "dict<string,int32", "int32[][]", "callback(int32", "dict<int32[],int32>"}
	for _, expr := range bad {
		t.Run("bad/"+expr, func(t *testing.T) {
			if _, err := r.Parse(expr); err == nil {
				t.Errorf("Parse(%q) should fail", expr)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	r := NewRegistry()
	i32 := r.MustLookup("int32")

	if err := NewDict(i32, i32).Validate(); err != nil {
		t.Errorf("valid dict: %v", err)
	}
	if err := (&ComplexTypeDesc{Kind: Dict, Base: i32}).Validate(); err == nil {
		t.Error("dict without key should fail")
	}
	if err := (&ComplexTypeDesc{Kind: Array, Base: i32, Key: i32}).Validate(); err == nil {
		t.Error("array with key should fail")
	}
	if err := (&ComplexTypeDesc{Kind: Simple, Base: i32, CallbackArgs: []*ComplexTypeDesc{NewSimple(i32)}}).Validate(); err == nil {
		t.Error("callback args on simple should fail")
	}
	if err := (&ComplexTypeDesc{Kind: Simple}).Validate(); err == nil {
		t.Error("missing base should fail")
	}
	if !NewArray(i32).IsContainer() || NewSimple(i32).IsContainer() {
		t.Error("IsContainer misclassified")
	}
}
