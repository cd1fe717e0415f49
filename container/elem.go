package container

import (
	"bytes"
	"reflect"

	"github.com/wippyai/propbridge"
	"github.com/wippyai/propbridge/errors"
	"github.com/wippyai/propbridge/hashstr"
	"github.com/wippyai/propbridge/typedesc"
)

// RawStruct carries a struct value whose Go type is not registered. It
// orders bytewise.
type RawStruct []byte

func (s RawStruct) Compare(other RawStruct) int { return bytes.Compare(s, other) }
func (s RawStruct) Equals(other RawStruct) bool { return bytes.Equal(s, other) }

var (
	int32Type      = reflect.TypeFor[int32]()
	stringType     = reflect.TypeFor[string]()
	hstringType    = reflect.TypeFor[hashstr.HString]()
	rawStructType  = reflect.TypeFor[RawStruct]()
	entityRefType  = reflect.TypeFor[propbridge.EntityRef]()
	refCountedType = reflect.TypeFor[propbridge.RefCounted]()
	arrayPtrType   = reflect.TypeFor[*Array]()
)

// RuntimeType returns the Go type that holds values of t inside containers
// and call argument lists. Interface types are returned for handles.
func RuntimeType(t *typedesc.BaseTypeDesc) reflect.Type {
	switch t.Kind {
	case typedesc.KindPrimitive:
		return t.Primitive.GoType()
	case typedesc.KindEnum:
		return int32Type
	case typedesc.KindString:
		return stringType
	case typedesc.KindHashedString:
		return hstringType
	case typedesc.KindStruct:
		if t.GoType != nil {
			return t.GoType
		}
		return rawStructType
	case typedesc.KindEntity:
		return entityRefType
	case typedesc.KindObject:
		return refCountedType
	case typedesc.KindArray:
		return arrayPtrType
	default:
		return nil
	}
}

// CreateElement returns the default value of t. Array elements get a fresh
// empty array from f.
func (f *Factory) CreateElement(t *typedesc.BaseTypeDesc) any {
	switch t.Kind {
	case typedesc.KindPrimitive:
		return reflect.Zero(t.Primitive.GoType()).Interface()
	case typedesc.KindEnum:
		return int32(0)
	case typedesc.KindString:
		return ""
	case typedesc.KindHashedString:
		return hashstr.HString{}
	case typedesc.KindStruct:
		if t.GoType != nil {
			return reflect.Zero(t.GoType).Interface()
		}
		return make(RawStruct, t.Size)
	case typedesc.KindArray:
		return f.NewArray(t.Elem)
	default:
		// entity and object handles default to nil
		return nil
	}
}

// CopyElement returns the copy of v a container stores. Handles gain a
// reference; raw struct bytes are duplicated.
func CopyElement(t *typedesc.BaseTypeDesc, v any) any {
	if v == nil {
		return nil
	}
	switch {
	case t.IsRefType():
		if rc, ok := v.(propbridge.RefCounted); ok {
			rc.AddRef()
		}
		return v
	case t.IsStruct():
		if raw, ok := v.(RawStruct); ok {
			return append(RawStruct(nil), raw...)
		}
		return v
	default:
		return v
	}
}

// DestroyElement releases whatever v holds. Only handles own anything.
func DestroyElement(t *typedesc.BaseTypeDesc, v any) {
	if v == nil || !t.IsRefType() {
		return
	}
	if rc, ok := v.(propbridge.RefCounted); ok {
		rc.Release()
	}
}

// CheckElement verifies that v is a valid runtime value for t.
func CheckElement(t *typedesc.BaseTypeDesc, v any) error {
	switch t.Kind {
	case typedesc.KindEntity:
		if v == nil {
			return nil
		}
		if _, ok := v.(propbridge.EntityRef); ok {
			return nil
		}
	case typedesc.KindObject:
		if v == nil {
			return nil
		}
		if _, ok := v.(propbridge.RefCounted); ok {
			return nil
		}
	case typedesc.KindArray:
		if v == nil {
			return nil
		}
		if arr, ok := v.(*Array); ok {
			if arr == nil {
				return errors.NilPointer(errors.PhaseContainer, nil, "*container.Array")
			}
			if arr.elem == t.Elem || arr.elem.Name == t.Elem.Name {
				return nil
			}
			return errors.New(errors.PhaseContainer, errors.KindTypeMismatch).
				GoType(arr.elem.Name + "[]").
				TypeName(t.Name).
				Build()
		}
	case typedesc.KindHashedString:
		if h, ok := v.(hashstr.HString); ok {
			if err := checkHashed(h); err != nil {
				return errors.New(errors.PhaseContainer, errors.KindTypeMismatch).
					TypeName(t.Name).
					Cause(err).
					Build()
			}
			return nil
		}
	case typedesc.KindStruct:
		if raw, ok := v.(RawStruct); ok && t.GoType == nil {
			if uint32(len(raw)) == t.Size {
				return nil
			}
			return errors.New(errors.PhaseContainer, errors.KindTypeMismatch).
				TypeName(t.Name).
				Detail("raw struct has %d bytes, want %d", len(raw), t.Size).
				Build()
		}
		if v != nil && reflect.TypeOf(v) == RuntimeType(t) {
			return nil
		}
	default:
		if v != nil && reflect.TypeOf(v) == RuntimeType(t) {
			return nil
		}
	}
	return errors.TypeMismatch(errors.PhaseContainer, nil, goTypeName(v), t.Name)
}

func goTypeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
