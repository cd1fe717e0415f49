package codec

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"reflect"

	"github.com/wippyai/propbridge"
	"github.com/wippyai/propbridge/container"
	"github.com/wippyai/propbridge/errors"
	"github.com/wippyai/propbridge/hashstr"
	"github.com/wippyai/propbridge/typedesc"
)

// FromNative converts a plain Go value into the runtime value of t. Numbers
// are coerced with range checks, so JSON decoded input works. Slices become
// arrays and maps become dicts; the caller owns the returned container.
func (c *Codec) FromNative(t *typedesc.ComplexTypeDesc, v any) (any, error) {
	switch t.Kind {
	case typedesc.Simple:
		return c.fromNativeElem(t.Base, v, nil)
	case typedesc.Array:
		return c.fromNativeArray(t.Base, v, nil)
	case typedesc.Dict, typedesc.DictOfArray:
		return c.fromNativeDict(t, v)
	default:
		return nil, errors.Unsupported(errors.PhaseEncode, t.Kind.String()+" values")
	}
}

func (c *Codec) fromNativeArray(elem *typedesc.BaseTypeDesc, v any, path []string) (*container.Array, error) {
	if arr, ok := v.(*container.Array); ok && arr != nil {
		arr.AddRef()
		return arr, nil
	}
	arr := c.factory.NewArray(elem)
	if v == nil {
		return arr, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		arr.Release()
		return nil, errors.TypeMismatch(errors.PhaseEncode, path, goTypeName(v), elem.Name+"[]")
	}
	arr.Reserve(rv.Len())
	for i := 0; i < rv.Len(); i++ {
		item, err := c.fromNativeElem(elem, rv.Index(i).Interface(), indexPath(path, i))
		if err == nil {
			err = arr.InsertLast(item)
		}
		if err != nil {
			arr.Release()
			return nil, err
		}
	}
	return arr, nil
}

func (c *Codec) fromNativeDict(t *typedesc.ComplexTypeDesc, v any) (*container.Dict, error) {
	if d, ok := v.(*container.Dict); ok && d != nil {
		d.AddRef()
		return d, nil
	}
	var d *container.Dict
	if t.Kind == typedesc.DictOfArray {
		d = c.factory.NewDictOfArray(t.Key, t.Base)
	} else {
		d = c.factory.NewDict(t.Key, t.Base)
	}
	if v == nil {
		return d, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		d.Release()
		return nil, errors.TypeMismatch(errors.PhaseEncode, nil, goTypeName(v), t.String())
	}

	iter := rv.MapRange()
	for iter.Next() {
		path := []string{formatKey(iter.Key().Interface())}
		k, err := c.fromNativeElem(t.Key, iter.Key().Interface(), path)
		if err != nil {
			d.Release()
			return nil, err
		}
		var val any
		if t.Kind == typedesc.DictOfArray {
			var arr *container.Array
			arr, err = c.fromNativeArray(t.Base, iter.Value().Interface(), path)
			if err == nil {
				err = d.Set(k, arr)
				arr.Release()
			}
		} else {
			val, err = c.fromNativeElem(t.Base, iter.Value().Interface(), path)
			if err == nil {
				err = d.Set(k, val)
			}
		}
		if err != nil {
			d.Release()
			return nil, err
		}
	}
	return d, nil
}

func (c *Codec) fromNativeElem(t *typedesc.BaseTypeDesc, v any, path []string) (any, error) {
	switch t.Kind {
	case typedesc.KindPrimitive:
		return convertPrimitive(t.Primitive, v, path)
	case typedesc.KindEnum:
		n, ok := coerceInt64(v)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseEncode, path, goTypeName(v), t.Name)
		}
		if n < 0 || n > math.MaxUint32 || (t.Size < 4 && n >= 1<<(8*t.Size)) {
			return nil, errors.Overflow(errors.PhaseEncode, path, v, t.Name)
		}
		return int32(uint32(n)), nil
	case typedesc.KindString:
		s, ok := v.(string)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseEncode, path, goTypeName(v), t.Name)
		}
		return s, nil
	case typedesc.KindHashedString:
		switch x := v.(type) {
		case hashstr.HString:
			if x.Text != "" {
				x.Text, x.Hash = c.hashes.ToHashedString(x.Text)
			}
			return x, nil
		case string:
			text, hash := c.hashes.ToHashedString(x)
			return hashstr.HString{Text: text, Hash: hash}, nil
		}
		return nil, errors.TypeMismatch(errors.PhaseEncode, path, goTypeName(v), t.Name)
	case typedesc.KindStruct:
		return fromNativeStruct(t, v, path)
	case typedesc.KindEntity:
		if v == nil {
			return nil, nil
		}
		if ref, ok := v.(propbridge.EntityRef); ok {
			return ref, nil
		}
		id, ok := coerceUint64(v)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseEncode, path, goTypeName(v), t.Name)
		}
		if id == 0 {
			return nil, nil
		}
		return propbridge.EntityID(id), nil
	default:
		if err := container.CheckElement(t, v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func fromNativeStruct(t *typedesc.BaseTypeDesc, v any, path []string) (any, error) {
	if t.GoType == nil {
		switch x := v.(type) {
		case container.RawStruct:
			if uint32(len(x)) == t.Size {
				return x, nil
			}
		case []byte:
			if uint32(len(x)) == t.Size {
				return container.RawStruct(x), nil
			}
		case string:
			// JSON renders raw structs as base64.
			b, err := base64.StdEncoding.DecodeString(x)
			if err == nil && uint32(len(b)) == t.Size {
				return container.RawStruct(b), nil
			}
		}
		return nil, errors.TypeMismatch(errors.PhaseEncode, path, goTypeName(v), t.Name)
	}

	rv := reflect.ValueOf(v)
	switch {
	case v == nil:
		return nil, errors.NilPointer(errors.PhaseEncode, path, t.GoType.String())
	case rv.Type() == t.GoType:
		return v, nil
	case rv.Kind() == reflect.Pointer && rv.Type().Elem() == t.GoType:
		if rv.IsNil() {
			return nil, errors.NilPointer(errors.PhaseEncode, path, t.GoType.String())
		}
		return rv.Elem().Interface(), nil
	case rv.Kind() == reflect.Map:
		// Field maps (e.g. from JSON) go through encoding/json.
		b, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseEncode, errors.KindTypeMismatch, err, "struct "+t.Name)
		}
		ptr := reflect.New(t.GoType)
		if err := json.Unmarshal(b, ptr.Interface()); err != nil {
			return nil, errors.Wrap(errors.PhaseEncode, errors.KindTypeMismatch, err, "struct "+t.Name)
		}
		return ptr.Elem().Interface(), nil
	}
	return nil, errors.TypeMismatch(errors.PhaseEncode, path, goTypeName(v), t.Name)
}

func convertPrimitive(p typedesc.PrimitiveKind, v any, path []string) (any, error) {
	fail := func() (any, error) {
		return nil, errors.Overflow(errors.PhaseEncode, path, v, p.String())
	}
	switch p {
	case typedesc.Bool:
		b, ok := coerceBool(v)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseEncode, path, goTypeName(v), p.String())
		}
		return b, nil
	case typedesc.Float32:
		f, ok := coerceFloat64(v)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseEncode, path, goTypeName(v), p.String())
		}
		if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return fail()
		}
		return float32(f), nil
	case typedesc.Float64:
		f, ok := coerceFloat64(v)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseEncode, path, goTypeName(v), p.String())
		}
		return f, nil
	}

	if !p.IsSigned() {
		n, ok := coerceUint64(v)
		if !ok {
			if _, neg := coerceInt64(v); neg {
				return fail()
			}
			return nil, errors.TypeMismatch(errors.PhaseEncode, path, goTypeName(v), p.String())
		}
		if p.Size() < 8 && n >= 1<<(8*p.Size()) {
			return fail()
		}
		switch p {
		case typedesc.Uint8:
			return uint8(n), nil
		case typedesc.Uint16:
			return uint16(n), nil
		case typedesc.Uint32:
			return uint32(n), nil
		default:
			return n, nil
		}
	}

	n, ok := coerceInt64(v)
	if !ok {
		if _, big := coerceUint64(v); big {
			return fail()
		}
		return nil, errors.TypeMismatch(errors.PhaseEncode, path, goTypeName(v), p.String())
	}
	if p.Size() < 8 {
		limit := int64(1) << (8*p.Size() - 1)
		if n < -limit || n >= limit {
			return fail()
		}
	}
	switch p {
	case typedesc.Int8:
		return int8(n), nil
	case typedesc.Int16:
		return int16(n), nil
	case typedesc.Int32:
		return int32(n), nil
	default:
		return n, nil
	}
}

// ToNative converts a runtime value of t into plain Go values: arrays become
// typed slices, dicts become maps, hashed strings become their text and
// entities their ids.
func (c *Codec) ToNative(t *typedesc.ComplexTypeDesc, v any) (any, error) {
	switch t.Kind {
	case typedesc.Simple:
		return toNativeElem(t.Base, v), nil
	case typedesc.Array:
		arr, ok := v.(*container.Array)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseEncode, nil, goTypeName(v), t.String())
		}
		return toNativeSlice(t.Base, arr).Interface(), nil
	case typedesc.Dict, typedesc.DictOfArray:
		d, ok := v.(*container.Dict)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseEncode, nil, goTypeName(v), t.String())
		}
		kt := nativeType(t.Key)
		if !kt.Comparable() {
			return nil, errors.New(errors.PhaseEncode, errors.KindUnsupported).
				TypeName(t.String()).
				Detail("key type %s cannot be a Go map key", kt).
				Build()
		}
		vt := nativeType(t.Base)
		if t.Kind == typedesc.DictOfArray {
			vt = reflect.SliceOf(vt)
		}
		m := reflect.MakeMapWithSize(reflect.MapOf(kt, vt), d.Len())
		d.Each(func(key, value any) bool {
			var nv reflect.Value
			if t.Kind == typedesc.DictOfArray {
				arr, _ := value.(*container.Array)
				nv = toNativeSlice(t.Base, arr)
			} else {
				nv = nativeValue(vt, toNativeElem(t.Base, value))
			}
			m.SetMapIndex(nativeValue(kt, toNativeElem(t.Key, key)), nv)
			return true
		})
		return m.Interface(), nil
	default:
		return nil, errors.Unsupported(errors.PhaseEncode, t.Kind.String()+" values")
	}
}

var anyType = reflect.TypeFor[any]()

// nativeType is the Go type ToNative produces for elements of t.
func nativeType(t *typedesc.BaseTypeDesc) reflect.Type {
	switch t.Kind {
	case typedesc.KindHashedString:
		return reflect.TypeFor[string]()
	case typedesc.KindEntity:
		return reflect.TypeFor[uint64]()
	case typedesc.KindStruct:
		if t.GoType == nil {
			return reflect.TypeFor[[]byte]()
		}
		return t.GoType
	case typedesc.KindObject, typedesc.KindArray:
		return anyType
	default:
		return container.RuntimeType(t)
	}
}

func toNativeElem(t *typedesc.BaseTypeDesc, v any) any {
	switch x := v.(type) {
	case hashstr.HString:
		return x.Text
	case container.RawStruct:
		return []byte(x)
	case propbridge.EntityRef:
		if t.IsEntity() {
			return x.EntityID()
		}
	}
	if t.IsEntity() && v == nil {
		return uint64(0)
	}
	return v
}

func toNativeSlice(elem *typedesc.BaseTypeDesc, arr *container.Array) reflect.Value {
	et := nativeType(elem)
	if arr == nil {
		return reflect.MakeSlice(reflect.SliceOf(et), 0, 0)
	}
	s := reflect.MakeSlice(reflect.SliceOf(et), arr.Len(), arr.Len())
	arr.Each(func(i int, item any) bool {
		s.Index(i).Set(nativeValue(et, toNativeElem(elem, item)))
		return true
	})
	return s
}

func nativeValue(t reflect.Type, v any) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	rv := reflect.ValueOf(v)
	if t == anyType {
		out := reflect.New(anyType).Elem()
		out.Set(rv)
		return out
	}
	return rv
}

func formatKey(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	b, err := json.Marshal(k)
	if err != nil {
		return goTypeName(k)
	}
	return string(b)
}
