package codec

import (
	"encoding/binary"
	"math"
	"reflect"
	"strconv"

	"github.com/wippyai/propbridge"
	"github.com/wippyai/propbridge/container"
	"github.com/wippyai/propbridge/errors"
	"github.com/wippyai/propbridge/hashstr"
	"github.com/wippyai/propbridge/typedesc"
	"github.com/wippyai/propbridge/wire"
)

// elemSize returns the wire width of one element of t inside a container,
// and whether that width is fixed.
func elemSize(t *typedesc.BaseTypeDesc) (int, bool) {
	switch t.Kind {
	case typedesc.KindPrimitive, typedesc.KindEnum, typedesc.KindStruct, typedesc.KindEntity:
		return int(t.Size), true
	default:
		return 0, false
	}
}

// minElemSize is the smallest number of bytes one element of t can occupy.
func minElemSize(t *typedesc.BaseTypeDesc) int {
	if n, fixed := elemSize(t); fixed {
		return n
	}
	// u32 length or count prefix
	return 4
}

// writeElem appends v using the container element rule for t.
func (c *Codec) writeElem(w *wire.Writer, t *typedesc.BaseTypeDesc, v any, path []string) error {
	switch t.Kind {
	case typedesc.KindPrimitive:
		return writePrimitive(w, t.Primitive, v, path)
	case typedesc.KindEnum:
		return writeEnum(w, t, v, path)
	case typedesc.KindString:
		s, ok := v.(string)
		if !ok {
			return errors.TypeMismatch(errors.PhaseEncode, path, goTypeName(v), t.Name)
		}
		w.String(s)
		return nil
	case typedesc.KindHashedString:
		hs, ok := v.(hashstr.HString)
		if !ok {
			return errors.TypeMismatch(errors.PhaseEncode, path, goTypeName(v), t.Name)
		}
		w.String(hs.Text)
		return nil
	case typedesc.KindStruct:
		return writeStruct(w, t, v, path)
	case typedesc.KindEntity:
		return writeEntity(w, t, v, path)
	default:
		return errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Path(path...).
			TypeName(t.Name).
			Detail("%s values have no wire encoding", t.Kind).
			Build()
	}
}

// readElem decodes one element of t using the container element rule.
func (c *Codec) readElem(r *wire.Reader, t *typedesc.BaseTypeDesc, path []string) (any, error) {
	switch t.Kind {
	case typedesc.KindPrimitive:
		return readPrimitive(r, t.Primitive)
	case typedesc.KindEnum:
		return readEnum(r, t)
	case typedesc.KindString:
		return r.String(int(c.opts.MaxStringSize))
	case typedesc.KindHashedString:
		s, err := r.String(int(c.opts.MaxStringSize))
		if err != nil {
			return nil, err
		}
		text, hash := c.hashes.ToHashedString(s)
		return hashstr.HString{Text: text, Hash: hash}, nil
	case typedesc.KindStruct:
		b, err := r.Next(int(t.Size))
		if err != nil {
			return nil, err
		}
		return decodeStruct(t, b, path)
	case typedesc.KindEntity:
		id, err := r.Uint(t.Size)
		if err != nil {
			return nil, err
		}
		return c.resolveEntity(id, path)
	default:
		return nil, errors.New(errors.PhaseDecode, errors.KindUnsupported).
			Path(path...).
			TypeName(t.Name).
			Detail("%s values have no wire encoding", t.Kind).
			Build()
	}
}

func writePrimitive(w *wire.Writer, p typedesc.PrimitiveKind, v any, path []string) error {
	ok := true
	switch p {
	case typedesc.Bool:
		var b bool
		if b, ok = v.(bool); ok {
			if b {
				w.U8(1)
			} else {
				w.U8(0)
			}
		}
	case typedesc.Int8:
		var x int8
		if x, ok = v.(int8); ok {
			w.U8(uint8(x))
		}
	case typedesc.Int16:
		var x int16
		if x, ok = v.(int16); ok {
			w.U16(uint16(x))
		}
	case typedesc.Int32:
		var x int32
		if x, ok = v.(int32); ok {
			w.U32(uint32(x))
		}
	case typedesc.Int64:
		var x int64
		if x, ok = v.(int64); ok {
			w.U64(uint64(x))
		}
	case typedesc.Uint8:
		var x uint8
		if x, ok = v.(uint8); ok {
			w.U8(x)
		}
	case typedesc.Uint16:
		var x uint16
		if x, ok = v.(uint16); ok {
			w.U16(x)
		}
	case typedesc.Uint32:
		var x uint32
		if x, ok = v.(uint32); ok {
			w.U32(x)
		}
	case typedesc.Uint64:
		var x uint64
		if x, ok = v.(uint64); ok {
			w.U64(x)
		}
	case typedesc.Float32:
		var x float32
		if x, ok = v.(float32); ok {
			w.F32(x)
		}
	case typedesc.Float64:
		var x float64
		if x, ok = v.(float64); ok {
			w.F64(x)
		}
	default:
		return errors.Unsupported(errors.PhaseEncode, "primitive "+p.String())
	}
	if !ok {
		return errors.TypeMismatch(errors.PhaseEncode, path, goTypeName(v), p.String())
	}
	return nil
}

func readPrimitive(r *wire.Reader, p typedesc.PrimitiveKind) (any, error) {
	switch p {
	case typedesc.Bool:
		b, err := r.U8()
		return b != 0, err
	case typedesc.Int8:
		b, err := r.U8()
		return int8(b), err
	case typedesc.Int16:
		v, err := r.U16()
		return int16(v), err
	case typedesc.Int32:
		v, err := r.U32()
		return int32(v), err
	case typedesc.Int64:
		v, err := r.U64()
		return int64(v), err
	case typedesc.Uint8:
		return r.U8()
	case typedesc.Uint16:
		return r.U16()
	case typedesc.Uint32:
		return r.U32()
	case typedesc.Uint64:
		return r.U64()
	case typedesc.Float32:
		return r.F32()
	case typedesc.Float64:
		return r.F64()
	default:
		return nil, errors.Unsupported(errors.PhaseDecode, "primitive "+p.String())
	}
}

func writeEnum(w *wire.Writer, t *typedesc.BaseTypeDesc, v any, path []string) error {
	x, ok := v.(int32)
	if !ok {
		return errors.TypeMismatch(errors.PhaseEncode, path, goTypeName(v), t.Name)
	}
	switch t.Size {
	case 1, 2:
		if x < 0 || uint64(x) >= 1<<(8*t.Size) {
			return errors.Overflow(errors.PhaseEncode, path, x, t.Name+" ("+strconv.Itoa(int(t.Size))+" bytes)")
		}
	case 4:
	default:
		return errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Path(path...).
			TypeName(t.Name).
			Detail("enum width %d", t.Size).
			Build()
	}
	w.Uint(uint64(uint32(x)), t.Size)
	return nil
}

func readEnum(r *wire.Reader, t *typedesc.BaseTypeDesc) (any, error) {
	switch t.Size {
	case 1, 2, 4:
	default:
		return nil, errors.New(errors.PhaseDecode, errors.KindUnsupported).
			TypeName(t.Name).
			Detail("enum width %d", t.Size).
			Build()
	}
	v, err := r.Uint(t.Size)
	if err != nil {
		return nil, err
	}
	return int32(uint32(v)), nil
}

func writeStruct(w *wire.Writer, t *typedesc.BaseTypeDesc, v any, path []string) error {
	if t.GoType == nil {
		raw, ok := v.(container.RawStruct)
		if !ok {
			return errors.TypeMismatch(errors.PhaseEncode, path, goTypeName(v), t.Name)
		}
		if uint32(len(raw)) != t.Size {
			return errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
				Path(path...).
				TypeName(t.Name).
				Detail("raw struct has %d bytes, want %d", len(raw), t.Size).
				Build()
		}
		w.WriteBytes(raw)
		return nil
	}
	if v == nil || reflect.TypeOf(v) != t.GoType {
		return errors.TypeMismatch(errors.PhaseEncode, path, goTypeName(v), t.Name)
	}
	b, err := binary.Append(nil, binary.LittleEndian, v)
	if err != nil {
		return errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
			Path(path...).
			GoType(t.GoType.String()).
			TypeName(t.Name).
			Cause(err).
			Build()
	}
	w.WriteBytes(b)
	return nil
}

func decodeStruct(t *typedesc.BaseTypeDesc, b []byte, path []string) (any, error) {
	if t.GoType == nil {
		return append(container.RawStruct(nil), b...), nil
	}
	ptr := reflect.New(t.GoType)
	if _, err := binary.Decode(b, binary.LittleEndian, ptr.Interface()); err != nil {
		return nil, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
			Path(path...).
			GoType(t.GoType.String()).
			TypeName(t.Name).
			Cause(err).
			Build()
	}
	return ptr.Elem().Interface(), nil
}

func writeEntity(w *wire.Writer, t *typedesc.BaseTypeDesc, v any, path []string) error {
	if v == nil {
		w.Uint(0, t.Size)
		return nil
	}
	ref, ok := v.(propbridge.EntityRef)
	if !ok {
		return errors.TypeMismatch(errors.PhaseEncode, path, goTypeName(v), t.Name)
	}
	id := ref.EntityID()
	if t.Size == 4 && id > math.MaxUint32 {
		return errors.Overflow(errors.PhaseEncode, path, id, t.Name)
	}
	w.Uint(id, t.Size)
	return nil
}

// resolveEntity maps a wire id to a reference. Id zero is the nil handle.
func (c *Codec) resolveEntity(id uint64, path []string) (any, error) {
	if id == 0 {
		return nil, nil
	}
	if c.entities == nil {
		return propbridge.EntityID(id), nil
	}
	ref, err := c.entities.ResolveEntity(id)
	if err != nil {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidInput).
			Path(path...).
			Value(id).
			Detail("unresolvable entity").
			Cause(err).
			Build()
	}
	return ref, nil
}

func goTypeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}

func indexPath(path []string, i int) []string {
	return append(path[:len(path):len(path)], "["+strconv.Itoa(i)+"]")
}
