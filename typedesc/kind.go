package typedesc

import "reflect"

// BaseKind classifies a leaf type. Every encode/decode branch switches on it.
type BaseKind uint8

const (
	KindPrimitive BaseKind = iota
	KindEnum
	KindHashedString
	KindStruct
	KindString
	KindEntity
	KindObject
	KindArray
)

var baseKindNames = [...]string{
	KindPrimitive:    "primitive",
	KindEnum:         "enum",
	KindHashedString: "hashed-string",
	KindStruct:       "struct",
	KindString:       "string",
	KindEntity:       "entity",
	KindObject:       "object",
	KindArray:        "array",
}

func (k BaseKind) String() string {
	if int(k) < len(baseKindNames) {
		return baseKindNames[k]
	}
	return "unknown"
}

// PrimitiveKind is the native scalar behind a KindPrimitive base type.
type PrimitiveKind uint8

const (
	Bool PrimitiveKind = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
)

var primitiveNames = [...]string{
	Bool:    "bool",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
}

var primitiveSizes = [...]uint32{
	Bool:    1,
	Int8:    1,
	Int16:   2,
	Int32:   4,
	Int64:   8,
	Uint8:   1,
	Uint16:  2,
	Uint32:  4,
	Uint64:  8,
	Float32: 4,
	Float64: 8,
}

var primitiveGoTypes = [...]reflect.Type{
	Bool:    reflect.TypeFor[bool](),
	Int8:    reflect.TypeFor[int8](),
	Int16:   reflect.TypeFor[int16](),
	Int32:   reflect.TypeFor[int32](),
	Int64:   reflect.TypeFor[int64](),
	Uint8:   reflect.TypeFor[uint8](),
	Uint16:  reflect.TypeFor[uint16](),
	Uint32:  reflect.TypeFor[uint32](),
	Uint64:  reflect.TypeFor[uint64](),
	Float32: reflect.TypeFor[float32](),
	Float64: reflect.TypeFor[float64](),
}

func (p PrimitiveKind) String() string {
	if int(p) < len(primitiveNames) {
		return primitiveNames[p]
	}
	return "unknown"
}

// Size returns the wire width in bytes.
func (p PrimitiveKind) Size() uint32 {
	if int(p) < len(primitiveSizes) {
		return primitiveSizes[p]
	}
	return 0
}

// GoType returns the runtime Go type holding values of p.
func (p PrimitiveKind) GoType() reflect.Type {
	if int(p) < len(primitiveGoTypes) {
		return primitiveGoTypes[p]
	}
	return nil
}

func (p PrimitiveKind) IsSigned() bool {
	return p >= Int8 && p <= Int64
}

func (p PrimitiveKind) IsFloat() bool {
	return p == Float32 || p == Float64
}

// ComplexKind is the composition shape of a property or argument.
type ComplexKind uint8

const (
	Simple ComplexKind = iota
	Array
	Dict
	DictOfArray
	Callback
)

var complexKindNames = [...]string{
	Simple:      "simple",
	Array:       "array",
	Dict:        "dict",
	DictOfArray: "dict-of-array",
	Callback:    "callback",
}

func (k ComplexKind) String() string {
	if int(k) < len(complexKindNames) {
		return complexKindNames[k]
	}
	return "unknown"
}

// HasKey reports whether descriptors of this kind carry a key type.
func (k ComplexKind) HasKey() bool {
	return k == Dict || k == DictOfArray
}
