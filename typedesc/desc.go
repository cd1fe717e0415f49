package typedesc

import (
	"reflect"
	"strings"

	"github.com/wippyai/propbridge/errors"
)

// BaseTypeDesc describes a leaf type. Instances are owned by a Registry and
// shared by pointer; they are never mutated after registration.
type BaseTypeDesc struct {
	// GoType is the runtime Go type for structs. Nil means raw bytes.
	GoType reflect.Type
	// Elem is the element type when Kind is KindArray.
	Elem           *BaseTypeDesc
	Name           string
	Size           uint32
	Kind           BaseKind
	Primitive      PrimitiveKind
	IsGlobalEntity bool
}

func (b *BaseTypeDesc) IsPrimitive() bool     { return b.Kind == KindPrimitive }
func (b *BaseTypeDesc) IsEnum() bool          { return b.Kind == KindEnum }
func (b *BaseTypeDesc) IsHashedString() bool  { return b.Kind == KindHashedString }
func (b *BaseTypeDesc) IsStruct() bool        { return b.Kind == KindStruct }
func (b *BaseTypeDesc) IsString() bool        { return b.Kind == KindString }
func (b *BaseTypeDesc) IsEntity() bool        { return b.Kind == KindEntity }
func (b *BaseTypeDesc) IsArray() bool         { return b.Kind == KindArray }
func (b *BaseTypeDesc) IsObject() bool        { return b.Kind == KindObject }
func (b *BaseTypeDesc) IsVariableSize() bool  { return b.Kind == KindString || b.Kind == KindArray }
func (b *BaseTypeDesc) IsValueObject() bool   { return b.Kind == KindStruct }
func (b *BaseTypeDesc) IsNativeOrdered() bool { return !b.IsRefType() && !b.IsValueObject() }

// IsRefType reports whether values of this type are shared handles rather
// than copied values.
func (b *BaseTypeDesc) IsRefType() bool {
	switch b.Kind {
	case KindEntity, KindObject, KindArray:
		return true
	default:
		return false
	}
}

func (b *BaseTypeDesc) String() string {
	if b == nil {
		return "<nil>"
	}
	return b.Name
}

// ComplexTypeDesc describes the full shape of a property or call argument.
type ComplexTypeDesc struct {
	Base         *BaseTypeDesc
	Key          *BaseTypeDesc
	CallbackArgs []*ComplexTypeDesc
	Kind         ComplexKind
	IsMutable    bool
}

// NewSimple describes a single value of base.
func NewSimple(base *BaseTypeDesc) *ComplexTypeDesc {
	return &ComplexTypeDesc{Kind: Simple, Base: base}
}

// NewArray describes an array of base.
func NewArray(base *BaseTypeDesc) *ComplexTypeDesc {
	return &ComplexTypeDesc{Kind: Array, Base: base}
}

// NewDict describes a dict from key to value.
func NewDict(key, value *BaseTypeDesc) *ComplexTypeDesc {
	return &ComplexTypeDesc{Kind: Dict, Base: value, Key: key}
}

// NewDictOfArray describes a dict from key to arrays of value.
func NewDictOfArray(key, value *BaseTypeDesc) *ComplexTypeDesc {
	return &ComplexTypeDesc{Kind: DictOfArray, Base: value, Key: key}
}

// NewCallback describes a script callback taking args.
func NewCallback(args ...*ComplexTypeDesc) *ComplexTypeDesc {
	return &ComplexTypeDesc{Kind: Callback, Base: callbackBase, CallbackArgs: args}
}

var callbackBase = &BaseTypeDesc{Name: "callback", Kind: KindObject}

// Validate checks the shape invariants: Key iff dict kinds, CallbackArgs iff callback.
func (t *ComplexTypeDesc) Validate() error {
	if t == nil {
		return errors.NilPointer(errors.PhaseRegister, nil, "*ComplexTypeDesc")
	}
	if t.Base == nil {
		return errors.InvalidInput(errors.PhaseRegister, "complex type without base type")
	}
	if t.Kind > Callback {
		return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Detail("unknown complex kind %d", t.Kind).
			Build()
	}
	if t.Kind.HasKey() != (t.Key != nil) {
		return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			TypeName(t.String()).
			Detail("key type must be present exactly for dict kinds").
			Build()
	}
	if t.Kind != Callback && len(t.CallbackArgs) > 0 {
		return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			TypeName(t.String()).
			Detail("callback arguments present on non-callback type").
			Build()
	}
	if t.Key != nil && t.Key.IsArray() {
		return errors.New(errors.PhaseRegister, errors.KindUnsupported).
			TypeName(t.String()).
			Detail("array keys are not supported").
			Build()
	}
	for _, arg := range t.CallbackArgs {
		if err := arg.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// String renders the canonical type expression accepted by Registry.Parse.
func (t *ComplexTypeDesc) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case Array:
		return t.Base.String() + "[]"
	case Dict:
		return "dict<" + t.Key.String() + "," + t.Base.String() + ">"
	case DictOfArray:
		return "dict<" + t.Key.String() + "," + t.Base.String() + "[]>"
	case Callback:
		parts := make([]string, len(t.CallbackArgs))
		for i, a := range t.CallbackArgs {
			parts[i] = a.String()
		}
		return "callback(" + strings.Join(parts, ",") + ")"
	default:
		return t.Base.String()
	}
}

// IsContainer reports whether values of t are runtime containers.
func (t *ComplexTypeDesc) IsContainer() bool {
	switch t.Kind {
	case Array, Dict, DictOfArray:
		return true
	default:
		return false
	}
}
