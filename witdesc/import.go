package witdesc

import (
	"reflect"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/propbridge/errors"
	"github.com/wippyai/propbridge/typedesc"
)

// Options controls an Importer.
type Options struct {
	// StructTypes binds record names to Go types. Records without an
	// entry are carried as raw bytes.
	StructTypes map[string]reflect.Type
	// GlobalEntities lists resource names registered as global entities.
	GlobalEntities map[string]bool
}

// Importer maps WIT types onto descriptors, registering named records,
// enums and resources into a registry. Not safe for concurrent use.
type Importer struct {
	types  *typedesc.Registry
	layout *layoutCalc
	named  map[*wit.TypeDef]*typedesc.BaseTypeDesc
	opts   Options
}

func NewImporter(types *typedesc.Registry, opts Options) *Importer {
	if types == nil {
		types = typedesc.NewRegistry()
	}
	return &Importer{
		types:  types,
		layout: newLayoutCalc(),
		named:  make(map[*wit.TypeDef]*typedesc.BaseTypeDesc),
		opts:   opts,
	}
}

// Types returns the registry the importer registers into.
func (im *Importer) Types() *typedesc.Registry { return im.types }

// ParseBase maps a WIT primitive type name such as "s32" or "string".
func (im *Importer) ParseBase(name string) (*typedesc.BaseTypeDesc, error) {
	t, err := wit.ParseType(name)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRegister, errors.KindInvalidInput, err, "wit type "+name)
	}
	return im.Base(t)
}

// Complex maps t to the descriptor of a property or call argument.
func (im *Importer) Complex(t wit.Type) (*typedesc.ComplexTypeDesc, error) {
	elem, ok := listElem(t)
	if !ok {
		base, err := im.Base(t)
		if err != nil {
			return nil, err
		}
		return typedesc.NewSimple(base), nil
	}

	if pair, ok := tupleTypes(elem); ok && len(pair) == 2 {
		key, err := im.Base(pair[0])
		if err != nil {
			return nil, err
		}
		if inner, ok := listElem(pair[1]); ok {
			val, err := im.Base(inner)
			if err != nil {
				return nil, err
			}
			return typedesc.NewDictOfArray(key, val), nil
		}
		val, err := im.Base(pair[1])
		if err != nil {
			return nil, err
		}
		return typedesc.NewDict(key, val), nil
	}

	base, err := im.Base(elem)
	if err != nil {
		return nil, err
	}
	return typedesc.NewArray(base), nil
}

// Base maps a non-list WIT type to a base type.
func (im *Importer) Base(t wit.Type) (*typedesc.BaseTypeDesc, error) {
	switch typ := t.(type) {
	case wit.Bool:
		return im.types.MustLookup("bool"), nil
	case wit.S8:
		return im.types.MustLookup("int8"), nil
	case wit.S16:
		return im.types.MustLookup("int16"), nil
	case wit.S32:
		return im.types.MustLookup("int32"), nil
	case wit.S64:
		return im.types.MustLookup("int64"), nil
	case wit.U8:
		return im.types.MustLookup("uint8"), nil
	case wit.U16:
		return im.types.MustLookup("uint16"), nil
	case wit.U32, wit.Char:
		return im.types.MustLookup("uint32"), nil
	case wit.U64:
		return im.types.MustLookup("uint64"), nil
	case wit.F32:
		return im.types.MustLookup("float32"), nil
	case wit.F64:
		return im.types.MustLookup("float64"), nil
	case wit.String:
		return im.types.MustLookup("string"), nil
	case *wit.TypeDef:
		return im.typeDef(typ)
	}
	return nil, unsupported(t, "no base type mapping")
}

func (im *Importer) typeDef(td *wit.TypeDef) (*typedesc.BaseTypeDesc, error) {
	if desc, ok := im.named[td]; ok {
		return desc, nil
	}

	var (
		desc *typedesc.BaseTypeDesc
		err  error
	)
	switch kind := td.Kind.(type) {
	case *wit.Record:
		desc, err = im.record(td)
	case *wit.Enum:
		desc, err = im.register(td, &typedesc.BaseTypeDesc{
			Kind: typedesc.KindEnum,
			Size: discriminantSize(len(kind.Cases)),
		})
	case *wit.Own:
		desc, err = im.resource(kind.Type)
	case *wit.Borrow:
		desc, err = im.resource(kind.Type)
	case *wit.List:
		return nil, unsupported(td, "nested lists are not supported")
	case wit.Type:
		// alias
		desc, err = im.Base(kind)
	default:
		return nil, unsupported(td, "no base type mapping")
	}
	if err != nil {
		return nil, err
	}
	im.named[td] = desc
	return desc, nil
}

func (im *Importer) record(td *wit.TypeDef) (*typedesc.BaseTypeDesc, error) {
	name := typeDefName(td)
	if name == "" {
		return nil, unsupported(td, "anonymous records cannot be registered")
	}
	info, err := im.layout.calculate(td)
	if err != nil {
		return nil, errors.New(errors.PhaseRegister, errors.KindUnsupported).
			TypeName(name).
			Detail("record fields must have a fixed size").
			Cause(err).
			Build()
	}
	if info.Size == 0 {
		return nil, unsupported(td, "empty records have no wire form")
	}
	return im.register(td, &typedesc.BaseTypeDesc{
		Kind:   typedesc.KindStruct,
		Size:   info.Size,
		GoType: im.opts.StructTypes[name],
	})
}

func (im *Importer) resource(td *wit.TypeDef) (*typedesc.BaseTypeDesc, error) {
	if td == nil {
		return nil, errors.NilPointer(errors.PhaseRegister, nil, "*wit.TypeDef")
	}
	if desc, ok := im.named[td]; ok {
		return desc, nil
	}
	name := typeDefName(td)
	desc, err := im.register(td, &typedesc.BaseTypeDesc{
		Kind:           typedesc.KindEntity,
		Size:           8,
		IsGlobalEntity: im.opts.GlobalEntities[name],
	})
	if err != nil {
		return nil, err
	}
	im.named[td] = desc
	return desc, nil
}

// register adds desc under td's name. A type already registered with the
// same kind and size is reused.
func (im *Importer) register(td *wit.TypeDef, desc *typedesc.BaseTypeDesc) (*typedesc.BaseTypeDesc, error) {
	desc.Name = typeDefName(td)
	if desc.Name == "" {
		return nil, unsupported(td, "anonymous types cannot be registered")
	}
	if existing, ok := im.types.Lookup(desc.Name); ok {
		if existing.Kind == desc.Kind && existing.Size == desc.Size {
			return existing, nil
		}
		return nil, errors.New(errors.PhaseRegister, errors.KindRegistration).
			TypeName(desc.Name).
			Detail("already registered as %s of size %d", existing.Kind, existing.Size).
			Build()
	}
	if err := im.types.Register(desc); err != nil {
		return nil, err
	}
	return desc, nil
}

func listElem(t wit.Type) (wit.Type, bool) {
	td, ok := t.(*wit.TypeDef)
	if !ok {
		return nil, false
	}
	switch kind := td.Kind.(type) {
	case *wit.List:
		return kind.Type, true
	case wit.Type:
		return listElem(kind)
	}
	return nil, false
}

func tupleTypes(t wit.Type) ([]wit.Type, bool) {
	td, ok := t.(*wit.TypeDef)
	if !ok {
		return nil, false
	}
	switch kind := td.Kind.(type) {
	case *wit.Tuple:
		return kind.Types, true
	case wit.Type:
		return tupleTypes(kind)
	}
	return nil, false
}

func typeDefName(td *wit.TypeDef) string {
	if td.Name == nil {
		return ""
	}
	return *td.Name
}

func witName(t wit.Type) string {
	switch typ := t.(type) {
	case *wit.TypeDef:
		if name := typeDefName(typ); name != "" {
			return name
		}
		return "anonymous " + goTypeName(typ.Kind)
	}
	return goTypeName(t)
}

func unsupported(t wit.Type, detail string) error {
	return errors.New(errors.PhaseRegister, errors.KindUnsupported).
		TypeName(witName(t)).
		Detail("%s", detail).
		Build()
}

func goTypeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
