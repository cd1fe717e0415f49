package schema

import (
	"reflect"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/propbridge/errors"
	"github.com/wippyai/propbridge/remotecall"
	"github.com/wippyai/propbridge/typedesc"
)

// Property is a resolved property declaration.
type Property struct {
	Type   *typedesc.ComplexTypeDesc
	Entity string
	Name   string
}

// Key is "Entity.Name".
func (p *Property) Key() string { return p.Entity + "." + p.Name }

// Schema is a declaration file resolved against a type registry.
type Schema struct {
	types      *typedesc.Registry
	props      map[string]*Property
	Properties []*Property
	Calls      []*remotecall.Desc
}

// Options controls Build.
type Options struct {
	// StructTypes maps declared struct names to Go types. Structs without
	// an entry are carried as raw bytes.
	StructTypes map[string]reflect.Type
}

// Build registers f's types into types (a fresh registry when nil) and
// resolves every property and call.
func Build(f *File, types *typedesc.Registry, opts Options) (*Schema, error) {
	if types == nil {
		types = typedesc.NewRegistry()
	}
	s := &Schema{types: types, props: make(map[string]*Property, len(f.Properties))}

	for i, td := range f.Types {
		if err := registerType(types, td, opts); err != nil {
			return nil, schemaError(err, "types", i, td.Name)
		}
	}

	for i, pd := range f.Properties {
		if pd.Entity == "" || pd.Name == "" {
			return nil, schemaError(errors.InvalidInput(errors.PhaseSchema, "property needs entity and name"), "properties", i, pd.Name)
		}
		t, err := types.Parse(pd.Type)
		if err != nil {
			return nil, schemaError(err, "properties", i, pd.Name)
		}
		if t.Kind == typedesc.Callback {
			return nil, schemaError(errors.Unsupported(errors.PhaseSchema, "callback properties"), "properties", i, pd.Name)
		}
		t.IsMutable = t.IsMutable || pd.Mutable
		p := &Property{Entity: pd.Entity, Name: pd.Name, Type: t}
		if _, dup := s.props[p.Key()]; dup {
			return nil, schemaError(errors.New(errors.PhaseSchema, errors.KindRegistration).
				Detail("property %s declared twice", p.Key()).
				Build(), "properties", i, pd.Name)
		}
		s.props[p.Key()] = p
		s.Properties = append(s.Properties, p)
	}

	for i, cd := range f.Calls {
		dir, err := remotecall.ParseDirection(cd.Direction)
		if err != nil {
			return nil, schemaError(err, "calls", i, cd.Name)
		}
		d, err := remotecall.NewDesc(types, dir, cd.Name, cd.Args...)
		if err != nil {
			return nil, schemaError(err, "calls", i, cd.Name)
		}
		d.Subsystem = cd.Subsystem
		d.PassTarget = cd.PassTarget
		s.Calls = append(s.Calls, d)
	}

	Logger().Debug("schema built",
		zap.Int("types", len(f.Types)),
		zap.Int("properties", len(s.Properties)),
		zap.Int("calls", len(s.Calls)))
	return s, nil
}

// Types returns the registry the schema was built against.
func (s *Schema) Types() *typedesc.Registry { return s.types }

// Property looks up a property by entity and name.
func (s *Schema) Property(entity, name string) (*Property, bool) {
	p, ok := s.props[entity+"."+name]
	return p, ok
}

// EntityProperties returns the properties of entity sorted by name.
func (s *Schema) EntityProperties(entity string) []*Property {
	var out []*Property
	for _, p := range s.Properties {
		if p.Entity == entity {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Register declares every call in reg. Inbound calls without handlers are
// reported together; the caller should abort startup on any error.
func (s *Schema) Register(reg *remotecall.Registry) error {
	return reg.RegisterAll(s.Calls)
}

func registerType(types *typedesc.Registry, td TypeDecl, opts Options) error {
	var err error
	switch td.Kind {
	case "enum":
		_, err = types.RegisterEnum(td.Name, td.Size)
	case "struct":
		_, err = types.RegisterStruct(td.Name, td.Size, opts.StructTypes[td.Name])
	case "entity":
		size := td.Size
		if size == 0 {
			size = 8
		}
		err = types.Register(&typedesc.BaseTypeDesc{
			Name:           td.Name,
			Kind:           typedesc.KindEntity,
			Size:           size,
			IsGlobalEntity: td.GlobalEntity,
		})
	case "object":
		_, err = types.RegisterObject(td.Name)
	default:
		err = errors.New(errors.PhaseSchema, errors.KindInvalidInput).
			TypeName(td.Name).
			Detail("unknown type kind %q", td.Kind).
			Build()
	}
	return err
}

func schemaError(err error, section string, index int, name string) error {
	path := []string{section + "[" + strconv.Itoa(index) + "]"}
	if name != "" {
		path = append(path, name)
	}
	return errors.New(errors.PhaseSchema, kindOf(err)).
		Path(path...).
		Cause(err).
		Build()
}

func kindOf(err error) errors.Kind {
	if k := errors.KindOf(err); k != "" {
		return k
	}
	return errors.KindInvalidInput
}
