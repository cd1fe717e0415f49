package typedesc

import (
	"encoding/binary"
	"reflect"
	"sort"
	"sync"

	"github.com/wippyai/propbridge/errors"
)

// Registry is the process-wide table of base types. Safe for concurrent use.
type Registry struct {
	types  map[string]*BaseTypeDesc
	arrays map[*BaseTypeDesc]*BaseTypeDesc
	mu     sync.RWMutex
}

// NewRegistry returns a registry preloaded with the built-in base types.
func NewRegistry() *Registry {
	r := &Registry{
		types:  make(map[string]*BaseTypeDesc, 32),
		arrays: make(map[*BaseTypeDesc]*BaseTypeDesc),
	}
	for p := Bool; p <= Float64; p++ {
		r.types[p.String()] = &BaseTypeDesc{Name: p.String(), Kind: KindPrimitive, Primitive: p, Size: p.Size()}
	}
	r.types["string"] = &BaseTypeDesc{Name: "string", Kind: KindString}
	r.types["hstring"] = &BaseTypeDesc{Name: "hstring", Kind: KindHashedString, Size: 8}
	r.types["hstring32"] = &BaseTypeDesc{Name: "hstring32", Kind: KindHashedString, Size: 4}
	return r
}

// Register adds a named base type.
func (r *Registry) Register(desc *BaseTypeDesc) error {
	if err := validateBase(desc); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[desc.Name]; exists {
		return errors.New(errors.PhaseRegister, errors.KindRegistration).
			TypeName(desc.Name).
			Detail("type already registered").
			Build()
	}
	r.types[desc.Name] = desc
	return nil
}

// RegisterEnum registers an enum stored in size bytes on the wire.
func (r *Registry) RegisterEnum(name string, size uint32) (*BaseTypeDesc, error) {
	desc := &BaseTypeDesc{Name: name, Kind: KindEnum, Size: size}
	return desc, r.Register(desc)
}

// RegisterStruct registers a fixed-size struct. goType may be nil, in
// which case values are carried as raw bytes.
func (r *Registry) RegisterStruct(name string, size uint32, goType reflect.Type) (*BaseTypeDesc, error) {
	desc := &BaseTypeDesc{Name: name, Kind: KindStruct, Size: size, GoType: goType}
	return desc, r.Register(desc)
}

// RegisterEntity registers an entity handle type.
func (r *Registry) RegisterEntity(name string, global bool) (*BaseTypeDesc, error) {
	desc := &BaseTypeDesc{Name: name, Kind: KindEntity, Size: 8, IsGlobalEntity: global}
	return desc, r.Register(desc)
}

// RegisterObject registers an opaque reference-counted script object type.
func (r *Registry) RegisterObject(name string) (*BaseTypeDesc, error) {
	desc := &BaseTypeDesc{Name: name, Kind: KindObject}
	return desc, r.Register(desc)
}

// Lookup returns the base type registered under name.
func (r *Registry) Lookup(name string) (*BaseTypeDesc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.types[name]
	return desc, ok
}

// MustLookup is Lookup for built-in names; it panics on unknown names.
func (r *Registry) MustLookup(name string) *BaseTypeDesc {
	desc, ok := r.Lookup(name)
	if !ok {
		panic("typedesc: unknown type " + name)
	}
	return desc
}

// ArrayOf returns the synthetic array base type for elem, used where an
// array is itself an element (dict-of-array values).
func (r *Registry) ArrayOf(elem *BaseTypeDesc) *BaseTypeDesc {
	r.mu.RLock()
	desc, ok := r.arrays[elem]
	r.mu.RUnlock()
	if ok {
		return desc
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if desc, ok := r.arrays[elem]; ok {
		return desc
	}
	desc = &BaseTypeDesc{Name: elem.Name + "[]", Kind: KindArray, Elem: elem}
	r.arrays[elem] = desc
	return desc
}

// Names returns all registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func validateBase(desc *BaseTypeDesc) error {
	if desc == nil {
		return errors.NilPointer(errors.PhaseRegister, nil, "*BaseTypeDesc")
	}
	if desc.Name == "" {
		return errors.InvalidInput(errors.PhaseRegister, "type name cannot be empty")
	}
	switch desc.Kind {
	case KindEnum:
		switch desc.Size {
		case 1, 2, 4:
		default:
			return errors.New(errors.PhaseRegister, errors.KindUnsupported).
				TypeName(desc.Name).
				Detail("enum width %d not in {1,2,4}", desc.Size).
				Build()
		}
	case KindHashedString:
		if desc.Size != 4 && desc.Size != 8 {
			return errors.New(errors.PhaseRegister, errors.KindUnsupported).
				TypeName(desc.Name).
				Detail("hash width %d not in {4,8}", desc.Size).
				Build()
		}
	case KindStruct:
		if desc.Size == 0 {
			return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
				TypeName(desc.Name).
				Detail("struct size must be positive").
				Build()
		}
		if desc.GoType != nil {
			if desc.GoType.Kind() != reflect.Struct {
				return errors.TypeMismatch(errors.PhaseRegister, nil, desc.GoType.String(), desc.Name)
			}
			if n := binary.Size(reflect.New(desc.GoType).Interface()); n != int(desc.Size) {
				return errors.New(errors.PhaseRegister, errors.KindTypeMismatch).
					GoType(desc.GoType.String()).
					TypeName(desc.Name).
					Detail("binary size %d, declared %d", n, desc.Size).
					Build()
			}
		}
	case KindEntity:
		if desc.Size != 4 && desc.Size != 8 {
			return errors.New(errors.PhaseRegister, errors.KindUnsupported).
				TypeName(desc.Name).
				Detail("entity id width %d not in {4,8}", desc.Size).
				Build()
		}
	case KindArray:
		if desc.Elem == nil {
			return errors.InvalidInput(errors.PhaseRegister, "array type without element")
		}
	case KindPrimitive:
		if desc.Primitive > Float64 || desc.Size != desc.Primitive.Size() {
			return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
				TypeName(desc.Name).
				Detail("primitive %s with size %d", desc.Primitive, desc.Size).
				Build()
		}
	case KindString, KindObject:
	default:
		return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			TypeName(desc.Name).
			Detail("unknown base kind %d", desc.Kind).
			Build()
	}
	return nil
}
