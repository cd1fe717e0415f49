package container

import (
	"github.com/wippyai/propbridge/errors"
	"github.com/wippyai/propbridge/gc"
	"github.com/wippyai/propbridge/typedesc"
)

// Factory creates containers for the runtime and the codec. Containers it
// creates are tracked by its collector when one is set.
type Factory struct {
	types     *typedesc.Registry
	collector *gc.Collector
}

// NewFactory creates a factory over types. collector may be nil.
func NewFactory(types *typedesc.Registry, collector *gc.Collector) *Factory {
	if types == nil {
		types = typedesc.NewRegistry()
	}
	return &Factory{types: types, collector: collector}
}

// Types returns the registry used to resolve type names.
func (f *Factory) Types() *typedesc.Registry { return f.types }

// Collector returns the cycle collector, or nil.
func (f *Factory) Collector() *gc.Collector { return f.collector }

// NewArray returns an empty array of elem with one reference.
func (f *Factory) NewArray(elem *typedesc.BaseTypeDesc) *Array {
	a := &Array{factory: f, elem: elem}
	a.refs.Store(1)
	if f.collector != nil {
		a.handle = f.collector.Track(elem.Name+"[]", a)
	}
	return a
}

// NewDict returns an empty dict from key to value with one reference.
func (f *Factory) NewDict(key, value *typedesc.BaseTypeDesc) *Dict {
	d := &Dict{
		factory: f,
		keyType: key,
		valType: value,
		keyCmp:  ComparatorFor(key),
		valCmp:  ComparatorFor(value),
	}
	d.refs.Store(1)
	if f.collector != nil {
		d.handle = f.collector.Track("dict<"+key.Name+","+value.Name+">", d)
	}
	return d
}

// NewDictOfArray returns an empty dict from key to arrays of elem.
func (f *Factory) NewDictOfArray(key, elem *typedesc.BaseTypeDesc) *Dict {
	return f.NewDict(key, f.types.ArrayOf(elem))
}

// New creates the empty container described by t.
func (f *Factory) New(t *typedesc.ComplexTypeDesc) (any, error) {
	switch t.Kind {
	case typedesc.Array:
		return f.NewArray(t.Base), nil
	case typedesc.Dict:
		return f.NewDict(t.Key, t.Base), nil
	case typedesc.DictOfArray:
		return f.NewDictOfArray(t.Key, t.Base), nil
	default:
		return nil, errors.New(errors.PhaseContainer, errors.KindUnsupported).
			TypeName(t.String()).
			Detail("not a container type").
			Build()
	}
}

// CreateArray creates an array of the element type named elemTypeName.
func (f *Factory) CreateArray(elemTypeName string) (*Array, error) {
	elem, ok := f.types.Lookup(elemTypeName)
	if !ok {
		return nil, errors.New(errors.PhaseContainer, errors.KindInvalidInput).
			TypeName(elemTypeName).
			Detail("unknown element type").
			Build()
	}
	return f.NewArray(elem), nil
}

// CreateDict creates a dict from a type expression such as
// "dict<string,int32>" or "dict<string,int32[]>".
func (f *Factory) CreateDict(typeName string) (*Dict, error) {
	t, err := f.types.Parse(typeName)
	if err != nil {
		return nil, err
	}
	if !t.Kind.HasKey() {
		return nil, errors.New(errors.PhaseContainer, errors.KindTypeMismatch).
			TypeName(typeName).
			Detail("not a dict type").
			Build()
	}
	v, err := f.New(t)
	if err != nil {
		return nil, err
	}
	return v.(*Dict), nil
}
