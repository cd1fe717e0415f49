package remotecall

import (
	"context"
	"reflect"
	"strconv"
	"sync"

	"github.com/wippyai/propbridge"
	"github.com/wippyai/propbridge/container"
	"github.com/wippyai/propbridge/errors"
	"github.com/wippyai/propbridge/hashstr"
	"github.com/wippyai/propbridge/typedesc"
)

// Handler receives one decoded inbound call. args are in declaration order
// and only valid until the handler returns.
type Handler func(ctx context.Context, target propbridge.EntityRef, args []any) error

// Signature is the runtime shape a handler must accept.
type Signature struct {
	Args       []reflect.Type
	PassTarget bool
}

// SignatureOf returns the runtime argument types of d.
func SignatureOf(d *Desc) Signature {
	sig := Signature{Args: make([]reflect.Type, len(d.Args)), PassTarget: d.PassTarget}
	for i, a := range d.Args {
		sig.Args[i] = argType(a)
	}
	return sig
}

func argType(t *typedesc.ComplexTypeDesc) reflect.Type {
	switch t.Kind {
	case typedesc.Array:
		return arrayPtrType
	case typedesc.Dict, typedesc.DictOfArray:
		return dictPtrType
	default:
		return container.RuntimeType(t.Base)
	}
}

// HandlerBinder resolves the handler for an inbound call at registration.
type HandlerBinder interface {
	LookupHandler(key string, sig Signature) (Handler, error)
}

// HandlerBinderFunc adapts a function to HandlerBinder.
type HandlerBinderFunc func(key string, sig Signature) (Handler, error)

func (f HandlerBinderFunc) LookupHandler(key string, sig Signature) (Handler, error) {
	return f(key, sig)
}

// Host groups handlers under one subsystem. All exported methods except
// Subsystem are registered under their Go names.
type Host interface {
	Subsystem() string
}

// ExplicitHost lets a host name its handlers when call names are not valid
// Go identifiers.
type ExplicitHost interface {
	Host
	Handlers() map[string]any
}

// HandlerSet is a HandlerBinder over plain Go functions. A function may take
// a leading context.Context, then the target entity when the call passes
// one, then one parameter per argument. It returns nothing or an error.
type HandlerSet struct {
	funcs map[string]reflect.Value
	mu    sync.RWMutex
}

func NewHandlerSet() *HandlerSet {
	return &HandlerSet{funcs: make(map[string]reflect.Value)}
}

// RegisterFunc registers fn as the handler for subsystem/name.
func (s *HandlerSet) RegisterFunc(subsystem, name string, fn any) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseRegister, "handler name cannot be empty")
	}
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return errors.New(errors.PhaseRegister, errors.KindTypeMismatch).
			GoType(goTypeName(fn)).
			Detail("handler must be a function").
			Build()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.funcs[(&Desc{Subsystem: subsystem, Name: name}).Key()] = rv
	return nil
}

// RegisterHost registers the handlers of h.
func (s *HandlerSet) RegisterHost(h Host) error {
	sub := h.Subsystem()

	if eh, ok := h.(ExplicitHost); ok {
		for name, fn := range eh.Handlers() {
			if err := s.RegisterFunc(sub, name, fn); err != nil {
				return err
			}
		}
		return nil
	}

	rv := reflect.ValueOf(h)
	rt := rv.Type()
	for i := 0; i < rt.NumMethod(); i++ {
		m := rt.Method(i)
		if !m.IsExported() || m.Name == "Subsystem" {
			continue
		}
		if err := s.RegisterFunc(sub, m.Name, rv.Method(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of registered functions.
func (s *HandlerSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.funcs)
}

// LookupHandler binds the function registered under key to sig.
func (s *HandlerSet) LookupHandler(key string, sig Signature) (Handler, error) {
	s.mu.RLock()
	fn, ok := s.funcs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.ErrHandlerNotFound
	}
	return bind(key, fn, sig)
}

var (
	contextType   = reflect.TypeFor[context.Context]()
	errorType     = reflect.TypeFor[error]()
	entityRefType = reflect.TypeFor[propbridge.EntityRef]()
	hstringType   = reflect.TypeFor[hashstr.HString]()
	arrayPtrType  = reflect.TypeFor[*container.Array]()
	dictPtrType   = reflect.TypeFor[*container.Dict]()
)

type argConv func(v any) reflect.Value

func bind(key string, fn reflect.Value, sig Signature) (Handler, error) {
	ft := fn.Type()
	mismatch := func(detail string, args ...any) error {
		return errors.New(errors.PhaseRegister, errors.KindTypeMismatch).
			Path(key).
			GoType(ft.String()).
			Detail(detail, args...).
			Build()
	}

	if ft.IsVariadic() {
		return nil, mismatch("variadic handlers are not supported")
	}
	in := 0
	withCtx := ft.NumIn() > 0 && ft.In(0) == contextType
	if withCtx {
		in++
	}
	var targetType reflect.Type
	if sig.PassTarget {
		if ft.NumIn() <= in || !entityRefType.AssignableTo(ft.In(in)) {
			return nil, mismatch("parameter %d must accept the target entity", in)
		}
		targetType = ft.In(in)
		in++
	}
	if ft.NumIn()-in != len(sig.Args) {
		return nil, mismatch("takes %d arguments, call declares %d", ft.NumIn()-in, len(sig.Args))
	}
	convs := make([]argConv, len(sig.Args))
	for i, at := range sig.Args {
		conv, ok := converter(at, ft.In(in+i))
		if !ok {
			return nil, errors.New(errors.PhaseRegister, errors.KindTypeMismatch).
				Path(key, "arg"+strconv.Itoa(i)).
				GoType(ft.In(in + i).String()).
				TypeName(at.String()).
				Detail("parameter cannot receive %s", at).
				Build()
		}
		convs[i] = conv
	}
	switch {
	case ft.NumOut() == 0:
	case ft.NumOut() == 1 && ft.Out(0) == errorType:
	default:
		return nil, mismatch("handlers return nothing or error")
	}

	return func(ctx context.Context, target propbridge.EntityRef, args []any) error {
		vals := make([]reflect.Value, 0, ft.NumIn())
		if withCtx {
			vals = append(vals, reflect.ValueOf(&ctx).Elem())
		}
		if targetType != nil {
			if target == nil {
				vals = append(vals, reflect.Zero(targetType))
			} else {
				vals = append(vals, reflect.ValueOf(&target).Elem())
			}
		}
		for i, a := range args {
			vals = append(vals, convs[i](a))
		}
		out := fn.Call(vals)
		if len(out) == 1 && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	}, nil
}

// converter returns how a runtime value of type at is passed to a parameter
// of type p.
func converter(at, p reflect.Type) (argConv, bool) {
	switch {
	case at.AssignableTo(p):
		return func(v any) reflect.Value {
			if v == nil {
				return reflect.Zero(p)
			}
			return reflect.ValueOf(v)
		}, true
	case at == hstringType && p.Kind() == reflect.String:
		return func(v any) reflect.Value {
			hs, _ := v.(hashstr.HString)
			return reflect.ValueOf(hs.Text).Convert(p)
		}, true
	case at.Kind() == p.Kind() && isScalar(p.Kind()) && at.ConvertibleTo(p):
		return func(v any) reflect.Value {
			return reflect.ValueOf(v).Convert(p)
		}, true
	}
	return nil, false
}

func isScalar(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func goTypeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
