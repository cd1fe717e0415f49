package container

import (
	"cmp"
	"reflect"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/propbridge"
	"github.com/wippyai/propbridge/errors"
	"github.com/wippyai/propbridge/hashstr"
	"github.com/wippyai/propbridge/typedesc"
)

// Comparator orders and equates runtime values of one base type.
type Comparator interface {
	Compare(a, b any) (int, error)
	Equal(a, b any) (bool, error)
}

// ComparatorFor returns the comparator implementing the ordering policy
// for values of t.
func ComparatorFor(t *typedesc.BaseTypeDesc) Comparator {
	return policy{t: t}
}

type policy struct {
	t *typedesc.BaseTypeDesc
}

func (p policy) Compare(a, b any) (int, error) {
	switch p.t.Kind {
	case typedesc.KindPrimitive, typedesc.KindEnum:
		return compareNative(a, b)
	case typedesc.KindString:
		x, ok1 := a.(string)
		y, ok2 := b.(string)
		if !ok1 || !ok2 {
			return 0, mismatch(a, b)
		}
		return strings.Compare(x, y), nil
	case typedesc.KindHashedString:
		x, y, err := hashedPair(a, b)
		if err != nil {
			return 0, err
		}
		return cmp.Compare(x, y), nil
	case typedesc.KindEntity, typedesc.KindObject, typedesc.KindArray:
		return compareHandles(a, b)
	default:
		return compareDynamic(a, b)
	}
}

func (p policy) Equal(a, b any) (bool, error) {
	switch p.t.Kind {
	case typedesc.KindPrimitive, typedesc.KindEnum, typedesc.KindString:
		if reflect.TypeOf(a) != reflect.TypeOf(b) {
			return false, mismatch(a, b)
		}
		return a == b, nil
	case typedesc.KindHashedString:
		x, y, err := hashedPair(a, b)
		if err != nil {
			return false, err
		}
		return x == y, nil
	case typedesc.KindEntity, typedesc.KindObject, typedesc.KindArray:
		return equalHandles(a, b)
	default:
		return equalDynamic(a, b)
	}
}

func compareNative(a, b any) (int, error) {
	switch x := a.(type) {
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, mismatch(a, b)
		}
		switch {
		case x == y:
			return 0, nil
		case !x:
			return -1, nil
		default:
			return 1, nil
		}
	case int8:
		return compareOrdered(x, b)
	case int16:
		return compareOrdered(x, b)
	case int32:
		return compareOrdered(x, b)
	case int64:
		return compareOrdered(x, b)
	case uint8:
		return compareOrdered(x, b)
	case uint16:
		return compareOrdered(x, b)
	case uint32:
		return compareOrdered(x, b)
	case uint64:
		return compareOrdered(x, b)
	case float32:
		return compareOrdered(x, b)
	case float64:
		return compareOrdered(x, b)
	default:
		return 0, mismatch(a, b)
	}
}

func compareOrdered[T cmp.Ordered](x T, b any) (int, error) {
	y, ok := b.(T)
	if !ok {
		return 0, mismatch(x, b)
	}
	return cmp.Compare(x, y), nil
}

func compareHandles(a, b any) (int, error) {
	an, bn := isNilHandle(a), isNilHandle(b)
	switch {
	case an && bn:
		return 0, nil
	case an:
		return -1, nil
	case bn:
		return 1, nil
	}
	if sameHandle(a, b) {
		return 0, nil
	}
	ea, ok1 := a.(propbridge.EntityRef)
	eb, ok2 := b.(propbridge.EntityRef)
	if ok1 && ok2 {
		return cmp.Compare(ea.EntityID(), eb.EntityID()), nil
	}
	return compareDynamic(a, b)
}

func equalHandles(a, b any) (bool, error) {
	an, bn := isNilHandle(a), isNilHandle(b)
	switch {
	case an && bn:
		return true, nil
	case an || bn:
		return false, nil
	}
	if sameHandle(a, b) {
		return true, nil
	}
	ea, ok1 := a.(propbridge.EntityRef)
	eb, ok2 := b.(propbridge.EntityRef)
	if ok1 && ok2 {
		return ea.EntityID() == eb.EntityID(), nil
	}
	return equalDynamic(a, b)
}

func isNilHandle(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

func sameHandle(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	}
	if va.Type().Comparable() {
		return a == b
	}
	return false
}

func compareDynamic(a, b any) (int, error) {
	base, err := commonBase(a, b)
	if err != nil {
		return 0, err
	}
	ms := methodsFor(base)
	if ms.cmp == nil {
		return 0, ms.cmpErr
	}
	return int(ms.cmp.call(base, a, b).Int()), nil
}

func equalDynamic(a, b any) (bool, error) {
	base, err := commonBase(a, b)
	if err != nil {
		return false, err
	}
	ms := methodsFor(base)
	switch {
	case ms.eq != nil:
		return ms.eq.call(base, a, b).Bool(), nil
	case errors.IsKind(ms.eqErr, errors.KindAmbiguousComparison):
		return false, ms.eqErr
	case ms.cmp != nil:
		return ms.cmp.call(base, a, b).Int() == 0, nil
	case errors.IsKind(ms.cmpErr, errors.KindAmbiguousComparison):
		return false, ms.cmpErr
	default:
		return false, errors.NoComparisonMethod(base.String(), "equals or compare")
	}
}

// commonBase strips one level of pointer from both operands and requires
// the results to match.
func commonBase(a, b any) (reflect.Type, error) {
	if a == nil || b == nil {
		return nil, errors.NilPointer(errors.PhaseCompare, nil, goTypeName(a)+"/"+goTypeName(b))
	}
	ta, tb := derefType(reflect.TypeOf(a)), derefType(reflect.TypeOf(b))
	if ta != tb {
		return nil, mismatch(a, b)
	}
	return ta, nil
}

func derefType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}

// hashedPair returns the hashes of two hashed strings. Text without a hash
// was never interned and cannot be ordered against interned keys.
func hashedPair(a, b any) (uint64, uint64, error) {
	x, ok1 := a.(hashstr.HString)
	y, ok2 := b.(hashstr.HString)
	if !ok1 || !ok2 {
		return 0, 0, mismatch(a, b)
	}
	if err := checkHashed(x); err != nil {
		return 0, 0, err
	}
	if err := checkHashed(y); err != nil {
		return 0, 0, err
	}
	return x.Hash, y.Hash, nil
}

func checkHashed(h hashstr.HString) error {
	if h.Hash == 0 && h.Text != "" {
		return errors.New(errors.PhaseCompare, errors.KindTypeMismatch).
			GoType("hashstr.HString").
			Value(h.Text).
			Detail("hashed string %q has no hash; intern it first", h.Text).
			Build()
	}
	return nil
}

func mismatch(a, b any) error {
	return errors.New(errors.PhaseCompare, errors.KindTypeMismatch).
		GoType(goTypeName(a)).
		Detail("cannot compare with %s", goTypeName(b)).
		Build()
}

// methodSet is the resolved comparison surface of one Go type.
type methodSet struct {
	cmp    *boundMethod
	eq     *boundMethod
	cmpErr error
	eqErr  error
}

type boundMethod struct {
	fn     reflect.Value
	name   string
	argPtr bool
}

// call invokes m with a as receiver and b as argument. Both may be values
// of base or pointers to it.
func (m *boundMethod) call(base reflect.Type, a, b any) reflect.Value {
	recv := asPointer(base, a)
	arg := asPointer(base, b)
	if !m.argPtr {
		arg = arg.Elem()
	}
	return m.fn.Call([]reflect.Value{recv, arg})[0]
}

func asPointer(base reflect.Type, v any) reflect.Value {
	rv := reflect.ValueOf(v)
	if rv.Type() == base {
		p := reflect.New(base)
		p.Elem().Set(rv)
		return p
	}
	return rv
}

var (
	// populated once per type under resolveMu, read without locking after
	methodCache sync.Map
	resolveMu   sync.Mutex

	orderingNames = []string{"Compare", "OpCmp"}
	equalityNames = []string{"Equals", "OpEquals"}
)

func methodsFor(t reflect.Type) *methodSet {
	if ms, ok := methodCache.Load(t); ok {
		return ms.(*methodSet)
	}

	resolveMu.Lock()
	defer resolveMu.Unlock()

	if ms, ok := methodCache.Load(t); ok {
		return ms.(*methodSet)
	}
	ms := resolveMethods(t)
	methodCache.Store(t, ms)
	return ms
}

func resolveMethods(t reflect.Type) *methodSet {
	ms := &methodSet{}
	ms.cmp, ms.cmpErr = pickMethod(t, orderingNames, isIntResult, "compare")
	ms.eq, ms.eqErr = pickMethod(t, equalityNames, isBoolResult, "equals")

	Logger().Debug("resolved comparison methods",
		zap.String("type", t.String()),
		zap.Bool("compare", ms.cmp != nil),
		zap.Bool("equals", ms.eq != nil))
	return ms
}

// pickMethod finds the single method among names taking T or *T and
// returning an acceptable result.
func pickMethod(t reflect.Type, names []string, result func(reflect.Type) bool, op string) (*boundMethod, error) {
	ptr := reflect.PointerTo(t)
	var found []*boundMethod
	for _, name := range names {
		m, ok := ptr.MethodByName(name)
		if !ok {
			continue
		}
		// In(0) is the receiver.
		mt := m.Type
		if mt.NumIn() != 2 || mt.NumOut() != 1 || !result(mt.Out(0)) {
			continue
		}
		switch mt.In(1) {
		case t:
			found = append(found, &boundMethod{fn: m.Func, name: name})
		case ptr:
			found = append(found, &boundMethod{fn: m.Func, name: name, argPtr: true})
		}
	}

	switch len(found) {
	case 0:
		return nil, errors.NoComparisonMethod(t.String(), op)
	case 1:
		return found[0], nil
	default:
		candidates := make([]string, len(found))
		for i, m := range found {
			candidates[i] = m.name
		}
		return nil, errors.AmbiguousComparison(t.String(), op, candidates)
	}
}

func isIntResult(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isBoolResult(t reflect.Type) bool {
	return t.Kind() == reflect.Bool
}
