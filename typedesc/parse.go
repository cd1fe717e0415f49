package typedesc

import (
	"strings"

	"github.com/wippyai/propbridge/errors"
)

// Parse turns a type expression into a descriptor. Accepted forms:
//
//	T                  simple
//	T[]                array
//	dict<K,V>          dict
//	dict<K,V[]>        dict of arrays
//	callback(A,B,...)  callback with argument shapes
//
// A leading "mutable " marks the descriptor as writable.
func (r *Registry) Parse(expr string) (*ComplexTypeDesc, error) {
	s := strings.TrimSpace(expr)
	mutable := false
	if rest, ok := strings.CutPrefix(s, "mutable "); ok {
		mutable = true
		s = strings.TrimSpace(rest)
	}

	t, err := r.parse(s)
	if err != nil {
		return nil, err
	}
	t.IsMutable = mutable
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// MustParse is Parse for static expressions; it panics on error.
func (r *Registry) MustParse(expr string) *ComplexTypeDesc {
	t, err := r.Parse(expr)
	if err != nil {
		panic(err)
	}
	return t
}

func (r *Registry) parse(s string) (*ComplexTypeDesc, error) {
	switch {
	case strings.HasPrefix(s, "dict<"):
		if !strings.HasSuffix(s, ">") {
			return nil, parseError(s, "unterminated dict")
		}
		inner := s[len("dict<") : len(s)-1]
		keyName, valName, ok := strings.Cut(inner, ",")
		if !ok {
			return nil, parseError(s, "dict needs key and value types")
		}
		key, err := r.base(strings.TrimSpace(keyName))
		if err != nil {
			return nil, err
		}
		valName = strings.TrimSpace(valName)
		if elem, isArray := strings.CutSuffix(valName, "[]"); isArray {
			val, err := r.base(strings.TrimSpace(elem))
			if err != nil {
				return nil, err
			}
			return NewDictOfArray(key, val), nil
		}
		val, err := r.base(valName)
		if err != nil {
			return nil, err
		}
		return NewDict(key, val), nil

	case strings.HasPrefix(s, "callback("):
		if !strings.HasSuffix(s, ")") {
			return nil, parseError(s, "unterminated callback")
		}
		inner := strings.TrimSpace(s[len("callback(") : len(s)-1])
		args := []*ComplexTypeDesc{}
		for _, part := range splitTopLevel(inner) {
			arg, err := r.parse(strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		return NewCallback(args...), nil

	case strings.HasSuffix(s, "[]"):
		elem, err := r.base(strings.TrimSpace(strings.TrimSuffix(s, "[]")))
		if err != nil {
			return nil, err
		}
		return NewArray(elem), nil

	default:
		base, err := r.base(s)
		if err != nil {
			return nil, err
		}
		return NewSimple(base), nil
	}
}

func (r *Registry) base(name string) (*BaseTypeDesc, error) {
	if name == "" {
		return nil, parseError(name, "empty type name")
	}
	if strings.ContainsAny(name, "<>()[], ") {
		return nil, parseError(name, "nested composite types are not supported")
	}
	desc, ok := r.Lookup(name)
	if !ok {
		return nil, errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			TypeName(name).
			Detail("unknown type").
			Build()
	}
	return desc, nil
}

// splitTopLevel splits on commas not nested inside <> or ().
func splitTopLevel(s string) []string {
	if s == "" {
		return nil
	}
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(':
			depth++
		case '>', ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func parseError(expr, detail string) *errors.Error {
	return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
		Value(expr).
		Detail("type expression %q: %s", expr, detail).
		Build()
}
