package witdesc

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/propbridge/errors"
)

// layoutInfo is the canonical ABI size and alignment of a fixed-size type.
type layoutInfo struct {
	Size  uint32
	Align uint32
}

// layoutCalc computes fixed-size layouts, caching named definitions.
type layoutCalc struct {
	cache map[*wit.TypeDef]layoutInfo
}

func newLayoutCalc() *layoutCalc {
	return &layoutCalc{cache: make(map[*wit.TypeDef]layoutInfo)}
}

// calculate returns the layout of t, failing for types whose size is not
// fixed (strings, lists, resources).
func (c *layoutCalc) calculate(t wit.Type) (layoutInfo, error) {
	switch typ := t.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return layoutInfo{Size: 1, Align: 1}, nil
	case wit.U16, wit.S16:
		return layoutInfo{Size: 2, Align: 2}, nil
	case wit.U32, wit.S32, wit.F32, wit.Char:
		return layoutInfo{Size: 4, Align: 4}, nil
	case wit.U64, wit.S64, wit.F64:
		return layoutInfo{Size: 8, Align: 8}, nil
	case *wit.TypeDef:
		return c.typeDef(typ)
	default:
		return layoutInfo{}, notFixed(t)
	}
}

func (c *layoutCalc) typeDef(t *wit.TypeDef) (layoutInfo, error) {
	if cached, ok := c.cache[t]; ok {
		return cached, nil
	}

	var (
		info layoutInfo
		err  error
	)
	switch kind := t.Kind.(type) {
	case *wit.Record:
		info, err = c.sequence(recordTypes(kind))
	case *wit.Tuple:
		info, err = c.sequence(kind.Types)
	case *wit.Enum:
		size := discriminantSize(len(kind.Cases))
		info = layoutInfo{Size: size, Align: size}
	case *wit.Flags:
		info, err = flagsLayout(len(kind.Flags))
	case wit.Type:
		info, err = c.calculate(kind)
	default:
		err = notFixed(t)
	}
	if err != nil {
		return layoutInfo{}, err
	}

	c.cache[t] = info
	return info, nil
}

// sequence lays out fields in order, each at its natural alignment.
func (c *layoutCalc) sequence(types []wit.Type) (layoutInfo, error) {
	if len(types) == 0 {
		return layoutInfo{Size: 0, Align: 1}, nil
	}
	maxAlign := uint32(1)
	offset := uint32(0)
	for _, typ := range types {
		field, err := c.calculate(typ)
		if err != nil {
			return layoutInfo{}, err
		}
		offset = alignTo(offset, field.Align)
		if field.Align > maxAlign {
			maxAlign = field.Align
		}
		offset += field.Size
	}
	return layoutInfo{Size: alignTo(offset, maxAlign), Align: maxAlign}, nil
}

func recordTypes(r *wit.Record) []wit.Type {
	types := make([]wit.Type, len(r.Fields))
	for i, f := range r.Fields {
		types[i] = f.Type
	}
	return types
}

func flagsLayout(n int) (layoutInfo, error) {
	switch {
	case n == 0:
		return layoutInfo{Size: 0, Align: 1}, nil
	case n <= 8:
		return layoutInfo{Size: 1, Align: 1}, nil
	case n <= 16:
		return layoutInfo{Size: 2, Align: 2}, nil
	case n <= 32:
		return layoutInfo{Size: 4, Align: 4}, nil
	}
	// >32 flags: multiple u32s
	return layoutInfo{Size: uint32((n + 31) / 32 * 4), Align: 4}, nil
}

func discriminantSize(numCases int) uint32 {
	if numCases <= 256 {
		return 1
	} else if numCases <= 65536 {
		return 2
	}
	return 4
}

func alignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

func notFixed(t wit.Type) error {
	return errors.New(errors.PhaseRegister, errors.KindUnsupported).
		TypeName(witName(t)).
		Detail("type has no fixed size").
		Build()
}
