package witdesc

import (
	"testing"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/propbridge/errors"
)

func TestLayoutPrimitives(t *testing.T) {
	c := newLayoutCalc()

	tests := []struct {
		typ   wit.Type
		name  string
		size  uint32
		align uint32
	}{
		{wit.Bool{}, "bool", 1, 1},
		{wit.U8{}, "u8", 1, 1},
		{wit.S8{}, "s8", 1, 1},
		{wit.U16{}, "u16", 2, 2},
		{wit.S16{}, "s16", 2, 2},
		{wit.U32{}, "u32", 4, 4},
		{wit.S32{}, "s32", 4, 4},
		{wit.U64{}, "u64", 8, 8},
		{wit.S64{}, "s64", 8, 8},
		{wit.F32{}, "f32", 4, 4},
		{wit.F64{}, "f64", 8, 8},
		{wit.Char{}, "char", 4, 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info, err := c.calculate(tc.typ)
			if err != nil {
				t.Fatal(err)
			}
			if info.Size != tc.size {
				t.Errorf("size: got %d, want %d", info.Size, tc.size)
			}
			if info.Align != tc.align {
				t.Errorf("align: got %d, want %d", info.Align, tc.align)
			}
		})
	}
}

func TestLayoutComposites(t *testing.T) {
	manyFlags := make([]wit.Flag, 40)
	for i := range manyFlags {
		manyFlags[i] = wit.Flag{Name: "f"}
	}

	tests := []struct {
		name  string
		typ   wit.Type
		size  uint32
		align uint32
	}{
		{"empty record", &wit.TypeDef{Kind: &wit.Record{}}, 0, 1},
		{"mixed alignment", &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{
			{Name: "a", Type: wit.U8{}},
			{Name: "b", Type: wit.U32{}},
			{Name: "c", Type: wit.U8{}},
		}}}, 12, 4},
		{"u64 tail", &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{
			{Name: "a", Type: wit.U16{}},
			{Name: "b", Type: wit.U64{}},
		}}}, 16, 8},
		{"tuple", tuple(wit.U8{}, wit.U16{}), 4, 2},
		{"enum", &wit.TypeDef{Kind: &wit.Enum{Cases: []wit.EnumCase{{Name: "a"}, {Name: "b"}}}}, 1, 1},
		{"flags 3", &wit.TypeDef{Kind: &wit.Flags{Flags: []wit.Flag{{Name: "a"}, {Name: "b"}, {Name: "c"}}}}, 1, 1},
		{"flags 40", &wit.TypeDef{Kind: &wit.Flags{Flags: manyFlags}}, 8, 4},
		{"alias", named("pos", vec3Def), 12, 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info, err := newLayoutCalc().calculate(tc.typ)
			if err != nil {
				t.Fatal(err)
			}
			if info.Size != tc.size || info.Align != tc.align {
				t.Errorf("got size %d align %d, want size %d align %d", info.Size, info.Align, tc.size, tc.align)
			}
		})
	}
}

func TestLayoutNotFixed(t *testing.T) {
	tests := map[string]wit.Type{
		"string":          wit.String{},
		"list":            list(wit.U8{}),
		"record w/ list":  &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{{Name: "l", Type: list(wit.U8{})}}}},
		"tuple w/ string": tuple(wit.U32{}, wit.String{}),
	}
	for name, typ := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := newLayoutCalc().calculate(typ)
			if !errors.IsKind(err, errors.KindUnsupported) {
				t.Errorf("expected unsupported, got %v", err)
			}
		})
	}
}

func TestDiscriminantSize(t *testing.T) {
	for cases, want := range map[int]uint32{1: 1, 256: 1, 257: 2, 65536: 2, 65537: 4} {
		if got := discriminantSize(cases); got != want {
			t.Errorf("discriminantSize(%d) = %d, want %d", cases, got, want)
		}
	}
}
