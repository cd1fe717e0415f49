package witdesc

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/propbridge/codec"
	"github.com/wippyai/propbridge/container"
	"github.com/wippyai/propbridge/errors"
	"github.com/wippyai/propbridge/gc"
	"github.com/wippyai/propbridge/typedesc"
)

type vec3 struct {
	X, Y, Z float32
}

func named(name string, kind wit.TypeDefKind) *wit.TypeDef {
	return &wit.TypeDef{Name: &name, Kind: kind}
}

func list(t wit.Type) *wit.TypeDef {
	return &wit.TypeDef{Kind: &wit.List{Type: t}}
}

func tuple(types ...wit.Type) *wit.TypeDef {
	return &wit.TypeDef{Kind: &wit.Tuple{Types: types}}
}

var vec3Def = named("vec3", &wit.Record{Fields: []wit.Field{
	{Name: "x", Type: wit.F32{}},
	{Name: "y", Type: wit.F32{}},
	{Name: "z", Type: wit.F32{}},
}})

func TestParseBase(t *testing.T) {
	im := NewImporter(nil, Options{})
	tests := map[string]string{
		"s32":    "int32",
		"u8":     "uint8",
		"s64":    "int64",
		"f64":    "float64",
		"bool":   "bool",
		"char":   "uint32",
		"string": "string",
	}
	for witType, want := range tests {
		t.Run(witType, func(t *testing.T) {
			got, err := im.ParseBase(witType)
			if err != nil {
				t.Fatalf("ParseBase: %v", err)
			}
			if got.Name != want {
				t.Errorf("ParseBase(%s) = %s, want %s", witType, got.Name, want)
			}
		})
	}
	if _, err := im.ParseBase("invalid-type-xyz"); err == nil {
		t.Error("expected error for invalid type")
	}
}

func TestRecords(t *testing.T) {
	tests := []struct {
		name string
		def  *wit.TypeDef
		size uint32
	}{
		{"vec3", vec3Def, 12},
		{"padded", named("padded", &wit.Record{Fields: []wit.Field{
			{Name: "a", Type: wit.U8{}},
			{Name: "b", Type: wit.U32{}},
		}}), 8},
		{"nested", named("nested", &wit.Record{Fields: []wit.Field{
			{Name: "pos", Type: vec3Def},
			{Name: "id", Type: wit.U16{}},
		}}), 16},
		{"with enum", named("tagged", &wit.Record{Fields: []wit.Field{
			{Name: "kind", Type: named("kind", &wit.Enum{Cases: []wit.EnumCase{{Name: "a"}, {Name: "b"}}})},
			{Name: "value", Type: wit.U64{}},
		}}), 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im := NewImporter(nil, Options{})
			desc, err := im.Base(tt.def)
			if err != nil {
				t.Fatalf("Base: %v", err)
			}
			if !desc.IsStruct() || desc.Size != tt.size {
				t.Errorf("got %s kind %s size %d, want struct size %d", desc.Name, desc.Kind, desc.Size, tt.size)
			}
			if again, _ := im.Base(tt.def); again != desc {
				t.Error("repeated import should return the cached descriptor")
			}
		})
	}
}

func TestUnsupportedDetailIsLiteral(t *testing.T) {
	err := unsupported(wit.U8{}, "100% opaque")
	var e *errors.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *errors.Error, got %T", err)
	}
	if e.Detail != "100% opaque" {
		t.Errorf("Detail = %q", e.Detail)
	}
}

func TestRecordErrors(t *testing.T) {
	t.Run("variable field", func(t *testing.T) {
		im := NewImporter(nil, Options{})
		def := named("msg", &wit.Record{Fields: []wit.Field{{Name: "text", Type: wit.String{}}}})
		if _, err := im.Base(def); !errors.IsKind(err, errors.KindUnsupported) {
			t.Errorf("expected unsupported, got %v", err)
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		im := NewImporter(nil, Options{})
		def := &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{{Name: "a", Type: wit.U8{}}}}}
		if _, err := im.Base(def); !errors.IsKind(err, errors.KindUnsupported) {
			t.Errorf("expected unsupported, got %v", err)
		}
	})

	t.Run("go type size mismatch", func(t *testing.T) {
		type packed struct {
			A uint8
			B uint32
		}
		im := NewImporter(nil, Options{StructTypes: map[string]reflect.Type{"padded": reflect.TypeOf(packed{})}})
		def := named("padded", &wit.Record{Fields: []wit.Field{
			{Name: "a", Type: wit.U8{}},
			{Name: "b", Type: wit.U32{}},
		}})
		if _, err := im.Base(def); !errors.IsKind(err, errors.KindTypeMismatch) {
			t.Errorf("expected type mismatch, got %v", err)
		}
	})

	t.Run("name conflict", func(t *testing.T) {
		types := typedesc.NewRegistry()
		if _, err := types.RegisterObject("vec3"); err != nil {
			t.Fatal(err)
		}
		if _, err := NewImporter(types, Options{}).Base(vec3Def); !errors.IsKind(err, errors.KindRegistration) {
			t.Errorf("expected registration error, got %v", err)
		}
	})
}

func TestEnums(t *testing.T) {
	im := NewImporter(nil, Options{})
	small := named("dir", &wit.Enum{Cases: []wit.EnumCase{{Name: "n"}, {Name: "e"}, {Name: "s"}, {Name: "w"}}})
	cases := make([]wit.EnumCase, 300)
	for i := range cases {
		cases[i] = wit.EnumCase{Name: "c"}
	}
	large := named("item-id", &wit.Enum{Cases: cases})

	for def, want := range map[*wit.TypeDef]uint32{small: 1, large: 2} {
		desc, err := im.Base(def)
		if err != nil {
			t.Fatal(err)
		}
		if !desc.IsEnum() || desc.Size != want {
			t.Errorf("%s: kind %s size %d, want enum size %d", desc.Name, desc.Kind, desc.Size, want)
		}
	}
}

func TestResources(t *testing.T) {
	critter := named("critter", &wit.Resource{})
	world := named("world", &wit.Resource{})
	im := NewImporter(nil, Options{GlobalEntities: map[string]bool{"world": true}})

	own, err := im.Base(&wit.TypeDef{Kind: &wit.Own{Type: critter}})
	if err != nil {
		t.Fatalf("own: %v", err)
	}
	borrow, err := im.Base(&wit.TypeDef{Kind: &wit.Borrow{Type: critter}})
	if err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if own != borrow || !own.IsEntity() || own.Name != "critter" || own.Size != 8 {
		t.Errorf("unexpected entity descriptors %+v %+v", own, borrow)
	}
	w, err := im.Base(&wit.TypeDef{Kind: &wit.Borrow{Type: world}})
	if err != nil || !w.IsGlobalEntity {
		t.Errorf("world should be a global entity: %+v, %v", w, err)
	}
}

func TestComplex(t *testing.T) {
	tests := []struct {
		name string
		typ  wit.Type
		want string
		kind typedesc.ComplexKind
	}{
		{"scalar", wit.S16{}, "int16", typedesc.Simple},
		{"record", vec3Def, "vec3", typedesc.Simple},
		{"list", list(wit.U8{}), "uint8[]", typedesc.Array},
		{"list of records", list(vec3Def), "vec3[]", typedesc.Array},
		{"dict", list(tuple(wit.String{}, wit.S32{})), "dict<string,int32>", typedesc.Dict},
		{"dict of array", list(tuple(wit.String{}, list(wit.U16{}))), "dict<string,uint16[]>", typedesc.DictOfArray},
		{"alias", named("scores", list(tuple(wit.U32{}, wit.F32{}))), "dict<uint32,float32>", typedesc.Dict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewImporter(nil, Options{}).Complex(tt.typ)
			if err != nil {
				t.Fatalf("Complex: %v", err)
			}
			if got.Kind != tt.kind || got.String() != tt.want {
				t.Errorf("Complex = %s (%s), want %s (%s)", got, got.Kind, tt.want, tt.kind)
			}
		})
	}

	unsupportedTypes := map[string]wit.Type{
		"nested list":   list(list(wit.U8{})),
		"string key":    list(tuple(wit.String{}, wit.String{}, wit.U8{})),
		"option":        &wit.TypeDef{Kind: &wit.Option{Type: wit.U8{}}},
		"list of lists": list(tuple(wit.U8{}, list(list(wit.U8{})))),
	}
	for name, typ := range unsupportedTypes {
		t.Run("unsupported/"+name, func(t *testing.T) {
			if _, err := NewImporter(nil, Options{}).Complex(typ); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestImportedTypesDriveCodec(t *testing.T) {
	im := NewImporter(nil, Options{StructTypes: map[string]reflect.Type{"vec3": reflect.TypeOf(vec3{})}})
	prop, err := im.Complex(list(tuple(wit.String{}, vec3Def)))
	if err != nil {
		t.Fatal(err)
	}

	col := gc.NewCollector()
	c := codec.New(container.NewFactory(im.Types(), col), codec.DefaultOptions())
	in := map[string]vec3{"spawn": {1, 2, 3}, "exit": {-1, 0, 4}}

	v, err := c.FromNative(prop, in)
	if err != nil {
		t.Fatal(err)
	}
	data, err := c.EncodeBytes(prop, v)
	v.(*container.Dict).Release()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := c.DecodeBytes(prop, data)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.ToNative(prop, decoded)
	decoded.(*container.Dict).Release()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if col.Len() != 0 {
		t.Errorf("%d containers leaked", col.Len())
	}
}
