package schema

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/wippyai/propbridge/errors"
	"github.com/wippyai/propbridge/remotecall"
	"github.com/wippyai/propbridge/typedesc"
)

const yamlDecl = `
types:
  - {name: Dir, kind: enum, size: 1}
  - {name: vec3, kind: struct, size: 12}
  - {name: Critter, kind: entity}
  - {name: Map, kind: entity, size: 4, global: true}
  - {name: Node, kind: object}
properties:
  - {entity: Critter, name: Inventory, type: "dict<hstring,int32[]>", mutable: true}
  - {entity: Critter, name: Facing, type: Dir}
  - {entity: Map, name: Spawns, type: "vec3[]"}
calls:
  - name: Player_Move
    direction: inbound
    subsystem: server
    args: [int16, int16, Dir]
    pass_target: true
  - {name: Show_Message, direction: outbound, args: [string, "dict<string,int32>"]}
`

const jsoncDecl = `{
  // same declarations, different order
  "calls": [
    {"name": "Show_Message", "direction": "outbound", "args": ["string", "dict< string , int32 >"]},
    {"name": "Player_Move", "direction": "inbound", "subsystem": "server",
     "args": ["int16", "int16", "Dir"], "pass_target": true},
  ],
  "properties": [
    {"entity": "Map", "name": "Spawns", "type": "vec3[]"},
    {"entity": "Critter", "name": "Facing", "type": "Dir"},
    {"entity": "Critter", "name": "Inventory", "type": "mutable dict<hstring,int32[]>"},
  ],
  "types": [
    {"name": "Node", "kind": "object"},
    {"name": "Map", "kind": "entity", "size": 4, "global": true},
    {"name": "Critter", "kind": "entity"},
    {"name": "vec3", "kind": "struct", "size": 12},
    {"name": "Dir", "kind": "enum", "size": 1},
  ],
}`

type vec3 struct {
	X, Y, Z float32
}

func build(t *testing.T, data string, format Format) *Schema {
	t.Helper()
	f, err := Parse([]byte(data), format)
	if err != nil {
		t.Fatalf("Parse(%s): %v", format, err)
	}
	s, err := Build(f, nil, Options{StructTypes: map[string]reflect.Type{"vec3": reflect.TypeOf(vec3{})}})
	if err != nil {
		t.Fatalf("Build(%s): %v", format, err)
	}
	return s
}

func TestBuild(t *testing.T) {
	s := build(t, yamlDecl, FormatYAML)

	inv, ok := s.Property("Critter", "Inventory")
	if !ok {
		t.Fatal("Critter.Inventory missing")
	}
	if inv.Type.Kind != typedesc.DictOfArray || !inv.Type.IsMutable || inv.Type.Key.Name != "hstring" {
		t.Errorf("unexpected Inventory type %+v", inv.Type)
	}
	if got := s.EntityProperties("Critter"); len(got) != 2 || got[0].Name != "Facing" {
		t.Errorf("EntityProperties = %v", got)
	}

	mapType := s.Types().MustLookup("Map")
	if !mapType.IsGlobalEntity || mapType.Size != 4 {
		t.Errorf("Map = %+v", mapType)
	}
	if s.Types().MustLookup("vec3").GoType != reflect.TypeOf(vec3{}) {
		t.Error("vec3 should carry its Go type")
	}

	if len(s.Calls) != 2 {
		t.Fatalf("got %d calls", len(s.Calls))
	}
	move := s.Calls[0]
	if move.Key() != "server/Player_Move" || move.Direction != remotecall.Inbound || !move.PassTarget || len(move.Args) != 3 {
		t.Errorf("unexpected Player_Move %+v", move)
	}
}

func TestFingerprintStable(t *testing.T) {
	a := build(t, yamlDecl, FormatYAML).Manifest()
	b := build(t, jsoncDecl, FormatJSONC).Manifest()

	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("manifests differ (-yaml +jsonc):\n%s", diff)
	}
	fa, err := a.Fingerprint()
	if err != nil {
		t.Fatal(err)
	}
	fb, _ := b.Fingerprint()
	if fa != fb || len(fa) != 64 {
		t.Errorf("fingerprints %s vs %s", fa, fb)
	}

	changed := build(t, yamlDecl+"  - {name: Extra, direction: inbound}\n", FormatYAML).Manifest()
	fc, _ := changed.Fingerprint()
	if fc == fa {
		t.Error("adding a call must change the fingerprint")
	}
}

func TestManifestRoundTrip(t *testing.T) {
	m := build(t, yamlDecl, FormatYAML).Manifest()
	data, err := m.Encode()
	if err != nil {
		t.Fatal(err)
	}
	again, err := m.Encode()
	if err != nil || string(again) != string(data) {
		t.Fatal("manifest encoding is not deterministic")
	}

	decoded, err := DecodeManifest(data)
	if err != nil {
		t.Fatalf("DecodeManifest: %v", err)
	}
	if diff := cmp.Diff(m, decoded, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("manifest round trip (-want +got):\n%s", diff)
	}
	if FingerprintOf(data) == FingerprintOf(append(data, 0)) {
		t.Error("fingerprint should depend on every byte")
	}

	wantTypes := []string{"Critter", "Dir", "Map", "Node", "vec3"}
	var gotTypes []string
	for _, mt := range decoded.Types {
		gotTypes = append(gotTypes, mt.Name)
	}
	if diff := cmp.Diff(wantTypes, gotTypes); diff != "" {
		t.Errorf("manifest types (-want +got):\n%s", diff)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		kind errors.Kind
	}{
		{"unknown field", "types:\n  - {name: A, kind: enum, size: 1, color: red}\n", errors.KindInvalidInput},
		{"unknown kind", "types:\n  - {name: A, kind: blob}\n", errors.KindInvalidInput},
		{"bad enum width", "types:\n  - {name: A, kind: enum, size: 3}\n", errors.KindUnsupported},
		{"duplicate type", "types:\n  - {name: A, kind: object}\n  - {name: A, kind: object}\n", errors.KindRegistration},
		{"unknown property type", "properties:\n  - {entity: C, name: P, type: Nope}\n", errors.KindInvalidInput},
		{"duplicate property", "properties:\n  - {entity: C, name: P, type: int32}\n  - {entity: C, name: P, type: string}\n", errors.KindRegistration},
		{"callback property", "properties:\n  - {entity: C, name: P, type: \"callback(int32)\"}\n", errors.KindUnsupported},
		{"bad direction", "calls:\n  - {name: f, direction: up}\n", errors.KindInvalidInput},
		{"callback argument", "calls:\n  - {name: f, direction: outbound, args: [\"callback()\"]}\n", errors.KindUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.yaml), FormatYAML)
			if err == nil {
				_, err = Build(f, nil, Options{})
			}
			if !errors.IsKind(err, tt.kind) {
				t.Errorf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestLoadAndRegister(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "decl.jsonc")
	if err := os.WriteFile(path, []byte(jsoncDecl), 0o600); err != nil {
		t.Fatal(err)
	}
	if FormatOf(path) != FormatJSONC || FormatOf("x.yml") != FormatYAML {
		t.Error("FormatOf misdetected")
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s, err := Build(f, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}

	handlers := remotecall.NewHandlerSet()
	reg := remotecall.NewRegistry(handlers)
	err = s.Register(reg)
	var missing *errors.MissingHandlersError
	if !errors.As(err, &missing) || len(missing.Handlers) != 1 || missing.Handlers[0].Call != "Player_Move" {
		t.Fatalf("expected Player_Move to be reported missing, got %v", err)
	}

	_ = handlers.RegisterFunc("server", "Player_Move", func(target any, x, y int16, dir int32) {})
	reg = remotecall.NewRegistry(handlers)
	if err := s.Register(reg); err != nil {
		t.Fatalf("Register with handler: %v", err)
	}
	if len(reg.Calls()) != 2 {
		t.Errorf("registered %d calls", len(reg.Calls()))
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("loading a missing file should fail")
	}
}

func TestParseEmpty(t *testing.T) {
	f, err := Parse(nil, FormatYAML)
	if err != nil {
		t.Fatalf("empty yaml: %v", err)
	}
	s, err := Build(f, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if m := s.Manifest(); len(m.Types) != 0 || len(m.Calls) != 0 {
		t.Errorf("unexpected manifest %+v", m)
	}
}
