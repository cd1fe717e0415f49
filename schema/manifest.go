package schema

import (
	"encoding/hex"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/wippyai/propbridge/errors"
	"github.com/wippyai/propbridge/typedesc"
)

// Manifest is the canonical summary of a schema. Every list is sorted and
// every type expression is in canonical form, so equal declarations give
// byte-identical encodings.
type Manifest struct {
	Types      []ManifestType     `cbor:"types" json:"types"`
	Properties []ManifestProperty `cbor:"properties" json:"properties"`
	Calls      []ManifestCall     `cbor:"calls" json:"calls"`
}

type ManifestType struct {
	Name   string `cbor:"name" json:"name"`
	Kind   string `cbor:"kind" json:"kind"`
	Size   uint32 `cbor:"size,omitempty" json:"size,omitempty"`
	Global bool   `cbor:"global,omitempty" json:"global,omitempty"`
}

type ManifestProperty struct {
	Entity  string `cbor:"entity" json:"entity"`
	Name    string `cbor:"name" json:"name"`
	Type    string `cbor:"type" json:"type"`
	Mutable bool   `cbor:"mutable,omitempty" json:"mutable,omitempty"`
}

type ManifestCall struct {
	Name       string   `cbor:"name" json:"name"`
	Direction  string   `cbor:"direction" json:"direction"`
	Subsystem  string   `cbor:"subsystem,omitempty" json:"subsystem,omitempty"`
	Args       []string `cbor:"args" json:"args"`
	PassTarget bool     `cbor:"pass_target,omitempty" json:"pass_target,omitempty"`
}

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2).
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("schema: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("schema: CBOR decoder initialization failed: " + err.Error())
	}
}

// fingerprintKey separates manifest fingerprints from other blake3 uses.
var fingerprintKey = [32]byte{
	'p', 'r', 'o', 'p', 'b', 'r', 'i', 'd', 'g', 'e', '.',
	'm', 'a', 'n', 'i', 'f', 'e', 's', 't',
}

// Manifest collects the declared types, properties and calls.
func (s *Schema) Manifest() *Manifest {
	m := &Manifest{
		Types:      []ManifestType{},
		Properties: make([]ManifestProperty, 0, len(s.Properties)),
		Calls:      make([]ManifestCall, 0, len(s.Calls)),
	}

	for _, name := range s.types.Names() {
		t := s.types.MustLookup(name)
		if isBuiltin(t) {
			continue
		}
		m.Types = append(m.Types, ManifestType{
			Name:   t.Name,
			Kind:   t.Kind.String(),
			Size:   t.Size,
			Global: t.IsGlobalEntity,
		})
	}

	for _, p := range s.Properties {
		m.Properties = append(m.Properties, ManifestProperty{
			Entity:  p.Entity,
			Name:    p.Name,
			Type:    p.Type.String(),
			Mutable: p.Type.IsMutable,
		})
	}
	sort.Slice(m.Properties, func(i, j int) bool {
		a, b := m.Properties[i], m.Properties[j]
		if a.Entity != b.Entity {
			return a.Entity < b.Entity
		}
		return a.Name < b.Name
	})

	for _, d := range s.Calls {
		args := make([]string, len(d.Args))
		for i, a := range d.Args {
			args[i] = a.String()
		}
		m.Calls = append(m.Calls, ManifestCall{
			Name:       d.Name,
			Direction:  d.Direction.String(),
			Subsystem:  d.Subsystem,
			Args:       args,
			PassTarget: d.PassTarget,
		})
	}
	sort.Slice(m.Calls, func(i, j int) bool {
		a, b := m.Calls[i], m.Calls[j]
		if a.Direction != b.Direction {
			return a.Direction < b.Direction
		}
		return a.Name < b.Name
	})
	return m
}

// isBuiltin reports whether t is preloaded by every registry.
func isBuiltin(t *typedesc.BaseTypeDesc) bool {
	switch t.Kind {
	case typedesc.KindPrimitive, typedesc.KindString, typedesc.KindHashedString:
		return true
	default:
		return false
	}
}

// Encode renders m as deterministic CBOR.
func (m *Manifest) Encode() ([]byte, error) {
	data, err := encMode.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSchema, errors.KindInvalidInput, err, "encoding manifest")
	}
	return data, nil
}

// DecodeManifest parses a manifest produced by Encode.
func DecodeManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := decMode.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.PhaseSchema, errors.KindInvalidInput, err, "decoding manifest")
	}
	return &m, nil
}

// Fingerprint is the hex keyed blake3 digest of the encoded manifest.
func (m *Manifest) Fingerprint() (string, error) {
	data, err := m.Encode()
	if err != nil {
		return "", err
	}
	return FingerprintOf(data), nil
}

// FingerprintOf hashes an encoded manifest.
func FingerprintOf(data []byte) string {
	h, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		panic("schema: blake3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
