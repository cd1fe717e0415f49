package schema

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/propbridge/errors"
)

// Format is a declaration file syntax.
type Format string

const (
	FormatYAML  Format = "yaml"
	FormatJSONC Format = "jsonc"
)

// FormatOf picks the format from a file extension. Unknown extensions are
// read as YAML, which also accepts plain JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return FormatJSONC
	default:
		return FormatYAML
	}
}

// File is the on-disk declaration document.
type File struct {
	Types      []TypeDecl     `yaml:"types" json:"types"`
	Properties []PropertyDecl `yaml:"properties" json:"properties"`
	Calls      []CallDecl     `yaml:"calls" json:"calls"`
}

// TypeDecl declares a game specific base type.
type TypeDecl struct {
	Name string `yaml:"name" json:"name"`
	// Kind is one of enum, struct, entity or object.
	Kind string `yaml:"kind" json:"kind"`
	// Size is the wire width: 1, 2 or 4 for enums, the byte size of a
	// struct, 4 or 8 for entities (default 8).
	Size         uint32 `yaml:"size,omitempty" json:"size,omitempty"`
	GlobalEntity bool   `yaml:"global,omitempty" json:"global,omitempty"`
}

// PropertyDecl declares one typed property of an entity.
type PropertyDecl struct {
	Entity  string `yaml:"entity" json:"entity"`
	Name    string `yaml:"name" json:"name"`
	Type    string `yaml:"type" json:"type"`
	Mutable bool   `yaml:"mutable,omitempty" json:"mutable,omitempty"`
}

// CallDecl declares one remote call.
type CallDecl struct {
	Name       string   `yaml:"name" json:"name"`
	Direction  string   `yaml:"direction" json:"direction"`
	Subsystem  string   `yaml:"subsystem,omitempty" json:"subsystem,omitempty"`
	Args       []string `yaml:"args,omitempty" json:"args,omitempty"`
	PassTarget bool     `yaml:"pass_target,omitempty" json:"pass_target,omitempty"`
}

// Parse decodes a declaration document. Unknown fields are rejected.
func Parse(data []byte, format Format) (*File, error) {
	var f File
	switch format {
	case FormatJSONC:
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, errors.Wrap(errors.PhaseSchema, errors.KindInvalidInput, err, "parsing jsonc declarations")
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(errors.PhaseSchema, errors.KindInvalidInput, err, "parsing yaml declarations")
		}
	default:
		return nil, errors.Unsupported(errors.PhaseSchema, "declaration format "+string(format))
	}
	return &f, nil
}

// Load reads and parses the declaration file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSchema, errors.KindInvalidInput, err, "reading "+path)
	}
	f, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, err
	}
	Logger().Debug("declarations loaded",
		zap.String("path", path),
		zap.Int("types", len(f.Types)),
		zap.Int("properties", len(f.Properties)),
		zap.Int("calls", len(f.Calls)))
	return f, nil
}

// Merge appends the declarations of other to f.
func (f *File) Merge(other *File) {
	f.Types = append(f.Types, other.Types...)
	f.Properties = append(f.Properties, other.Properties...)
	f.Calls = append(f.Calls, other.Calls...)
}
