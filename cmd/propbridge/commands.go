package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/wippyai/propbridge"
	"github.com/wippyai/propbridge/remotecall"
	"github.com/wippyai/propbridge/schema"
)

type command struct {
	name    string
	summary string
	usage   string
	flags   func(fs *pflag.FlagSet) any
	run     func(a *app, opts any, args []string) error
}

var commands []*command

func init() {
	commands = []*command{decodeCommand, encodeCommand, manifestCommand, callsCommand}
}

func findCommand(name string) *command {
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd
		}
	}
	return nil
}

func (c *command) execute(a *app, args []string) error {
	fs := pflag.NewFlagSet(c.name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var opts any
	if c.flags != nil {
		opts = c.flags(fs)
	}
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			fmt.Fprintf(a.stderr, "%s\n\nUsage:\n  propbridge %s\n\nFlags:\n%s", c.summary, c.usage, fs.FlagUsages())
			return nil
		}
		return fmt.Errorf("%s: %w", c.name, err)
	}
	return c.run(a, opts, fs.Args())
}

type decodeOptions struct {
	typeExpr string
	property string
	hexInput bool
	strings  string
}

var decodeCommand = &command{
	name:    "decode",
	summary: "Decode a property buffer and print it as JSON",
	usage:   "decode (--type EXPR | --property Entity.Name) [--hex] [--strings FILE] [FILE]",
	flags: func(fs *pflag.FlagSet) any {
		o := &decodeOptions{}
		fs.StringVarP(&o.typeExpr, "type", "t", "", "type expression, e.g. 'dict<string,int32>'")
		fs.StringVarP(&o.property, "property", "p", "", "declared property as Entity.Name")
		fs.BoolVar(&o.hexInput, "hex", false, "input is hex text rather than raw bytes")
		fs.StringVar(&o.strings, "strings", "", "file of known strings, one per line, used to resolve hashed strings")
		return o
	},
	run: func(a *app, opts any, args []string) error {
		o := opts.(*decodeOptions)
		if len(args) > 1 {
			return fmt.Errorf("decode: at most one input file")
		}
		s, err := a.loadSchema()
		if err != nil {
			return err
		}
		t, err := resolveType(s, o.typeExpr, o.property)
		if err != nil {
			return err
		}
		data, err := a.readInput(firstArg(args))
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		if o.hexInput {
			data, err = hex.DecodeString(strings.Join(strings.Fields(string(data)), ""))
			if err != nil {
				return fmt.Errorf("hex input: %w", err)
			}
		}

		c, collector, err := a.newCodec(s, o.strings)
		if err != nil {
			return err
		}
		v, err := c.DecodeBytes(t, data)
		if err != nil {
			return err
		}
		defer release(v)

		native, err := c.ToNative(t, v)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(native, "", "  ")
		if err != nil {
			return fmt.Errorf("render json: %w", err)
		}
		a.logger.Debug("decoded",
			zap.String("type", t.String()),
			zap.Int("bytes", len(data)),
			zap.Int("containers", collector.Len()))
		_, err = fmt.Fprintln(a.stdout, string(out))
		return err
	},
}

type encodeOptions struct {
	typeExpr string
	property string
	output   string
}

var encodeCommand = &command{
	name:    "encode",
	summary: "Encode a JSON value into a property buffer",
	usage:   "encode (--type EXPR | --property Entity.Name) [--output FILE] [JSON]",
	flags: func(fs *pflag.FlagSet) any {
		o := &encodeOptions{}
		fs.StringVarP(&o.typeExpr, "type", "t", "", "type expression, e.g. 'int32[]'")
		fs.StringVarP(&o.property, "property", "p", "", "declared property as Entity.Name")
		fs.StringVarP(&o.output, "output", "o", "", "write raw bytes to FILE instead of hex to stdout")
		return o
	},
	run: func(a *app, opts any, args []string) error {
		o := opts.(*encodeOptions)
		if len(args) > 1 {
			return fmt.Errorf("encode: at most one JSON argument")
		}
		s, err := a.loadSchema()
		if err != nil {
			return err
		}
		t, err := resolveType(s, o.typeExpr, o.property)
		if err != nil {
			return err
		}

		var input []byte
		if len(args) == 1 {
			input = []byte(args[0])
		} else if input, err = a.readInput(""); err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		dec := json.NewDecoder(bytes.NewReader(input))
		dec.UseNumber()
		var native any
		if err := dec.Decode(&native); err != nil {
			return fmt.Errorf("parse json: %w", err)
		}

		c, _, err := a.newCodec(s, "")
		if err != nil {
			return err
		}
		v, err := c.FromNative(t, native)
		if err != nil {
			return err
		}
		defer release(v)
		data, err := c.EncodeBytes(t, v)
		if err != nil {
			return err
		}

		if o.output != "" {
			return os.WriteFile(o.output, data, 0o644)
		}
		_, err = fmt.Fprintln(a.stdout, hex.EncodeToString(data))
		return err
	},
}

type manifestOptions struct {
	cborPath string
	json     bool
}

var manifestCommand = &command{
	name:    "manifest",
	summary: "Print the declaration manifest and its fingerprint",
	usage:   "manifest [--json] [--cbor FILE]",
	flags: func(fs *pflag.FlagSet) any {
		o := &manifestOptions{}
		fs.StringVar(&o.cborPath, "cbor", "", "also write the CBOR manifest to FILE")
		fs.BoolVar(&o.json, "json", false, "print the manifest as JSON")
		return o
	},
	run: func(a *app, opts any, _ []string) error {
		o := opts.(*manifestOptions)
		s, err := a.loadSchema()
		if err != nil {
			return err
		}
		m := s.Manifest()
		data, err := m.Encode()
		if err != nil {
			return err
		}
		if o.cborPath != "" {
			if err := os.WriteFile(o.cborPath, data, 0o644); err != nil {
				return err
			}
		}
		fingerprint := schema.FingerprintOf(data)

		if o.json {
			out, err := json.MarshalIndent(struct {
				Fingerprint string `json:"fingerprint"`
				Manifest    any    `json:"manifest"`
			}{fingerprint, m}, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.stdout, string(out))
			return err
		}

		st := a.styles
		w := a.stdout
		fmt.Fprintf(w, "%s %s\n", st.title.Render("Fingerprint"), st.good.Render(fingerprint))
		fmt.Fprintf(w, "\n%s\n", st.title.Render("Types"))
		for _, t := range m.Types {
			extra := ""
			if t.Size > 0 {
				extra = fmt.Sprintf(" size=%d", t.Size)
			}
			if t.Global {
				extra += " global"
			}
			fmt.Fprintf(w, "  %s %s%s\n", st.name.Render(t.Name), st.typ.Render(t.Kind), st.dim.Render(extra))
		}
		fmt.Fprintf(w, "\n%s\n", st.title.Render("Properties"))
		for _, p := range m.Properties {
			mutable := ""
			if p.Mutable {
				mutable = " mutable"
			}
			fmt.Fprintf(w, "  %s %s%s\n", st.name.Render(p.Entity+"."+p.Name), st.typ.Render(p.Type), st.dim.Render(mutable))
		}
		fmt.Fprintf(w, "\n%s\n", st.title.Render("Calls"))
		for _, c := range m.Calls {
			fmt.Fprintf(w, "  %s %s(%s)\n", st.dim.Render(c.Direction), st.name.Render(c.Name), st.typ.Render(strings.Join(c.Args, ", ")))
		}
		return nil
	},
}

type callsOptions struct {
	direction string
}

var callsCommand = &command{
	name:    "calls",
	summary: "List declared remote calls",
	usage:   "calls [--direction inbound|outbound]",
	flags: func(fs *pflag.FlagSet) any {
		o := &callsOptions{}
		fs.StringVarP(&o.direction, "direction", "d", "", "only list calls in this direction")
		return o
	},
	run: func(a *app, opts any, _ []string) error {
		o := opts.(*callsOptions)
		var filter *remotecall.Direction
		if o.direction != "" {
			dir, err := remotecall.ParseDirection(o.direction)
			if err != nil {
				return err
			}
			filter = &dir
		}
		s, err := a.loadSchema()
		if err != nil {
			return err
		}

		st := a.styles
		for _, d := range s.Calls {
			if filter != nil && d.Direction != *filter {
				continue
			}
			line := fmt.Sprintf("%-8s %s", d.Direction, st.name.Render(d.Key()))
			args := make([]string, len(d.Args))
			for i, arg := range d.Args {
				args[i] = arg.String()
			}
			line += "(" + st.typ.Render(strings.Join(args, ", ")) + ")"
			if d.PassTarget {
				line += st.dim.Render(" [target]")
			}
			fmt.Fprintln(a.stdout, line)
		}
		return nil
	},
}

func release(v any) {
	if rc, ok := v.(propbridge.RefCounted); ok {
		rc.Release()
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
