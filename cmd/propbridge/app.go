package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/propbridge/codec"
	"github.com/wippyai/propbridge/container"
	"github.com/wippyai/propbridge/gc"
	"github.com/wippyai/propbridge/hashstr"
	"github.com/wippyai/propbridge/remotecall"
	"github.com/wippyai/propbridge/schema"
	"github.com/wippyai/propbridge/typedesc"
)

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	schemaPaths []string
	verbose     bool
	noColor     bool

	logger *zap.Logger
	styles styles
}

type styles struct {
	title lipgloss.Style
	name  lipgloss.Style
	typ   lipgloss.Style
	dim   lipgloss.Style
	good  lipgloss.Style
}

func (a *app) init() {
	a.logger = newLogger(a.stderr, a.verbose)
	codec.SetLogger(a.logger.Named("codec"))
	container.SetLogger(a.logger.Named("container"))
	gc.SetLogger(a.logger.Named("gc"))
	hashstr.SetLogger(a.logger.Named("hashstr"))
	remotecall.SetLogger(a.logger.Named("remotecall"))
	schema.SetLogger(a.logger.Named("schema"))

	a.styles = newStyles(!a.noColor && isTerminal(a.stdout))
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// newLogger logs to w at debug level when verbose, otherwise discards.
// Terminals get the console encoder, pipes get JSON.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	var enc zapcore.Encoder
	if isTerminal(w) {
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.DebugLevel))
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{title: plain, name: plain, typ: plain, dim: plain, good: plain}
	}
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1),
		name: lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98")),
		typ:  lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")),
		dim:  lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
		good: lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90")),
	}
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// loadSchema merges every --schema file and resolves it.
func (a *app) loadSchema() (*schema.Schema, error) {
	merged := &schema.File{}
	for _, path := range a.schemaPaths {
		f, err := schema.Load(path)
		if err != nil {
			return nil, err
		}
		merged.Merge(f)
	}
	return schema.Build(merged, nil, schema.Options{})
}

// newCodec builds a codec over s's types. Every string in stringsPath is
// interned so hashed strings can be resolved.
func (a *app) newCodec(s *schema.Schema, stringsPath string) (*codec.Codec, *gc.Collector, error) {
	table := hashstr.NewTable()
	if stringsPath != "" {
		n, err := internFile(table, stringsPath)
		if err != nil {
			return nil, nil, err
		}
		a.logger.Debug("strings interned", zap.String("path", stringsPath), zap.Int("count", n))
	}
	collector := gc.NewCollector()
	opts := codec.DefaultOptions()
	opts.Hashes = table
	return codec.New(container.NewFactory(s.Types(), collector), opts), collector, nil
}

func internFile(table *hashstr.Table, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("read strings: %w", err)
	}
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		table.Intern(line)
		n++
	}
	return n, scanner.Err()
}

// resolveType picks the descriptor named by --type or --property.
func resolveType(s *schema.Schema, expr, property string) (*typedesc.ComplexTypeDesc, error) {
	switch {
	case expr != "" && property != "":
		return nil, fmt.Errorf("--type and --property are mutually exclusive")
	case property != "":
		entity, name, ok := strings.Cut(property, ".")
		if !ok {
			return nil, fmt.Errorf("property %q: want Entity.Name", property)
		}
		p, ok := s.Property(entity, name)
		if !ok {
			return nil, fmt.Errorf("property %q is not declared", property)
		}
		return p.Type, nil
	case expr != "":
		return s.Types().Parse(expr)
	}
	return nil, fmt.Errorf("one of --type or --property is required")
}

// readInput reads the named file, or stdin for "" and "-".
func (a *app) readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(a.stdin)
	}
	return os.ReadFile(path)
}
