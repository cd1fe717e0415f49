package remotecall

import (
	"strconv"

	"github.com/wippyai/propbridge/errors"
	"github.com/wippyai/propbridge/typedesc"
)

// Direction says which side of the connection encodes a call.
type Direction uint8

const (
	// Outbound calls are encoded locally and sent to the peer.
	Outbound Direction = iota
	// Inbound calls are received from the peer and dispatched locally.
	Inbound
)

func (d Direction) String() string {
	switch d {
	case Outbound:
		return "outbound"
	case Inbound:
		return "inbound"
	default:
		return "direction(" + strconv.Itoa(int(d)) + ")"
	}
}

// ParseDirection accepts "outbound" and "inbound".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "outbound", "out":
		return Outbound, nil
	case "inbound", "in":
		return Inbound, nil
	}
	return 0, errors.New(errors.PhaseRegister, errors.KindInvalidInput).
		Value(s).
		Detail("unknown call direction %q", s).
		Build()
}

// Desc declares one remote call.
type Desc struct {
	Name string
	// Subsystem selects the handler namespace for inbound calls.
	Subsystem  string
	Args       []*typedesc.ComplexTypeDesc
	Direction  Direction
	PassTarget bool
}

// Key is the handler lookup key, "subsystem/name" or just the name.
func (d *Desc) Key() string {
	if d.Subsystem == "" {
		return d.Name
	}
	return d.Subsystem + "/" + d.Name
}

// String renders the call as name(arg, ...).
func (d *Desc) String() string {
	s := d.Name + "("
	for i, a := range d.Args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + ")"
}

// Validate checks the name and every argument shape. Callbacks cannot be
// carried over the wire.
func (d *Desc) Validate() error {
	if d == nil {
		return errors.NilPointer(errors.PhaseRegister, nil, "*remotecall.Desc")
	}
	if d.Name == "" {
		return errors.InvalidInput(errors.PhaseRegister, "call name cannot be empty")
	}
	if d.Direction > Inbound {
		return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Path(d.Name).
			Detail("unknown direction %d", d.Direction).
			Build()
	}
	for i, arg := range d.Args {
		path := []string{d.Name, "arg" + strconv.Itoa(i)}
		if err := arg.Validate(); err != nil {
			return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
				Path(path...).
				Cause(err).
				Build()
		}
		if arg.Kind == typedesc.Callback {
			return errors.New(errors.PhaseRegister, errors.KindUnsupported).
				Path(path...).
				TypeName(arg.String()).
				Detail("callback arguments cannot be sent").
				Build()
		}
		if arg.Base.IsObject() || arg.Base.IsArray() {
			return errors.New(errors.PhaseRegister, errors.KindUnsupported).
				Path(path...).
				TypeName(arg.String()).
				Detail("%s values have no wire encoding", arg.Base.Kind).
				Build()
		}
	}
	return nil
}

// NewDesc parses argument type expressions against types.
func NewDesc(types *typedesc.Registry, dir Direction, name string, args ...string) (*Desc, error) {
	d := &Desc{Name: name, Direction: dir, Args: make([]*typedesc.ComplexTypeDesc, 0, len(args))}
	for _, expr := range args {
		t, err := types.Parse(expr)
		if err != nil {
			return nil, err
		}
		d.Args = append(d.Args, t)
	}
	return d, d.Validate()
}
