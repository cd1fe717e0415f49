package remotecall

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/propbridge/errors"
)

type inboundCall struct {
	desc    *Desc
	handler Handler
}

// Registry holds the declared calls of one process. Outbound and inbound
// names are separate namespaces, so a process may both send and serve a
// call of the same name.
type Registry struct {
	binder   HandlerBinder
	outbound map[string]*Desc
	inbound  map[string]*inboundCall
	mu       sync.RWMutex
}

// NewRegistry returns an empty registry binding inbound calls through
// binder. binder may be nil for a send-only process.
func NewRegistry(binder HandlerBinder) *Registry {
	return &Registry{
		binder:   binder,
		outbound: make(map[string]*Desc),
		inbound:  make(map[string]*inboundCall),
	}
}

// RegisterOutbound declares a call this process sends.
func (r *Registry) RegisterOutbound(d *Desc) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if d.Direction != Outbound {
		return directionError(d, Outbound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.outbound[d.Name]; exists {
		return duplicateCall(d)
	}
	r.outbound[d.Name] = d
	return nil
}

// RegisterInbound declares a call this process serves and binds its
// handler. A missing or incompatible handler fails with
// ErrHandlerNotFound; callers treat it as fatal.
func (r *Registry) RegisterInbound(d *Desc) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if d.Direction != Inbound {
		return directionError(d, Inbound)
	}
	if r.binder == nil {
		return errors.HandlerNotFound(d.Subsystem, d.Name, errors.InvalidInput(errors.PhaseRegister, "registry has no handler binder"))
	}

	h, err := r.binder.LookupHandler(d.Key(), SignatureOf(d))
	if err != nil || h == nil {
		if errors.IsKind(err, errors.KindHandlerNotFound) {
			err = nil
		}
		return errors.HandlerNotFound(d.Subsystem, d.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.inbound[d.Name]; exists {
		return duplicateCall(d)
	}
	r.inbound[d.Name] = &inboundCall{desc: d, handler: h}
	Logger().Debug("inbound call bound",
		zap.String("call", d.Key()),
		zap.Int("args", len(d.Args)))
	return nil
}

// RegisterAll registers every desc by direction. Unbound inbound calls are
// collected and reported together as a *errors.MissingHandlersError; any
// other failure stops registration.
func (r *Registry) RegisterAll(descs []*Desc) error {
	var missing []string
	for _, d := range descs {
		var err error
		if d != nil && d.Direction == Inbound {
			err = r.RegisterInbound(d)
			if errors.IsKind(err, errors.KindHandlerNotFound) {
				Logger().Error("no handler for inbound call",
					zap.String("call", d.Key()),
					zap.Error(err))
				missing = append(missing, d.Key())
				continue
			}
		} else {
			err = r.RegisterOutbound(d)
		}
		if err != nil {
			return err
		}
	}
	if len(missing) > 0 {
		return errors.NewMissingHandlersError(missing)
	}
	return nil
}

// Outbound returns the outbound call named name.
func (r *Registry) Outbound(name string) (*Desc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.outbound[name]
	return d, ok
}

// Inbound returns the inbound call named name.
func (r *Registry) Inbound(name string) (*Desc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.inbound[name]
	if !ok {
		return nil, false
	}
	return c.desc, true
}

func (r *Registry) inboundCall(name string) (*inboundCall, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.inbound[name]
	return c, ok
}

// Calls returns every declared call, outbound first, each group sorted by
// name.
func (r *Registry) Calls() []*Desc {
	r.mu.RLock()
	out := make([]*Desc, 0, len(r.outbound)+len(r.inbound))
	for _, d := range r.outbound {
		out = append(out, d)
	}
	for _, c := range r.inbound {
		out = append(out, c.desc)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Direction != out[j].Direction {
			return out[i].Direction < out[j].Direction
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func directionError(d *Desc, want Direction) error {
	return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
		Path(d.Name).
		Detail("call is %s, registered as %s", d.Direction, want).
		Build()
}

func duplicateCall(d *Desc) error {
	return errors.New(errors.PhaseRegister, errors.KindRegistration).
		Path(d.Name).
		Detail("%s call already registered", d.Direction).
		Build()
}
