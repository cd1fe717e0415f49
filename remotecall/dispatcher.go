package remotecall

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/propbridge"
	"github.com/wippyai/propbridge/codec"
	"github.com/wippyai/propbridge/errors"
	"github.com/wippyai/propbridge/wire"
)

// Message is one received call as delivered by the transport.
type Message struct {
	Target propbridge.EntityRef
	Name   string
	Data   []byte
}

// Dispatcher decodes inbound calls and invokes their bound handlers.
type Dispatcher struct {
	registry *Registry
	codec    *codec.Codec
	opts     Options
}

func NewDispatcher(registry *Registry, c *codec.Codec, opts Options) *Dispatcher {
	return &Dispatcher{registry: registry, codec: c, opts: opts}
}

// Dispatch decodes data as the arguments of the inbound call name and runs
// its handler once. Decode failures, unknown calls and handler failures are
// returned; none of them panic.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, target propbridge.EntityRef, data []byte) error {
	d.opts.enter(name, StateReceived)

	call, ok := d.registry.inboundCall(name)
	if !ok {
		d.opts.enter(name, StateFailed)
		return errors.New(errors.PhaseDispatch, errors.KindHandlerNotFound).
			Path(name).
			Detail("unknown inbound call").
			Build()
	}

	temps := newTemporaries()
	defer temps.Release()

	d.opts.enter(name, StateDecoding)
	args, err := d.decodeArgs(call.desc, data, temps)
	if err != nil {
		d.opts.enter(name, StateFailed)
		Logger().Debug("inbound call decode failed",
			zap.String("call", name),
			zap.Int("bytes", len(data)),
			zap.Error(err))
		return err
	}

	d.opts.enter(name, StateDispatching)
	if err := invoke(ctx, call, target, args); err != nil {
		temps.ReleaseAll()
		d.opts.enter(name, StateFailed)
		Logger().Error("remote call handler failed",
			zap.String("call", call.desc.Key()),
			zap.Error(err))
		return err
	}

	temps.ReleaseAll()
	d.opts.enter(name, StateReleased)
	return nil
}

func (d *Dispatcher) decodeArgs(desc *Desc, data []byte, temps *temporaries) ([]any, error) {
	r := wire.NewReader(data)
	args := make([]any, len(desc.Args))
	for i, t := range desc.Args {
		v, err := d.codec.ReadArg(r, t)
		if err != nil {
			return nil, errors.New(errors.PhaseDispatch, kindOf(err, errors.KindMalformedLength)).
				Path(desc.Name, argName(i)).
				Cause(err).
				Build()
		}
		// Handles from the entity resolver are borrowed; only containers
		// created by the decode belong to the call.
		if t.IsContainer() {
			temps.Add(v)
		}
		args[i] = v
	}
	if !r.Done() {
		return nil, errors.TrailingData(errors.PhaseDispatch, []string{desc.Name}, r.Remaining())
	}
	return args, nil
}

// invoke runs the handler, turning a returned error or a panic into a
// HandlerException.
func invoke(ctx context.Context, call *inboundCall, target propbridge.EntityRef, args []any) (err error) {
	defer func() {
		if p := recover(); p != nil {
			cause, ok := p.(error)
			if !ok {
				cause = fmt.Errorf("panic: %v", p)
			}
			err = errors.HandlerException(call.desc.Key(), cause)
		}
	}()

	if !call.desc.PassTarget {
		target = nil
	}
	if herr := call.handler(ctx, target, args); herr != nil {
		return errors.HandlerException(call.desc.Key(), herr)
	}
	return nil
}

// Serve dispatches messages in arrival order until msgs is closed or ctx is
// done. Failed calls are logged and skipped.
func (d *Dispatcher) Serve(ctx context.Context, msgs <-chan Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := d.Dispatch(ctx, m.Name, m.Target, m.Data); err != nil {
				Logger().Warn("dropped inbound call",
					zap.String("call", m.Name),
					zap.String("kind", string(errors.KindOf(err))),
					zap.Error(err))
			}
		}
	}
}

func argName(i int) string {
	return "arg" + strconv.Itoa(i)
}

func kindOf(err error, fallback errors.Kind) errors.Kind {
	if k := errors.KindOf(err); k != "" {
		return k
	}
	return fallback
}
