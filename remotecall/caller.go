package remotecall

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/propbridge"
	"github.com/wippyai/propbridge/codec"
	"github.com/wippyai/propbridge/errors"
	"github.com/wippyai/propbridge/wire"
)

// Transport delivers an encoded outbound call to the peer. data is owned by
// the transport once Send is called.
type Transport interface {
	Send(ctx context.Context, name string, target propbridge.EntityRef, data []byte) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, name string, target propbridge.EntityRef, data []byte) error

func (f TransportFunc) Send(ctx context.Context, name string, target propbridge.EntityRef, data []byte) error {
	return f(ctx, name, target, data)
}

// Caller encodes outbound calls and hands them to a Transport.
type Caller struct {
	registry  *Registry
	codec     *codec.Codec
	transport Transport
	opts      Options
}

func NewCaller(registry *Registry, c *codec.Codec, transport Transport, opts Options) *Caller {
	return &Caller{registry: registry, codec: c, transport: transport, opts: opts}
}

// Call encodes args for the outbound call name and sends it to target.
// Arguments may be runtime values or plain Go values accepted by
// codec.FromNative.
func (c *Caller) Call(ctx context.Context, name string, target propbridge.EntityRef, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := c.Encode(name, args...)
	if err != nil {
		c.opts.enter(name, StateFailed)
		return err
	}

	if err := c.transport.Send(ctx, name, target, data); err != nil {
		c.opts.enter(name, StateFailed)
		Logger().Warn("remote call send failed",
			zap.String("call", name),
			zap.Int("bytes", len(data)),
			zap.Error(err))
		return errors.New(errors.PhaseSend, errors.KindTransport).
			Path(name).
			Cause(err).
			Build()
	}
	c.opts.enter(name, StateSent)
	return nil
}

// Encode builds the argument buffer of the outbound call name.
func (c *Caller) Encode(name string, args ...any) ([]byte, error) {
	d, ok := c.registry.Outbound(name)
	if !ok {
		return nil, errors.New(errors.PhaseSend, errors.KindInvalidInput).
			Path(name).
			Detail("unknown outbound call").
			Build()
	}
	c.opts.enter(name, StateEncoding)

	if len(args) != len(d.Args) {
		return nil, errors.New(errors.PhaseSend, errors.KindArgumentCountInvalid).
			Path(name).
			Detail("%s takes %d arguments, got %d", d, len(d.Args), len(args)).
			Build()
	}

	w := wire.GetWriter()
	defer w.Release()
	for i, t := range d.Args {
		v, err := c.codec.FromNative(t, args[i])
		if err == nil {
			err = c.codec.WriteArg(w, t, v)
			if rc, ok := v.(propbridge.RefCounted); ok && t.IsContainer() {
				rc.Release()
			}
		}
		if err != nil {
			return nil, errors.New(errors.PhaseSend, kindOf(err, errors.KindInvalidInput)).
				Path(name, argName(i)).
				Cause(err).
				Build()
		}
	}
	return append([]byte(nil), w.Bytes()...), nil
}
