package codec

import (
	"github.com/wippyai/propbridge/container"
	"github.com/wippyai/propbridge/errors"
	"github.com/wippyai/propbridge/typedesc"
	"github.com/wippyai/propbridge/wire"
)

// WriteArg appends one remote call argument of shape t.
func (c *Codec) WriteArg(w *wire.Writer, t *typedesc.ComplexTypeDesc, v any) error {
	switch t.Kind {
	case typedesc.Simple:
		if t.Base.IsHashedString() {
			return c.writeHash(w, t.Base, v, nil)
		}
		return c.writeElem(w, t.Base, v, nil)
	case typedesc.Array:
		return c.encodeArray(w, t.Base, v, true)
	case typedesc.Dict, typedesc.DictOfArray:
		return c.encodeDict(w, t, v, true)
	default:
		return errors.Unsupported(errors.PhaseEncode, t.Kind.String()+" arguments")
	}
}

// ReadArg decodes one remote call argument of shape t. Containers are
// returned with one reference owned by the caller.
func (c *Codec) ReadArg(r *wire.Reader, t *typedesc.ComplexTypeDesc) (any, error) {
	switch t.Kind {
	case typedesc.Simple:
		if t.Base.IsHashedString() {
			h, err := r.Uint(t.Base.Size)
			if err != nil {
				return nil, err
			}
			return c.resolveHash(h)
		}
		return c.readElem(r, t.Base, nil)
	case typedesc.Array:
		return c.readArrayBody(r, t.Base, nil)
	case typedesc.Dict:
		n, err := c.readCount(r, minElemSize(t.Key)+minElemSize(t.Base), nil)
		if err != nil {
			return nil, err
		}
		d := c.factory.NewDict(t.Key, t.Base)
		return c.readEntries(r, d, t.Key, n, func(path []string) (any, error) {
			return c.readElem(r, t.Base, path)
		})
	case typedesc.DictOfArray:
		n, err := c.readCount(r, minElemSize(t.Key)+4, nil)
		if err != nil {
			return nil, err
		}
		d := c.factory.NewDictOfArray(t.Key, t.Base)
		return c.readEntries(r, d, t.Key, n, func(path []string) (any, error) {
			return c.readArrayBody(r, t.Base, path)
		})
	default:
		return nil, errors.Unsupported(errors.PhaseDecode, t.Kind.String()+" arguments")
	}
}

func (c *Codec) readEntries(r *wire.Reader, d *container.Dict, key *typedesc.BaseTypeDesc, n int, readValue func([]string) (any, error)) (any, error) {
	for i := 0; i < n; i++ {
		if err := c.readDictEntry(r, d, key, readValue, i); err != nil {
			d.Release()
			return nil, err
		}
	}
	return d, nil
}
