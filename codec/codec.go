package codec

import (
	"strconv"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/wippyai/propbridge"
	"github.com/wippyai/propbridge/container"
	"github.com/wippyai/propbridge/errors"
	"github.com/wippyai/propbridge/hashstr"
	"github.com/wippyai/propbridge/typedesc"
	"github.com/wippyai/propbridge/wire"
)

// Codec converts between property bytes and runtime values. It holds no
// per-call state and is safe for concurrent use.
type Codec struct {
	factory  *container.Factory
	hashes   propbridge.HashResolver
	entities propbridge.EntityResolver
	opts     Options
}

// New creates a codec creating containers through factory.
func New(factory *container.Factory, opts Options) *Codec {
	if factory == nil {
		factory = container.NewFactory(nil, nil)
	}
	if opts.Hashes == nil {
		opts.Hashes = hashstr.NewTable()
	}
	if opts.MaxStringSize == 0 {
		opts.MaxStringSize = MaxStringSize
	}
	if opts.MaxElements == 0 {
		opts.MaxElements = MaxElements
	}
	return &Codec{
		factory:  factory,
		hashes:   opts.Hashes,
		entities: opts.Entities,
		opts:     opts,
	}
}

// Factory returns the container factory.
func (c *Codec) Factory() *container.Factory { return c.factory }

// Hashes returns the hash resolver.
func (c *Codec) Hashes() propbridge.HashResolver { return c.hashes }

// Decode builds the runtime value of prop from raw.
func (c *Codec) Decode(prop *typedesc.ComplexTypeDesc, raw *RawData) (any, error) {
	return c.DecodeBytes(prop, raw.Bytes())
}

// DecodeBytes is Decode over a plain byte slice.
func (c *Codec) DecodeBytes(prop *typedesc.ComplexTypeDesc, data []byte) (any, error) {
	if err := prop.Validate(); err != nil {
		return nil, err
	}

	var (
		v   any
		err error
	)
	switch prop.Kind {
	case typedesc.Simple:
		v, err = c.decodeSimple(prop.Base, data)
	case typedesc.Array:
		v, err = c.decodeArray(prop.Base, data)
	case typedesc.Dict:
		v, err = c.decodeDict(prop.Key, prop.Base, data)
	case typedesc.DictOfArray:
		v, err = c.decodeDictOfArray(prop.Key, prop.Base, data)
	default:
		err = errors.Unsupported(errors.PhaseDecode, prop.Kind.String()+" properties")
	}
	if err != nil {
		Logger().Debug("property decode failed",
			zap.String("type", prop.String()),
			zap.Int("bytes", len(data)),
			zap.Error(err))
		return nil, err
	}
	return v, nil
}

// Encode produces the canonical bytes of value for prop.
func (c *Codec) Encode(prop *typedesc.ComplexTypeDesc, value any) (*RawData, error) {
	data, err := c.EncodeBytes(prop, value)
	if err != nil {
		return nil, err
	}
	raw := &RawData{}
	copy(raw.Alloc(len(data)), data)
	return raw, nil
}

// EncodeBytes is Encode returning a fresh byte slice.
func (c *Codec) EncodeBytes(prop *typedesc.ComplexTypeDesc, value any) ([]byte, error) {
	if err := prop.Validate(); err != nil {
		return nil, err
	}

	w := wire.GetWriter()
	defer w.Release()

	var err error
	switch prop.Kind {
	case typedesc.Simple:
		err = c.encodeSimple(w, prop.Base, value)
	case typedesc.Array:
		err = c.encodeArray(w, prop.Base, value, false)
	case typedesc.Dict:
		err = c.encodeDict(w, prop, value, false)
	case typedesc.DictOfArray:
		err = c.encodeDict(w, prop, value, false)
	default:
		err = errors.Unsupported(errors.PhaseEncode, prop.Kind.String()+" properties")
	}
	if err != nil {
		Logger().Debug("property encode failed",
			zap.String("type", prop.String()),
			zap.Error(err))
		return nil, err
	}
	return append([]byte(nil), w.Bytes()...), nil
}

func (c *Codec) decodeSimple(t *typedesc.BaseTypeDesc, data []byte) (any, error) {
	switch t.Kind {
	case typedesc.KindString:
		if len(data) > int(c.opts.MaxStringSize) {
			return nil, errors.Overflow(errors.PhaseDecode, nil, len(data), t.Name)
		}
		if !utf8.Valid(data) {
			return nil, errors.InvalidUTF8(errors.PhaseDecode, nil, data)
		}
		return string(data), nil
	case typedesc.KindHashedString:
		r := wire.NewReader(data)
		h, err := r.Uint(t.Size)
		if err != nil {
			return nil, err
		}
		if !r.Done() {
			return nil, errors.TrailingData(errors.PhaseDecode, nil, r.Remaining())
		}
		return c.resolveHash(h)
	}

	r := wire.NewReader(data)
	v, err := c.readElem(r, t, nil)
	if err != nil {
		return nil, err
	}
	if !r.Done() {
		return nil, errors.TrailingData(errors.PhaseDecode, nil, r.Remaining())
	}
	return v, nil
}

func (c *Codec) resolveHash(h uint64) (any, error) {
	text, err := c.hashes.ResolveHash(h)
	if err != nil {
		if errors.IsKind(err, errors.KindUnresolvableHash) {
			return nil, err
		}
		return nil, errors.New(errors.PhaseDecode, errors.KindUnresolvableHash).
			Value(h).
			Cause(err).
			Build()
	}
	text, full := c.hashes.ToHashedString(text)
	return hashstr.HString{Text: text, Hash: full}, nil
}

func (c *Codec) encodeSimple(w *wire.Writer, t *typedesc.BaseTypeDesc, v any) error {
	switch t.Kind {
	case typedesc.KindString:
		s, ok := v.(string)
		if !ok {
			return errors.TypeMismatch(errors.PhaseEncode, nil, goTypeName(v), t.Name)
		}
		w.WriteBytes([]byte(s))
		return nil
	case typedesc.KindHashedString:
		return c.writeHash(w, t, v, nil)
	default:
		return c.writeElem(w, t, v, nil)
	}
}

// writeHash writes the Size-byte hash of a hashed string.
func (c *Codec) writeHash(w *wire.Writer, t *typedesc.BaseTypeDesc, v any, path []string) error {
	hs, ok := v.(hashstr.HString)
	if !ok {
		return errors.TypeMismatch(errors.PhaseEncode, path, goTypeName(v), t.Name)
	}
	// The written hash must resolve through c.hashes.
	if hs.Text != "" {
		hs.Text, hs.Hash = c.hashes.ToHashedString(hs.Text)
	}
	w.Uint(hs.Hash, t.Size)
	return nil
}

func (c *Codec) readCount(r *wire.Reader, minSize int, path []string) (int, error) {
	n, err := r.Count(minSize)
	if err != nil {
		return 0, err
	}
	if uint32(n) > c.opts.MaxElements {
		return 0, errors.Overflow(errors.PhaseDecode, path, n, "element count")
	}
	return n, nil
}

// readArrayBody reads a u32 count and that many elements into a new array.
func (c *Codec) readArrayBody(r *wire.Reader, elem *typedesc.BaseTypeDesc, path []string) (*container.Array, error) {
	n, err := c.readCount(r, minElemSize(elem), path)
	if err != nil {
		return nil, err
	}
	arr := c.factory.NewArray(elem)
	arr.Reserve(n)
	for i := 0; i < n; i++ {
		v, err := c.readElem(r, elem, indexPath(path, i))
		if err == nil {
			err = arr.InsertLast(v)
		}
		if err != nil {
			arr.Release()
			return nil, err
		}
	}
	return arr, nil
}

func (c *Codec) decodeArray(elem *typedesc.BaseTypeDesc, data []byte) (any, error) {
	if len(data) == 0 {
		return c.factory.NewArray(elem), nil
	}
	r := wire.NewReader(data)
	arr, err := c.readArrayBody(r, elem, nil)
	if err != nil {
		return nil, err
	}
	if !r.Done() {
		arr.Release()
		return nil, errors.TrailingData(errors.PhaseDecode, nil, r.Remaining())
	}
	return arr, nil
}

func (c *Codec) decodeDict(key, val *typedesc.BaseTypeDesc, data []byte) (any, error) {
	d := c.factory.NewDict(key, val)
	if len(data) == 0 {
		return d, nil
	}

	r := wire.NewReader(data)
	ks, kfixed := elemSize(key)
	vs, vfixed := elemSize(val)
	count := -1
	if kfixed && vfixed {
		pair := ks + vs
		if pair == 0 || len(data)%pair != 0 {
			d.Release()
			return nil, errors.New(errors.PhaseDecode, errors.KindMalformedLength).
				Value(len(data)).
				Detail("%d bytes is not a multiple of the %d-byte entry size", len(data), pair).
				Build()
		}
		count = len(data) / pair
	}

	more := func(i int) bool {
		if count >= 0 {
			return i < count
		}
		return !r.Done()
	}
	for i := 0; more(i); i++ {
		if err := c.readDictEntry(r, d, key, func(path []string) (any, error) {
			return c.readElem(r, val, path)
		}, i); err != nil {
			d.Release()
			return nil, err
		}
	}
	return d, nil
}

func (c *Codec) decodeDictOfArray(key, elem *typedesc.BaseTypeDesc, data []byte) (any, error) {
	d := c.factory.NewDictOfArray(key, elem)
	if len(data) == 0 {
		return d, nil
	}

	r := wire.NewReader(data)
	for i := 0; !r.Done(); i++ {
		if err := c.readDictEntry(r, d, key, func(path []string) (any, error) {
			return c.readArrayBody(r, elem, path)
		}, i); err != nil {
			d.Release()
			return nil, err
		}
	}
	return d, nil
}

// readDictEntry reads one key and its value and inserts them into d. The
// value reader may return a container; its reference passes to d.
func (c *Codec) readDictEntry(r *wire.Reader, d *container.Dict, key *typedesc.BaseTypeDesc, readValue func([]string) (any, error), i int) error {
	path := []string{"[" + strconv.Itoa(i) + "]"}
	k, err := c.readElem(r, key, path)
	if err != nil {
		return err
	}
	v, err := readValue(path)
	if err != nil {
		return err
	}
	err = d.Insert(k, v)
	if arr, ok := v.(*container.Array); ok {
		arr.Release()
	}
	if errors.IsKind(err, errors.KindDuplicateKey) {
		return errors.DuplicateKey(errors.PhaseDecode, path, k)
	}
	return err
}

func (c *Codec) encodeArray(w *wire.Writer, elem *typedesc.BaseTypeDesc, v any, framed bool) error {
	arr, ok := v.(*container.Array)
	if !ok || arr == nil {
		if v == nil {
			if framed {
				w.U32(0)
			}
			return nil
		}
		return errors.TypeMismatch(errors.PhaseEncode, nil, goTypeName(v), elem.Name+"[]")
	}
	if arr.IsEmpty() && !framed {
		return nil
	}
	return c.writeArrayBody(w, elem, arr, nil)
}

func (c *Codec) writeArrayBody(w *wire.Writer, elem *typedesc.BaseTypeDesc, arr *container.Array, path []string) error {
	if arr.ElemType().Name != elem.Name {
		return errors.TypeMismatch(errors.PhaseEncode, path, arr.ElemType().Name+"[]", elem.Name+"[]")
	}
	w.U32(arr.GetSize())
	var err error
	arr.Each(func(i int, item any) bool {
		err = c.writeElem(w, elem, item, indexPath(path, i))
		return err == nil
	})
	return err
}

// encodeDict writes the entries of a Dict or DictOfArray value. framed
// prefixes the entry count, as call arguments need.
func (c *Codec) encodeDict(w *wire.Writer, prop *typedesc.ComplexTypeDesc, v any, framed bool) error {
	d, ok := v.(*container.Dict)
	if !ok || d == nil {
		if v == nil {
			if framed {
				w.U32(0)
			}
			return nil
		}
		return errors.TypeMismatch(errors.PhaseEncode, nil, goTypeName(v), prop.String())
	}
	if d.KeyType().Name != prop.Key.Name {
		return errors.TypeMismatch(errors.PhaseEncode, nil, "dict<"+d.KeyType().Name+",...>", prop.String())
	}
	if framed {
		w.U32(d.GetSize())
	}

	var err error
	i := 0
	d.Each(func(key, value any) bool {
		path := []string{"[" + strconv.Itoa(i) + "]"}
		i++
		if err = c.writeElem(w, prop.Key, key, path); err != nil {
			return false
		}
		if prop.Kind == typedesc.DictOfArray {
			arr, ok := value.(*container.Array)
			if !ok || arr == nil {
				if value != nil {
					err = errors.TypeMismatch(errors.PhaseEncode, path, goTypeName(value), prop.Base.Name+"[]")
					return false
				}
				w.U32(0)
				return true
			}
			err = c.writeArrayBody(w, prop.Base, arr, path)
			return err == nil
		}
		err = c.writeElem(w, prop.Base, value, path)
		return err == nil
	})
	return err
}
