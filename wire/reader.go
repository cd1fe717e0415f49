package wire

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/wippyai/propbridge/errors"
)

// Reader consumes fixed-width little-endian values from a byte slice with
// position tracking.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader over data. The slice is not copied.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Position returns the current byte position.
func (r *Reader) Position() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Done reports whether the buffer is exhausted.
func (r *Reader) Done() bool {
	return r.pos >= len(r.data)
}

// Need fails with MalformedLength unless n more bytes are available.
func (r *Reader) Need(n int) error {
	if n < 0 || n > r.Remaining() {
		return r.malformed(n)
	}
	return nil
}

// Next returns the next n bytes without copying and advances.
func (r *Reader) Next(n int) ([]byte, error) {
	if err := r.Need(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadBytes returns a copy of the next n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.Next(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

func (r *Reader) U8() (uint8, error) {
	if err := r.Need(1); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) U16() (uint16, error) {
	b, err := r.Next(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) U32() (uint32, error) {
	b, err := r.Next(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) U64() (uint64, error) {
	b, err := r.Next(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	return math.Float32frombits(v), err
}

func (r *Reader) F64() (float64, error) {
	v, err := r.U64()
	return math.Float64frombits(v), err
}

// Uint reads size bytes and zero-extends them. size must be 1, 2, 4 or 8.
func (r *Reader) Uint(size uint32) (uint64, error) {
	switch size {
	case 1:
		v, err := r.U8()
		return uint64(v), err
	case 2:
		v, err := r.U16()
		return uint64(v), err
	case 4:
		v, err := r.U32()
		return uint64(v), err
	case 8:
		return r.U64()
	default:
		return 0, errors.New(errors.PhaseDecode, errors.KindUnsupported).
			Detail("integer width %d at position %d", size, r.pos).
			Build()
	}
}

// Count reads a u32 element count and checks that at least minElemSize
// bytes per element remain.
func (r *Reader) Count(minElemSize int) (int, error) {
	start := r.pos
	n, err := r.U32()
	if err != nil {
		return 0, err
	}
	if minElemSize > 0 && uint64(n)*uint64(minElemSize) > uint64(r.Remaining()) {
		r.pos = start
		return 0, errors.New(errors.PhaseDecode, errors.KindMalformedLength).
			Value(n).
			Detail("count %d needs at least %d bytes at position %d, %d remaining",
				n, uint64(n)*uint64(minElemSize), start+4, r.Remaining()-4).
			Build()
	}
	return int(n), nil
}

// String reads a u32 byte length followed by UTF-8 text.
func (r *Reader) String(maxSize int) (string, error) {
	start := r.pos
	n, err := r.U32()
	if err != nil {
		return "", err
	}
	if maxSize > 0 && int64(n) > int64(maxSize) {
		r.pos = start
		return "", errors.New(errors.PhaseDecode, errors.KindOverflow).
			Value(n).
			Detail("string length %d exceeds maximum %d", n, maxSize).
			Build()
	}
	b, err := r.Next(int(n))
	if err != nil {
		r.pos = start
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.InvalidUTF8(errors.PhaseDecode, nil, b)
	}
	return string(b), nil
}

// Rest returns all unread bytes and exhausts the reader.
func (r *Reader) Rest() []byte {
	b := r.data[r.pos:]
	r.pos = len(r.data)
	return b
}

func (r *Reader) malformed(n int) *errors.Error {
	return errors.New(errors.PhaseDecode, errors.KindMalformedLength).
		Value(n).
		Detail("need %d bytes at position %d, %d remaining", n, r.pos, r.Remaining()).
		Build()
}
