package wire

import (
	"encoding/binary"
	"math"
	"sync"
)

const maxPooledCapacity = 64 << 10

var writerPool = sync.Pool{
	New: func() any {
		return &Writer{buf: make([]byte, 0, 256)}
	},
}

// Writer appends fixed-width little-endian values to a byte slice.
type Writer struct {
	buf []byte
}

// NewWriter creates a new Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// GetWriter returns a pooled Writer. Call Release when done; Bytes is
// invalid afterwards.
func GetWriter() *Writer {
	return writerPool.Get().(*Writer)
}

// Release returns the writer to the pool.
func (w *Writer) Release() {
	if cap(w.buf) > maxPooledCapacity {
		return
	}
	w.buf = w.buf[:0]
	writerPool.Put(w)
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Reset discards written bytes, keeping capacity.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
}

// Truncate drops everything after n bytes.
func (w *Writer) Truncate(n int) {
	w.buf = w.buf[:n]
}

func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) U16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) U32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) U64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) F32(v float32) {
	w.U32(math.Float32bits(v))
}

func (w *Writer) F64(v float64) {
	w.U64(math.Float64bits(v))
}

// Uint writes the low size bytes of v. size must be 1, 2, 4 or 8.
func (w *Writer) Uint(v uint64, size uint32) {
	switch size {
	case 1:
		w.U8(uint8(v))
	case 2:
		w.U16(uint16(v))
	case 4:
		w.U32(uint32(v))
	default:
		w.U64(v)
	}
}

// WriteBytes writes raw bytes without framing.
func (w *Writer) WriteBytes(data []byte) {
	w.buf = append(w.buf, data...)
}

// String writes a u32 byte length followed by the bytes. No terminator.
func (w *Writer) String(s string) {
	w.U32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// Reserve returns a zeroed n-byte slice appended to the buffer.
func (w *Writer) Reserve(n int) []byte {
	start := len(w.buf)
	w.buf = append(w.buf, make([]byte, n)...)
	return w.buf[start:]
}
