package codec

// RawData owns the canonical bytes of one property value. It is either
// empty or fully populated.
type RawData struct {
	data []byte
}

// NewRawData returns raw data holding a copy of data.
func NewRawData(data []byte) *RawData {
	r := &RawData{}
	r.Pass(data)
	return r
}

// Alloc replaces the contents with size zeroed bytes and returns them for
// filling.
func (r *RawData) Alloc(size int) []byte {
	r.data = make([]byte, size)
	return r.data
}

// Pass replaces the contents with a copy of data.
func (r *RawData) Pass(data []byte) {
	if len(data) == 0 {
		r.data = nil
		return
	}
	r.data = append(make([]byte, 0, len(data)), data...)
}

// Bytes returns the contents. The slice is owned by r.
func (r *RawData) Bytes() []byte {
	if r == nil {
		return nil
	}
	return r.data
}

// Len returns the number of bytes held.
func (r *RawData) Len() int {
	if r == nil {
		return 0
	}
	return len(r.data)
}

// IsEmpty reports whether r holds no bytes.
func (r *RawData) IsEmpty() bool { return r.Len() == 0 }

// Reset drops the contents.
func (r *RawData) Reset() {
	r.data = nil
}
