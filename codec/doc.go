// Package codec converts property values between their canonical byte
// encoding and runtime values.
//
// # Wire Layout
//
// All integers are little-endian. The layout is chosen by the property's
// ComplexTypeDesc:
//
//	Simple primitive    raw bytes of the declared size
//	Simple enum         declared width (1, 2 or 4), zero-extended to int32
//	Simple string       the whole buffer is the text
//	Simple hstring      4 or 8 byte hash, resolved through the HashResolver
//	Simple struct       raw bytes of the declared size
//	Array               u32 count, then count elements
//	Dict                key, value pairs until the buffer is exhausted
//	DictOfArray         key, u32 count, count elements, until exhausted
//
// Inside containers strings and hashed strings are u32 length-prefixed
// text. An empty container encodes to zero bytes and a zero-length buffer
// decodes to an empty container.
//
// # Runtime Values
//
//	primitive   bool, int8..int64, uint8..uint64, float32, float64
//	enum        int32
//	string      string
//	hstring     hashstr.HString
//	struct      the registered Go type, or container.RawStruct
//	entity      propbridge.EntityRef
//	containers  *container.Array, *container.Dict
//
// # Call Arguments
//
// WriteArg and ReadArg apply the same element rules to remote call
// arguments. Because arguments are concatenated, strings, arrays and dicts
// always carry a u32 length or count there, even when empty.
//
// # Failure
//
// A failing decode releases every container it created. The caller never
// sees a partially decoded value.
package codec
