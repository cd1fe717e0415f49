// Package wire provides the bounds-checked binary cursor used by the
// property codec and the remote call codec.
//
// All integers are little-endian and fixed width. A Reader never reads past
// the end of its buffer: every short read reports a MalformedLength error
// carrying the cursor position.
package wire
