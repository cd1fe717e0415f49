package codec

import "github.com/wippyai/propbridge"

// Safety limits against hostile length fields.
const (
	MaxStringSize = 1 << 30 // 1 GB
	MaxElements   = 1 << 27 // 128M elements
)

// Options configures a Codec.
type Options struct {
	// Hashes resolves hashed strings. A fresh hashstr.Table is used when nil.
	Hashes propbridge.HashResolver

	// Entities resolves decoded entity ids. When nil, ids decode to
	// propbridge.EntityID.
	Entities propbridge.EntityResolver

	// MaxStringSize limits any single decoded string.
	MaxStringSize uint32

	// MaxElements limits the element count of any decoded container.
	MaxElements uint32
}

// DefaultOptions returns the default codec options.
func DefaultOptions() Options {
	return Options{
		MaxStringSize: MaxStringSize,
		MaxElements:   MaxElements,
	}
}
