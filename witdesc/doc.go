// Package witdesc imports type descriptors from WIT definitions.
//
// Component interfaces already describe the records, enums and lists that
// game code exchanges. The Importer maps them onto property descriptors so
// the same declarations drive the property codec:
//
//	bool, s8..s64, u8..u64, f32, f64   primitives
//	char                               uint32
//	string                             string
//	record                             struct, sized by the canonical ABI layout
//	enum                               enum, 1, 2 or 4 bytes by case count
//	own<R>, borrow<R>                  entity handle named after the resource
//	list<T>                            array of T
//	list<tuple<K, V>>                  dict from K to V
//	list<tuple<K, list<V>>>            dict from K to arrays of V
//
// Records must be named and contain only fixed-size fields. Their wire
// form is the record's canonical ABI memory image, padding included; a Go
// type bound through Options.StructTypes must have the same binary size.
package witdesc
