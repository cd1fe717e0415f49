// Package typedesc defines the type descriptors that drive every encode and
// decode decision.
//
// A BaseTypeDesc describes a leaf type (primitive, enum, hashed string,
// struct, string, entity, object, or a synthetic array element). A
// ComplexTypeDesc wraps a base type with a composition shape:
//
//	Simple       int32
//	Array        int32[]
//	Dict         dict<string,int32>
//	DictOfArray  dict<string,int32[]>
//	Callback     callback(int32,string)
//
// Descriptors are created at registration time and never mutated, so the
// encoder and decoder always consult the identical shape.
package typedesc
