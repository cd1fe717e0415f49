// Package propbridge converts typed entity properties and remote-call
// arguments between their canonical binary form and the dynamically typed
// values used by script code.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	propbridge/          Root package with collaborator interfaces
//	├── typedesc/        Base and complex type descriptors, type registry
//	├── wire/            Bounds-checked little-endian binary cursor
//	├── hashstr/         Stable string hashing and interning
//	├── container/       Reference-counted dynamic Array and Dict
//	├── gc/              Cooperative cycle collector for containers
//	├── codec/           Property raw-data codec
//	├── remotecall/      Remote call marshalling and dispatch
//	├── schema/          YAML/JSONC declarations and manifest fingerprint
//	├── witdesc/         Descriptor import from WIT type definitions
//	├── errors/          Structured error types
//	└── cmd/propbridge/  Inspection CLI
//
// # Quick Start
//
// Decode a property value:
//
//	types := typedesc.NewRegistry()
//	prop, _ := types.Parse("dict<string,int32>")
//
//	factory := container.NewFactory(types, gc.NewCollector())
//	c := codec.New(factory, codec.DefaultOptions())
//	value, err := c.Decode(prop, codec.NewRawData(buf))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dict := value.(*container.Dict)
//	defer dict.Release()
//
// Send a remote call:
//
//	desc, _ := remotecall.NewDesc(types, remotecall.Outbound, "Player_Say", "string")
//	calls := remotecall.NewRegistry(nil)
//	_ = calls.RegisterOutbound(desc)
//	caller := remotecall.NewCaller(calls, c, transport, remotecall.Options{})
//	err = caller.Call(ctx, "Player_Say", player, "hello")
//
// # Wire Format
//
// All integers are little-endian and fixed width. Empty containers encode
// to zero bytes at the property level. Strings nested in containers are
// prefixed by a u32 byte length and never null-terminated.
//
// # Thread Safety
//
// Registries, the hash table and the comparator cache are safe for
// concurrent use. Container reference counts are atomic; container
// contents must only be mutated by the goroutine that owns the script
// runtime for the call.
package propbridge
