package propbridge

import "strconv"

// HashResolver maps stable hashes to interned strings and back.
type HashResolver interface {
	ResolveHash(hash uint64) (string, error)
	ToHashedString(s string) (string, uint64)
}

// RefCounted is implemented by handle values whose lifetime is shared
// between containers and the scripting runtime.
type RefCounted interface {
	AddRef() int32
	Release() int32
}

// EntityRef identifies a game entity passed through properties or calls.
type EntityRef interface {
	EntityID() uint64
}

// EntityResolver turns a wire entity id back into a live reference.
type EntityResolver interface {
	ResolveEntity(id uint64) (EntityRef, error)
}

// EntityID is the default EntityRef produced when no resolver is configured.
type EntityID uint64

func (id EntityID) EntityID() uint64 { return uint64(id) }

func (id EntityID) String() string {
	return "entity#" + strconv.FormatUint(uint64(id), 10)
}
