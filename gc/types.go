package gc

import "github.com/wippyai/propbridge"

// Handle identifies a tracked object. Handle 0 is reserved and always invalid.
type Handle uint32

// Collectable is implemented by containers taking part in cycle collection.
type Collectable interface {
	propbridge.RefCounted

	// RefCount returns the current reference count.
	RefCount() int32

	// SetGCFlag sets or clears the one-bit mark.
	SetGCFlag(bool)

	// GCFlag returns the mark.
	GCFlag() bool

	// EnumReferences visits every handle held by the object.
	EnumReferences(visit func(ref any))

	// ReleaseAllHandles drops every handle held by the object.
	ReleaseAllHandles()
}

// EventType identifies a collector lifecycle event.
type EventType uint8

const (
	EventTracked EventType = iota
	EventUntracked
	EventCollected
)

func (t EventType) String() string {
	switch t {
	case EventTracked:
		return "tracked"
	case EventUntracked:
		return "untracked"
	case EventCollected:
		return "collected"
	default:
		return "unknown"
	}
}

// Event describes a tracking change.
type Event struct {
	Value    Collectable
	TypeName string
	Handle   Handle
	Type     EventType
}

// Observer receives collector events.
type Observer interface {
	OnCollectorEvent(Event)
}
