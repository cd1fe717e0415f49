// Package schema loads property and remote call declarations.
//
// A declaration file lists the game specific base types, the typed
// properties of each entity and the remote calls exchanged with the peer.
// Files are YAML or JSONC (JSON with comments and trailing commas):
//
//	types:
//	  - {name: Dir, kind: enum, size: 1}
//	  - {name: Critter, kind: entity}
//	properties:
//	  - {entity: Critter, name: Inventory, type: "dict<hstring,int32[]>", mutable: true}
//	calls:
//	  - {name: Player_Move, direction: inbound, subsystem: server, args: [int16, int16, Dir]}
//
// Build registers the types and resolves every type expression. The
// resulting Schema renders a deterministic CBOR manifest of everything it
// declares; its fingerprint lets two peers verify they were built from the
// same declarations before exchanging property data or calls.
package schema
