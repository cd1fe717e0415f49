// Package gc provides the cooperative cycle collector for reference-counted
// containers.
//
// Containers register themselves when created and unregister when their
// reference count drops to zero. Reference counting alone cannot reclaim a
// cycle (an array holding a dict that holds the array), so the Collector
// periodically traces the tracked objects:
//
//	col := gc.NewCollector()
//	handle := col.Track("int32[]", arr)
//	...
//	freed := col.Collect()
//
// # Tracing
//
// Every tracked value implements Collectable. Collect counts, for each
// object, how many references to it come from other tracked objects
// (EnumReferences). An object whose reference count exceeds that internal
// count is held from outside and is a root. Everything reachable from a
// root is marked with the one-bit GC flag; unmarked objects are garbage and
// have their handles forcibly dropped via ReleaseAllHandles, which breaks
// the cycle and lets normal reference counting destroy them.
//
// # Observers
//
// Register observers to follow tracking events:
//
//	col.Subscribe(observer)
//
// Observers receive EventTracked, EventUntracked and EventCollected.
//
// Collect must not run concurrently with container mutation. Reference
// count changes from other goroutines are fine.
package gc
