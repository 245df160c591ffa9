// Package handoff provides a bounded, blocking buffer for handing items from
// exactly one producing goroutine to exactly one consuming goroutine.
//
// The main components are:
//
//   - Buffer: a fixed capacity FIFO. Put blocks while it is full
//     (backpressure), Get blocks while it is empty. Context aware variants
//     give up when their context ends.
//   - Message: what Get returns, either a payload or the end-of-stream marker
//     of the buffer it came from. Markers are per buffer, so a marker can never
//     be confused with a payload or with another buffer's marker.
//   - Producer: puts every element of a source, in order, then one marker.
//   - Consumer: appends every payload to a destination until the marker.
//   - Pair: runs one Producer and one Consumer over one Buffer, joins them and
//     propagates the first failure so neither side is left blocked forever.
//
// Run is the end-to-end entry point:
//
//	dst, err := handoff.Run(ctx, []int{1, 2, 3}, handoff.WithCapacity(2))
//
// Only one producer and one consumer may share a Buffer. With more than one
// of either, the end-of-stream protocol stops the wrong consumer or leaves
// others blocked; this is not detected.
package handoff
