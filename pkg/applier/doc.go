/*
Package applier implements the Update Applier of §4.3: it drives one
Downloader event stream to completion, buffering put/drop records per
file and committing them with a single Store.BulkUpdateTable call at
each versionend boundary, while emitting reducer Actions a caller folds
into per-series update state.

# Per-file state machine

	version        → open currentVersion (protocol violation if already open)
	entry          → buffer a put record via seriesspec.Spec.ToRecord
	deletion       → buffer a drop key (protocol violation outside a patch)
	progress       → forwarded as-is
	versionend     → BulkUpdateTable(put, drop, version); clear buffers

Registry (registry.go) enforces "at most one in-flight Applier per
(Store, series)", returning ErrOverlappingUpdate on a second concurrent
attempt, and holds the cancel func a caller needs to implement
cancelUpdate(store, series).
*/
package applier
