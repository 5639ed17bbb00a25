// Package downloader turns (series, major version, language,
// current-version) into a lazy, cancellable sequence of typed events, per
// the manifest/snapshot/patch protocol: fetch the version manifest, plan a
// full snapshot plus any trailing patches, then stream each file as
// line-delimited JSON without ever buffering it whole.
package downloader

import (
	"encoding/json"
	"time"

	"github.com/birchill/hikibiki-data/pkg/types"
)

// FileType distinguishes a full snapshot from an incremental patch file.
type FileType string

const (
	FileTypeFull  FileType = "full"
	FileTypePatch FileType = "patch"
)

// EventKind tags the variant of Event; only the fields documented for that
// kind are populated.
type EventKind string

const (
	EventVersion    EventKind = "version"
	EventEntry      EventKind = "entry"
	EventDeletion   EventKind = "deletion"
	EventProgress   EventKind = "progress"
	EventVersionEnd EventKind = "versionend"
)

// Event is one tick of the download stream.
type Event struct {
	Kind EventKind

	// EventVersion
	Version types.Version
	Partial bool // true for a patch file, false for a full snapshot

	// EventEntry, EventDeletion: the raw JSON line, owned by the event
	// (a copy, since the scanner's own buffer is reused on the next line).
	Raw json.RawMessage

	// EventProgress
	Loaded int
	Total  int
}

// DefaultMaxProgressResolution is the minimum advance in
// recordsRead/totalRecords between two progress events.
const DefaultMaxProgressResolution = 0.05

// DefaultStallTimeout is how long the stream may go without forward
// progress before the stall watchdog cancels it.
const DefaultStallTimeout = 20 * time.Second
