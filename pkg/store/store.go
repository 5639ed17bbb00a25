package store

import (
	"context"

	"github.com/birchill/hikibiki-data/pkg/types"
)

// State is the lifecycle state of a Store handle.
type State int

const (
	StateIdle State = iota
	StateOpening
	StateOpen
	StateError
	StateDeleting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateError:
		return "error"
	case StateDeleting:
		return "deleting"
	default:
		return "unknown"
	}
}

// Drop selects which keys bulkUpdateTable removes before writing put
// records. All clears the whole table; otherwise only the keys listed
// in Keys are dropped.
type Drop struct {
	All  bool
	Keys []string
}

// DropAllKeys is a convenience value for Drop.All.
var DropAllKeys = Drop{All: true}

// ProgressFunc is invoked after each dropped key and after each write
// batch inside BulkUpdateTable.
type ProgressFunc func(processed, total int)

// BulkUpdateInput describes one atomic bulk-update transaction.
type BulkUpdateInput struct {
	Series   types.Series
	Put      []Record
	Drop     Drop
	Version  types.Version // written when HasVersion is true; the record is deleted otherwise
	HasVersion bool
	OnProgress ProgressFunc
}

// Record is any series-specific entry ready to be persisted; Key
// returns the primary-key bytes it is stored under and Indexes returns
// the secondary-index values it should be reachable from.
type Record interface {
	Key() string
	Indexes() map[string][]string
}

// Store is the public contract every backing engine (only BoltStore, in
// this module) must satisfy.
type Store interface {
	// Open ensures the schema is at schemaVersion and returns once the
	// handle is usable. Safe to call concurrently; a single open is
	// shared across callers.
	Open(ctx context.Context, schemaVersion int) error

	// Close releases the engine handle. A later call reopens lazily.
	Close() error

	// Destroy closes the store then removes it entirely. Waits for any
	// in-flight transaction first.
	Destroy(ctx context.Context) error

	State() State

	// GetDataVersion returns the stored version record for series, or
	// the zero Version with ok=false if none has ever been committed.
	GetDataVersion(ctx context.Context, series types.Series) (v types.Version, ok bool, err error)

	// ClearTable is equivalent to BulkUpdateTable with Drop=DropAllKeys,
	// no Put records and no version.
	ClearTable(ctx context.Context, series types.Series) error

	// BulkUpdateTable performs one atomic transaction spanning the
	// series table and the version table.
	BulkUpdateTable(ctx context.Context, in BulkUpdateInput) error

	// GetKanji performs transactional point lookups, returning records
	// in input order and skipping code points with no record.
	GetKanji(ctx context.Context, codePoints []int32) ([]types.KanjiEntry, error)

	// GetRadicals returns every radical record, used to build the
	// facade's cached radical map.
	GetRadicals(ctx context.Context) ([]types.RadicalEntry, error)

	// GetNames scans the kanji-spelling and kana-reading indexes for an
	// exact match on query, in insertion order (kanji matches first).
	GetNames(ctx context.Context, query string) ([]types.NameEntry, error)

	// GetNamesByHiragana scans the hiragana-normalized index.
	GetNamesByHiragana(ctx context.Context, normalized string) ([]types.NameEntry, error)
}
