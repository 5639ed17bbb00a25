package store

import (
	"fmt"

	jpdicterrors "github.com/birchill/hikibiki-data/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// CurrentSchemaVersion is the schema version this build knows how to
// open. Only additive migrations (new tables, new indexes on existing
// tables) are ever scripted, per the storage contract.
const CurrentSchemaVersion = 2

var metaBucket = []byte("meta")
var schemaVersionKey = []byte("schema_version")

// migrationStep creates whatever buckets a version introduces. Each step
// must be idempotent (CreateBucketIfNotExists) so that reopening at an
// already-migrated version is a no-op, and steps must compose so that a
// fresh store jumping straight to CurrentSchemaVersion runs every step
// in order rather than skipping to the latest shape directly.
type migrationStep func(tx *bolt.Tx) error

// migrations[i] upgrades a store from schema version i to i+1.
var migrations = []migrationStep{
	// 1: kanji, radicals and names tables plus their indexes.
	func(tx *bolt.Tx) error {
		return createBuckets(tx,
			bucketFor("kanji"), indexBucketFor("kanji", idxReadingOn),
			indexBucketFor("kanji", idxReadingKun), indexBucketFor("kanji", idxReadingName),
			bucketFor("radicals"), indexBucketFor("radicals", idxRadicalNumber),
			indexBucketFor("radicals", idxRadicalBase), indexBucketFor("radicals", idxRadicalKanji),
			bucketFor("names"), indexBucketFor("names", idxKanjiSpelling),
			indexBucketFor("names", idxKanaReading), indexBucketFor("names", idxHiragana),
			versionBucketName,
		)
	},
	// 2: optional words series, schema-versioned per the data model.
	func(tx *bolt.Tx) error {
		return createBuckets(tx,
			bucketFor("words"), indexBucketFor("words", idxKanjiSpelling),
			indexBucketFor("words", idxKanaReading), indexBucketFor("words", idxHiragana),
			indexBucketFor("words", idxGloss),
		)
	},
}

var versionBucketName = []byte("versions")

func bucketFor(series string) []byte {
	return []byte("series:" + series)
}

func indexBucketFor(series, index string) []byte {
	return []byte("idx:" + series + ":" + index)
}

func createBuckets(tx *bolt.Tx, names ...[]byte) error {
	for _, name := range names {
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return fmt.Errorf("create bucket %s: %w", name, err)
		}
	}
	return nil
}

// migrate brings the database from its stored schema version up to
// target, running each intermediate step. Opening at a version lower
// than what is already stored is a schema downgrade and fails cleanly.
func migrate(db *bolt.DB, target int) error {
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}
		current := 0
		if raw := b.Get(schemaVersionKey); raw != nil {
			current = int(raw[0])<<24 | int(raw[1])<<16 | int(raw[2])<<8 | int(raw[3])
		}
		if current > target {
			return fmt.Errorf("store: on-disk schema version %d is newer than requested %d: %w", current, target, jpdicterrors.ErrSchemaDowngrade)
		}
		for v := current; v < target; v++ {
			if v >= len(migrations) {
				return fmt.Errorf("store: no migration script for schema step %d->%d", v, v+1)
			}
			if err := migrations[v](tx); err != nil {
				return err
			}
		}
		encoded := []byte{byte(target >> 24), byte(target >> 16), byte(target >> 8), byte(target)}
		return b.Put(schemaVersionKey, encoded)
	})
}
