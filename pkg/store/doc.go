/*
Package store provides BoltDB-backed persistence for the kanji, radicals,
names and (optional) words series, plus the version table that tracks the
last header accepted for each of them.

# Architecture

	┌──────────────────── BOLTDB STORE ─────────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            BoltStore                        │          │
	│  │  - File: <dataDir>/hikibiki.db              │          │
	│  │  - Format: B+tree with MVCC                 │          │
	│  │  - Transactions: ACID with fsync            │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Bucket Structure                │          │
	│  │  ┌────────────────────────────┐             │          │
	│  │  │ meta              (schema_version)        │          │
	│  │  │ versions          (series id -> Version)  │          │
	│  │  │ series:kanji      (codepoint -> entry)    │          │
	│  │  │ series:radicals   (id -> entry)           │          │
	│  │  │ series:names      (id -> entry)           │          │
	│  │  │ series:words      (id -> entry)           │          │
	│  │  │ idx:<series>:<field>  (value -> []key)    │          │
	│  │  └────────────────────────────┘             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │        Transaction Management                │          │
	│  │  - Read: db.View() - Concurrent reads       │          │
	│  │  - Write: db.Update() - Serialized writes   │          │
	│  │  - Rollback: Automatic on error             │          │
	│  │  - Commit: Automatic on success + fsync     │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core components

BoltStore:
  - Implements the Store interface using bbolt.
  - Single database file, lazily opened and migrated.
  - Thread-safe via bbolt's single-writer/many-reader transaction model.

Index buckets:

Every secondary index (reading-on, reading-kun, reading-name on kanji;
number, base-glyph, kanji-glyph on radicals; kanji-spelling, kana-reading,
hiragana on names and words; gloss on words only) is its own bucket
mapping an index value to the JSON-encoded list of primary keys that
carry it. putOne/dropOne keep these in sync with the primary bucket
inside the same transaction that writes or removes the record, so a
committed transaction never leaves an index pointing at a key that no
longer exists.

# Bulk update transaction

BulkUpdateTable spans the series bucket, its index buckets and the
version bucket in one bolt.Tx: drop keys (or clear the whole table),
write puts in batches of ~4000 with a progress callback per batch, then
write or delete the version record, then commit. Any error aborts the
whole transaction, so a failed call never advances the stored version.

# Schema migration

Migrations are scripted per version step in schema.go and are additive
only: each step creates whatever new buckets that version introduces.
Opening at a schema version older than what is already on disk fails
with ErrSchemaDowngrade rather than attempting to downgrade in place.
*/
package store
