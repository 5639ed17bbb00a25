package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	jpdicterrors "github.com/birchill/hikibiki-data/pkg/errors"
	"github.com/birchill/hikibiki-data/pkg/types"
	bolt "go.etcd.io/bbolt"
)

const dbFileName = "hikibiki.db"

// BoltStore implements Store on top of an embedded bbolt database: one
// bucket per series for the primary records, one bucket per secondary
// index, and a shared version bucket keyed by the series' small stable
// integer.
type BoltStore struct {
	dataDir string

	mu    sync.Mutex
	db    *bolt.DB
	state State
	wg    sync.WaitGroup // in-flight BulkUpdateTable/query transactions
}

// NewBoltStore creates a handle for the database under dataDir. The
// handle starts idle; call Open before using it.
func NewBoltStore(dataDir string) *BoltStore {
	return &BoltStore{dataDir: dataDir, state: StateIdle}
}

func (s *BoltStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open ensures the schema is at schemaVersion and shares the resulting
// handle across callers; a second Open while one is already in progress
// or already open is a cheap no-op.
func (s *BoltStore) Open(ctx context.Context, schemaVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateOpen {
		return nil
	}
	s.state = StateOpening

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		s.state = StateError
		return fmt.Errorf("store: create data dir: %w: %w", err, jpdicterrors.ErrUnavailable)
	}

	dbPath := filepath.Join(s.dataDir, dbFileName)
	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		s.state = StateError
		return fmt.Errorf("store: open %s: %w: %w", dbPath, err, jpdicterrors.ErrUnavailable)
	}

	if err := migrate(db, schemaVersion); err != nil {
		db.Close()
		s.state = StateError
		return err
	}

	s.db = db
	s.state = StateOpen
	return nil
}

// Close releases the engine handle. A later bulk or read call reopens
// lazily by calling Open again.
func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.state = StateIdle
	return err
}

// Destroy closes the store, waits for any in-flight transaction, then
// removes the database file. After Destroy the state returns to idle
// with no version records.
func (s *BoltStore) Destroy(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateDeleting
	db := s.db
	s.db = nil
	s.mu.Unlock()

	if db != nil {
		if err := db.Close(); err != nil {
			return err
		}
	}

	// Wait for any transactions that were already in flight when Destroy
	// was called to finish before removing the file out from under them.
	s.wg.Wait()

	dbPath := filepath.Join(s.dataDir, dbFileName)
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	s.mu.Lock()
	s.state = StateIdle
	s.mu.Unlock()
	return nil
}

// ensureOpen lazily reopens the handle at the current schema version if
// it has been closed, and returns the live *bolt.DB.
func (s *BoltStore) ensureOpen(ctx context.Context) (*bolt.DB, error) {
	s.mu.Lock()
	db := s.db
	state := s.state
	s.mu.Unlock()

	if state == StateOpen && db != nil {
		return db, nil
	}
	if err := s.Open(ctx, CurrentSchemaVersion); err != nil {
		return nil, err
	}
	s.mu.Lock()
	db = s.db
	s.mu.Unlock()
	return db, nil
}

func (s *BoltStore) GetDataVersion(ctx context.Context, series types.Series) (types.Version, bool, error) {
	db, err := s.ensureOpen(ctx)
	if err != nil {
		return types.Version{}, false, err
	}
	var v types.Version
	var ok bool
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(versionBucketName)
		raw := b.Get(versionKey(series))
		if raw == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(raw, &v)
	})
	return v, ok, err
}

func versionKey(series types.Series) []byte {
	return []byte(strconv.Itoa(int(series)))
}

func (s *BoltStore) ClearTable(ctx context.Context, series types.Series) error {
	return s.BulkUpdateTable(ctx, BulkUpdateInput{
		Series: series,
		Drop:   DropAllKeys,
	})
}

// BulkUpdateTable performs the four-step atomic transaction described in
// §4.1: drop keys, write puts in batches with progress callbacks, write
// or delete the version record, commit. On any error the transaction is
// aborted and the pre-existing version record is left untouched.
func (s *BoltStore) BulkUpdateTable(ctx context.Context, in BulkUpdateInput) error {
	db, err := s.ensureOpen(ctx)
	if err != nil {
		return err
	}

	s.wg.Add(1)
	defer s.wg.Done()

	seriesBucket := bucketFor(in.Series.String())
	total := len(in.Put)
	if in.Drop.All {
		// total counts only put records when the whole table is cleared;
		// the number of keys removed is not separately meaningful.
	} else {
		total += len(in.Drop.Keys)
	}
	processed := 0

	return db.Update(func(tx *bolt.Tx) error {
		pb := tx.Bucket(seriesBucket)
		if pb == nil {
			return fmt.Errorf("store: series bucket %s missing, open at a newer schema version", seriesBucket)
		}

		if in.Drop.All {
			if err := tx.DeleteBucket(seriesBucket); err != nil {
				return err
			}
			newBucket, err := tx.CreateBucket(seriesBucket)
			if err != nil {
				return err
			}
			pb = newBucket
			if err := s.clearIndexes(tx, in.Series); err != nil {
				return err
			}
		} else {
			for _, key := range in.Drop.Keys {
				if err := s.dropOne(tx, in.Series, pb, key); err != nil {
					return err
				}
				processed++
				if in.OnProgress != nil {
					in.OnProgress(processed, total)
				}
			}
		}

		const batchSize = 4000
		for i := 0; i < len(in.Put); i += batchSize {
			end := i + batchSize
			if end > len(in.Put) {
				end = len(in.Put)
			}
			for _, rec := range in.Put[i:end] {
				if err := s.putOne(tx, in.Series, pb, rec); err != nil {
					return err
				}
			}
			processed += end - i
			if in.OnProgress != nil {
				in.OnProgress(processed, total)
			}
		}

		vb := tx.Bucket(versionBucketName)
		key := versionKey(in.Series)
		if in.HasVersion {
			raw, err := json.Marshal(in.Version)
			if err != nil {
				return err
			}
			if err := vb.Put(key, raw); err != nil {
				return err
			}
		} else {
			if err := vb.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) putOne(tx *bolt.Tx, series types.Series, pb *bolt.Bucket, rec Record) error {
	key := []byte(rec.Key())

	if existing := pb.Get(key); existing != nil {
		oldIndexes, err := decodeRecordIndexes(series, existing)
		if err != nil {
			return err
		}
		if err := s.updateIndexes(tx, series, rec.Key(), oldIndexes, nil); err != nil {
			return err
		}
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := pb.Put(key, raw); err != nil {
		return err
	}
	return s.updateIndexes(tx, series, rec.Key(), nil, rec.Indexes())
}

func (s *BoltStore) dropOne(tx *bolt.Tx, series types.Series, pb *bolt.Bucket, key string) error {
	existing := pb.Get([]byte(key))
	if existing == nil {
		return nil
	}
	oldIndexes, err := decodeRecordIndexes(series, existing)
	if err != nil {
		return err
	}
	if err := s.updateIndexes(tx, series, key, oldIndexes, nil); err != nil {
		return err
	}
	return pb.Delete([]byte(key))
}

// updateIndexes removes primaryKey from every value list in remove, then
// adds it to every value list in add. Passing the same primaryKey to
// both is how putOne overwrites an existing record's index entries.
func (s *BoltStore) updateIndexes(tx *bolt.Tx, series types.Series, primaryKey string, remove, add map[string][]string) error {
	for field, values := range remove {
		b := tx.Bucket(indexBucketFor(series.String(), field))
		if b == nil {
			continue
		}
		for _, v := range values {
			if err := indexRemove(b, v, primaryKey); err != nil {
				return err
			}
		}
	}
	for field, values := range add {
		b := tx.Bucket(indexBucketFor(series.String(), field))
		if b == nil {
			continue
		}
		for _, v := range values {
			if err := indexAdd(b, v, primaryKey); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *BoltStore) clearIndexes(tx *bolt.Tx, series types.Series) error {
	for _, field := range indexFieldsFor(series) {
		name := indexBucketFor(series.String(), field)
		if err := tx.DeleteBucket(name); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		if _, err := tx.CreateBucket(name); err != nil {
			return err
		}
	}
	return nil
}

func indexFieldsFor(series types.Series) []string {
	switch series {
	case types.SeriesKanji:
		return []string{idxReadingOn, idxReadingKun, idxReadingName}
	case types.SeriesRadicals:
		return []string{idxRadicalNumber, idxRadicalBase, idxRadicalKanji}
	case types.SeriesNames:
		return []string{idxKanjiSpelling, idxKanaReading, idxHiragana}
	case types.SeriesWords:
		return []string{idxKanjiSpelling, idxKanaReading, idxHiragana, idxGloss}
	default:
		return nil
	}
}

func indexAdd(b *bolt.Bucket, value, primaryKey string) error {
	keys, err := indexGet(b, value)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k == primaryKey {
			return nil
		}
	}
	keys = append(keys, primaryKey)
	return indexPut(b, value, keys)
}

func indexRemove(b *bolt.Bucket, value, primaryKey string) error {
	keys, err := indexGet(b, value)
	if err != nil {
		return err
	}
	out := keys[:0]
	for _, k := range keys {
		if k != primaryKey {
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		return b.Delete([]byte(value))
	}
	return indexPut(b, value, out)
}

func indexGet(b *bolt.Bucket, value string) ([]string, error) {
	raw := b.Get([]byte(value))
	if raw == nil {
		return nil, nil
	}
	var keys []string
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

func indexPut(b *bolt.Bucket, value string, keys []string) error {
	raw, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	return b.Put([]byte(value), raw)
}

func decodeRecordIndexes(series types.Series, raw []byte) (map[string][]string, error) {
	switch series {
	case types.SeriesKanji:
		var r KanjiRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, err
		}
		return r.Indexes(), nil
	case types.SeriesRadicals:
		var r RadicalRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, err
		}
		return r.Indexes(), nil
	case types.SeriesNames:
		var r NameRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, err
		}
		return r.Indexes(), nil
	case types.SeriesWords:
		var r WordRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, err
		}
		return r.Indexes(), nil
	default:
		return nil, fmt.Errorf("store: unknown series %v", series)
	}
}
