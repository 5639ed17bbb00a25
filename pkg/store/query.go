package store

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/birchill/hikibiki-data/pkg/types"
	bolt "go.etcd.io/bbolt"
)

// GetKanji performs transactional point lookups, returning records in
// input order and silently skipping code points with no record.
func (s *BoltStore) GetKanji(ctx context.Context, codePoints []int32) ([]types.KanjiEntry, error) {
	db, err := s.ensureOpen(ctx)
	if err != nil {
		return nil, err
	}
	var out []types.KanjiEntry
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFor(types.SeriesKanji.String()))
		for _, cp := range codePoints {
			raw := b.Get([]byte(strconv.Itoa(int(cp))))
			if raw == nil {
				continue
			}
			var rec KanjiRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return err
			}
			out = append(out, rec.KanjiEntry)
		}
		return nil
	})
	return out, err
}

// GetRadicals returns every radical record in id order, used to build
// the facade's cached radical map.
func (s *BoltStore) GetRadicals(ctx context.Context) ([]types.RadicalEntry, error) {
	db, err := s.ensureOpen(ctx)
	if err != nil {
		return nil, err
	}
	var out []types.RadicalEntry
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFor(types.SeriesRadicals.String()))
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec RadicalRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out = append(out, rec.RadicalEntry)
		}
		return nil
	})
	return out, err
}

// GetNames scans the kanji-spelling and kana-reading indexes for query
// and returns the union in insertion order: kanji-spelling matches
// first, then any new reading matches, per §4.1.
func (s *BoltStore) GetNames(ctx context.Context, query string) ([]types.NameEntry, error) {
	db, err := s.ensureOpen(ctx)
	if err != nil {
		return nil, err
	}
	var out []types.NameEntry
	seen := make(map[string]bool)
	err = db.View(func(tx *bolt.Tx) error {
		primary := tx.Bucket(bucketFor(types.SeriesNames.String()))
		if err := s.scanIndexInto(tx, types.SeriesNames, idxKanjiSpelling, query, primary, &out, seen); err != nil {
			return err
		}
		return s.scanIndexInto(tx, types.SeriesNames, idxKanaReading, query, primary, &out, seen)
	})
	return out, err
}

// GetNamesByHiragana scans the hiragana-normalized index only; callers
// use this for the kana-equivalence pass described in §4.5.
func (s *BoltStore) GetNamesByHiragana(ctx context.Context, normalized string) ([]types.NameEntry, error) {
	db, err := s.ensureOpen(ctx)
	if err != nil {
		return nil, err
	}
	var out []types.NameEntry
	seen := make(map[string]bool)
	err = db.View(func(tx *bolt.Tx) error {
		primary := tx.Bucket(bucketFor(types.SeriesNames.String()))
		return s.scanIndexInto(tx, types.SeriesNames, idxHiragana, normalized, primary, &out, seen)
	})
	return out, err
}

func (s *BoltStore) scanIndexInto(tx *bolt.Tx, series types.Series, field, value string, primary *bolt.Bucket, out *[]types.NameEntry, seen map[string]bool) error {
	ib := tx.Bucket(indexBucketFor(series.String(), field))
	if ib == nil {
		return nil
	}
	keys, err := indexGet(ib, value)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if seen[key] {
			continue
		}
		raw := primary.Get([]byte(key))
		if raw == nil {
			continue
		}
		var rec NameRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		seen[key] = true
		*out = append(*out, rec.NameEntry)
	}
	return nil
}
