package store

import (
	"context"
	"os"
	"testing"

	"github.com/birchill/hikibiki-data/pkg/types"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "hikibiki-store-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	s := NewBoltStore(tmpDir)
	if err := s.Open(context.Background(), CurrentSchemaVersion); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBulkUpdateTableFullSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	put := []Record{
		KanjiRecord{types.KanjiEntry{Codepoint: 0x5F15, ReadingOn: []string{"in"}, ReadingKun: []string{"hi.ku"}}},
		KanjiRecord{types.KanjiEntry{Codepoint: 0x4EBA, ReadingOn: []string{"jin"}, ReadingKun: []string{"hito"}}},
	}
	err := s.BulkUpdateTable(ctx, BulkUpdateInput{
		Series:     types.SeriesKanji,
		Put:        put,
		Drop:       DropAllKeys,
		Version:    types.Version{Major: 3, Minor: 0, Patch: 0},
		HasVersion: true,
	})
	if err != nil {
		t.Fatalf("BulkUpdateTable failed: %v", err)
	}

	v, ok, err := s.GetDataVersion(ctx, types.SeriesKanji)
	if err != nil {
		t.Fatalf("GetDataVersion failed: %v", err)
	}
	if !ok || v.Major != 3 {
		t.Fatalf("GetDataVersion = %+v, ok=%v, want {Major:3}, ok=true", v, ok)
	}

	got, err := s.GetKanji(ctx, []int32{0x5F15, 0x4EBA, 0x4E00})
	if err != nil {
		t.Fatalf("GetKanji failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetKanji returned %d records, want 2 (missing code point should be skipped)", len(got))
	}
	if got[0].Codepoint != 0x5F15 {
		t.Errorf("GetKanji[0] = %+v, want Codepoint 0x5F15 (input order preserved)", got[0])
	}
}

func TestBulkUpdateTablePatchAppliesPutsAndDrops(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := []Record{
		KanjiRecord{types.KanjiEntry{Codepoint: 1, ReadingOn: []string{"a"}}},
		KanjiRecord{types.KanjiEntry{Codepoint: 2, ReadingOn: []string{"b"}}},
	}
	if err := s.BulkUpdateTable(ctx, BulkUpdateInput{
		Series: types.SeriesKanji, Put: base, Drop: DropAllKeys,
		Version: types.Version{Major: 1}, HasVersion: true,
	}); err != nil {
		t.Fatalf("base snapshot failed: %v", err)
	}

	patch := []Record{
		KanjiRecord{types.KanjiEntry{Codepoint: 3, ReadingOn: []string{"c"}}},
	}
	if err := s.BulkUpdateTable(ctx, BulkUpdateInput{
		Series: types.SeriesKanji, Put: patch, Drop: Drop{Keys: []string{"1"}},
		Version: types.Version{Major: 1, Minor: 1}, HasVersion: true,
	}); err != nil {
		t.Fatalf("patch failed: %v", err)
	}

	got, err := s.GetKanji(ctx, []int32{1, 2, 3})
	if err != nil {
		t.Fatalf("GetKanji failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("table after patch has %d records, want 2 (base \\ drops) U patch", len(got))
	}
}

func TestBulkUpdateTableFailureLeavesVersionUnchanged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.BulkUpdateTable(ctx, BulkUpdateInput{
		Series: types.SeriesKanji,
		Put:    []Record{KanjiRecord{types.KanjiEntry{Codepoint: 1}}},
		Drop:   DropAllKeys, Version: types.Version{Major: 1}, HasVersion: true,
	}); err != nil {
		t.Fatalf("initial snapshot failed: %v", err)
	}

	// dropping an unknown series forces an error before the version write.
	err := s.BulkUpdateTable(ctx, BulkUpdateInput{
		Series: types.Series(99), Put: nil, Drop: DropAllKeys,
		Version: types.Version{Major: 2}, HasVersion: true,
	})
	if err == nil {
		t.Fatal("expected an error for an unknown series bucket")
	}

	v, ok, err := s.GetDataVersion(ctx, types.SeriesKanji)
	if err != nil {
		t.Fatalf("GetDataVersion failed: %v", err)
	}
	if !ok || v.Major != 1 {
		t.Fatalf("version changed after failed update: %+v", v)
	}
}

func TestGetNamesUnionsKanjiAndReadingMatches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	put := []Record{
		NameRecord{types.NameEntry{ID: 1, KanjiSpell: []string{"田中"}, KanaReading: []string{"たなか"}}},
		NameRecord{types.NameEntry{ID: 2, KanjiSpell: []string{"山田"}, KanaReading: []string{"たなか"}}},
	}
	if err := s.BulkUpdateTable(ctx, BulkUpdateInput{
		Series: types.SeriesNames, Put: put, Drop: DropAllKeys,
		Version: types.Version{Major: 1}, HasVersion: true,
	}); err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	got, err := s.GetNames(ctx, "田中")
	if err != nil {
		t.Fatalf("GetNames failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("GetNames(田中) = %+v, want just entry 1", got)
	}

	got, err = s.GetNames(ctx, "たなか")
	if err != nil {
		t.Fatalf("GetNames failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetNames(たなか) returned %d entries, want 2 (both spellings share the reading)", len(got))
	}
}

func TestGetNamesByHiraganaDerivedIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	put := []Record{
		NameRecord{types.NameEntry{ID: 1, KanjiSpell: []string{"タナカ"}, KanaReading: []string{"タナカ"}}},
	}
	if err := s.BulkUpdateTable(ctx, BulkUpdateInput{
		Series: types.SeriesNames, Put: put, Drop: DropAllKeys,
		Version: types.Version{Major: 1}, HasVersion: true,
	}); err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	got, err := s.GetNamesByHiragana(ctx, "たなか")
	if err != nil {
		t.Fatalf("GetNamesByHiragana failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("GetNamesByHiragana(たなか) = %+v, want entry 1 via katakana normalization", got)
	}
}

func TestSchemaDowngradeFailsCleanly(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "hikibiki-store-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	s1 := NewBoltStore(tmpDir)
	if err := s1.Open(context.Background(), CurrentSchemaVersion); err != nil {
		t.Fatalf("open at current schema failed: %v", err)
	}
	s1.Close()

	s2 := NewBoltStore(tmpDir)
	if err := s2.Open(context.Background(), 1); err == nil {
		t.Fatal("expected opening at an older schema version to fail")
	}
}
