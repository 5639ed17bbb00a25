package jpdict

import (
	"context"
	"testing"

	"github.com/birchill/hikibiki-data/pkg/types"
)

// nameQueryStore extends memStore with scriptable exact/hiragana results,
// since GetNames/GetNamesByHiragana are query-layer index scans that
// memStore's bbolt-free double doesn't implement generically.
type nameQueryStore struct {
	*memStore
	exact      []types.NameEntry
	byHiragana []types.NameEntry
}

func (n *nameQueryStore) GetNames(ctx context.Context, query string) ([]types.NameEntry, error) {
	return n.exact, nil
}

func (n *nameQueryStore) GetNamesByHiragana(ctx context.Context, normalized string) ([]types.NameEntry, error) {
	return n.byHiragana, nil
}

func TestGetNamesRanksExactAboveKanaEquivalent(t *testing.T) {
	st := &nameQueryStore{
		memStore: newMemStore(),
		exact:    []types.NameEntry{{ID: 1, KanjiSpell: []string{"中村"}}},
		byHiragana: []types.NameEntry{
			{ID: 1, KanjiSpell: []string{"中村"}}, // duplicate of the exact hit, must be deduped
			{ID: 2, KanaReading: []string{"なかむら"}},
		},
	}
	f := New(Config{Store: st, SchemaVersion: 1})

	results, err := f.GetNames(context.Background(), "ナカムラ")
	if err != nil {
		t.Fatalf("GetNames: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2 (one exact, one kana-equivalent)", len(results))
	}
	if results[0].Entry.ID != 1 || results[0].KanaEquivalent {
		t.Errorf("results[0] = %+v, want the exact match ranked first", results[0])
	}
	if results[1].Entry.ID != 2 || !results[1].KanaEquivalent {
		t.Errorf("results[1] = %+v, want the kana-equivalent match ranked second", results[1])
	}
}

func TestGetNamesSkipsHiraganaScanWhenQueryHasNoKatakana(t *testing.T) {
	st := &nameQueryStore{
		memStore:   newMemStore(),
		exact:      []types.NameEntry{{ID: 1}},
		byHiragana: []types.NameEntry{{ID: 99}},
	}
	f := New(Config{Store: st, SchemaVersion: 1})

	results, err := f.GetNames(context.Background(), "中村")
	if err != nil {
		t.Fatalf("GetNames: %v", err)
	}
	if len(results) != 1 || results[0].Entry.ID != 1 {
		t.Errorf("results = %+v, want only the exact match", results)
	}
}
