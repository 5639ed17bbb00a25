package jpdict

import (
	"context"
	"testing"

	"github.com/birchill/hikibiki-data/pkg/types"
)

func newQueryFacade(st *memStore) *Facade {
	return New(Config{Store: st, Downloader: nil, SchemaVersion: 1})
}

func TestGetKanjiResolvesRadicalAndComponent(t *testing.T) {
	st := newMemStore()
	st.radicals = []types.RadicalEntry{
		{
			ID: "072", Number: 72, B: "⽇", K: "日",
			Reading: map[string][]string{"en": {"hi", "nichi"}},
			Meaning: map[string][]string{"en": {"sun"}},
		},
	}
	st.kanji[26085] = types.KanjiEntry{ // 日
		Codepoint:  26085,
		ReadingOn:  []string{"ニチ"},
		ReadingKun: []string{"ひ"},
		Meaning:    map[string][]string{"en": {"day", "sun"}},
		Radical:    types.RadicalRef{Number: 72},
		Components: "日",
	}

	f := newQueryFacade(st)
	results, err := f.GetKanji(context.Background(), "日", "en")
	if err != nil {
		t.Fatalf("GetKanji: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	r := results[0]
	if r.Rad.Number != 72 {
		t.Errorf("Rad.Number = %d, want 72", r.Rad.Number)
	}
	if len(r.Comp) != 1 || r.Comp[0].C != '日' {
		t.Fatalf("Comp = %+v, want one component for 日", r.Comp)
	}
	comp := r.Comp[0]
	if comp.K != "日" {
		t.Errorf("Comp[0].K = %q, want the resolved radical's own K glyph", comp.K)
	}
	if len(comp.Na) != 2 || comp.Na[0] != "hi" || comp.Na[1] != "nichi" {
		t.Errorf("Comp[0].Na = %v, want the resolved radical's readings", comp.Na)
	}
	if len(comp.M) != 1 || comp.M[0] != "sun" || comp.MLang != "en" {
		t.Errorf("Comp[0].M/MLang = %v/%q, want [sun]/en", comp.M, comp.MLang)
	}
}

func TestGetKanjiComponentFallsBackToKatakanaRoman(t *testing.T) {
	st := newMemStore()
	st.kanji[12345] = types.KanjiEntry{
		Codepoint:  12345,
		Components: string(rune(0x30AB)), // カ
	}

	f := newQueryFacade(st)
	results, err := f.GetKanji(context.Background(), string(rune(12345)), "de")
	if err != nil {
		t.Fatalf("GetKanji: %v", err)
	}
	if len(results) != 1 || len(results[0].Comp) != 1 {
		t.Fatalf("results = %+v", results)
	}
	comp := results[0].Comp[0]
	if len(comp.M) != 1 || comp.M[0] != "katakana ka" {
		t.Errorf("component meaning = %v, want roman fallback", comp.M)
	}
	if len(comp.Na) != 1 || comp.Na[0] != string(rune(0x30AB)) {
		t.Errorf("component Na = %v, want the katakana char itself", comp.Na)
	}
}

func TestGetKanjiDropsUnresolvableComponent(t *testing.T) {
	st := newMemStore()
	st.kanji[1] = types.KanjiEntry{Codepoint: 1, Components: "?"}

	f := newQueryFacade(st)
	results, err := f.GetKanji(context.Background(), string(rune(1)), "en")
	if err != nil {
		t.Fatalf("GetKanji: %v", err)
	}
	if len(results[0].Comp) != 0 {
		t.Errorf("Comp = %+v, want empty (unresolvable char dropped)", results[0].Comp)
	}
}

func TestRadicalMapsCacheInvalidatesAfterRadicalsUpdate(t *testing.T) {
	st := newMemStore()
	f := newQueryFacade(st)

	if _, err := f.radicalMaps(context.Background()); err != nil {
		t.Fatalf("radicalMaps: %v", err)
	}
	first := f.radicals

	f.invalidateRadicalMaps()
	st.radicals = []types.RadicalEntry{{ID: "001", Number: 1, B: "⼀"}}

	second, err := f.radicalMaps(context.Background())
	if err != nil {
		t.Fatalf("radicalMaps after invalidate: %v", err)
	}
	if second == first {
		t.Error("expected a fresh radicalMaps instance after invalidation")
	}
	if len(second.byID) != 1 {
		t.Errorf("byID = %d entries, want 1 after rebuilding from updated radicals", len(second.byID))
	}
}
