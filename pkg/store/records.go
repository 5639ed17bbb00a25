package store

import (
	"strconv"

	"github.com/birchill/hikibiki-data/pkg/kana"
	"github.com/birchill/hikibiki-data/pkg/types"
)

// Index bucket names, shared between the record adapters below and the
// query helpers in query.go.
const (
	idxReadingOn     = "reading-on"
	idxReadingKun    = "reading-kun"
	idxReadingName   = "reading-name"
	idxRadicalNumber = "number"
	idxRadicalBase   = "base-glyph"
	idxRadicalKanji  = "kanji-glyph"
	idxKanjiSpelling = "kanji-spelling"
	idxKanaReading   = "kana-reading"
	idxHiragana      = "hiragana"
	idxGloss         = "gloss"
)

// KanjiRecord adapts types.KanjiEntry to the Record interface so it can
// be passed to BulkUpdateTable.
type KanjiRecord struct {
	types.KanjiEntry
}

func (r KanjiRecord) Key() string { return strconv.Itoa(int(r.Codepoint)) }

func (r KanjiRecord) Indexes() map[string][]string {
	return map[string][]string{
		idxReadingOn:   r.ReadingOn,
		idxReadingKun:  r.ReadingKun,
		idxReadingName: r.ReadingName,
	}
}

// RadicalRecord adapts types.RadicalEntry.
type RadicalRecord struct {
	types.RadicalEntry
}

func (r RadicalRecord) Key() string { return r.ID }

func (r RadicalRecord) Indexes() map[string][]string {
	idx := map[string][]string{
		idxRadicalNumber: {strconv.Itoa(r.Number)},
	}
	if r.B != "" {
		idx[idxRadicalBase] = []string{r.B}
	}
	if r.K != "" {
		idx[idxRadicalKanji] = []string{r.K}
	}
	return idx
}

// NameRecord adapts types.NameEntry.
type NameRecord struct {
	types.NameEntry
}

func (r NameRecord) Key() string { return strconv.Itoa(int(r.ID)) }

func (r NameRecord) Indexes() map[string][]string {
	return map[string][]string{
		idxKanjiSpelling: r.KanjiSpell,
		idxKanaReading:   r.KanaReading,
		idxHiragana:      hiraganaIndexValues(r.KanaReading),
	}
}

// WordRecord adapts types.WordEntry.
type WordRecord struct {
	types.WordEntry
}

func (r WordRecord) Key() string { return strconv.Itoa(int(r.ID)) }

func (r WordRecord) Indexes() map[string][]string {
	kanjiTexts := make([]string, 0, len(r.Kanji))
	for _, k := range r.Kanji {
		kanjiTexts = append(kanjiTexts, k.Text)
	}
	kanaTexts := make([]string, 0, len(r.Kana))
	for _, k := range r.Kana {
		kanaTexts = append(kanaTexts, k.Text)
	}
	var glosses []string
	for _, sense := range r.Sense {
		glosses = append(glosses, sense.Gloss...)
	}
	return map[string][]string{
		idxKanjiSpelling: kanjiTexts,
		idxKanaReading:   kanaTexts,
		idxHiragana:      hiraganaIndexValues(kanaTexts),
		idxGloss:         glosses,
	}
}

// hiraganaIndexValues derives the hiragana-normalized index entries for
// a set of reading strings: only readings that contain at least one
// hiragana character after normalization are kept, and duplicates are
// removed, per the key invariant in §3 of the data model.
func hiraganaIndexValues(readings []string) []string {
	seen := make(map[string]bool, len(readings))
	var out []string
	for _, r := range readings {
		norm := kana.ToHiragana(r)
		if !kana.HasHiragana(norm) {
			continue
		}
		if seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, norm)
	}
	return out
}
