// Package seriesspec supplies the one capability every generic stage of
// the sync pipeline (Downloader line classification, Applier record
// conversion) needs per data series: recognize an entry line, recognize
// a deletion line, convert an entry line into a store.Record, and pull
// the primary key out of a deletion line. This is the "small interface
// capability" realization of the polymorphism the pipeline needs instead
// of a generic type parameterized over (EntryLine, DeletionLine, Record,
// IdType).
package seriesspec

import (
	"encoding/json"
	"fmt"

	"github.com/birchill/hikibiki-data/pkg/store"
	"github.com/birchill/hikibiki-data/pkg/types"
)

// Spec is implemented once per data series.
type Spec interface {
	Series() types.Series

	// IsEntry reports whether raw parses as this series' entry shape
	// and does not carry "deleted":true.
	IsEntry(raw []byte) bool

	// IsDeletion reports whether raw parses as this series' key shape
	// with "deleted":true.
	IsDeletion(raw []byte) bool

	// ToRecord converts an entry line into the store.Record it should
	// be persisted as. Only called after IsEntry has returned true.
	ToRecord(raw []byte) (store.Record, error)

	// DeletionKey extracts the primary-key string from a deletion line.
	// Only called after IsDeletion has returned true.
	DeletionKey(raw []byte) (string, error)
}

// deletedTag is embedded by every wire shape below to detect the
// deletion marker without committing to the rest of the shape.
type deletedTag struct {
	Deleted bool `json:"deleted,omitempty"`
}

func ForSeries(series types.Series) (Spec, error) {
	switch series {
	case types.SeriesKanji:
		return kanjiSpec{}, nil
	case types.SeriesRadicals:
		return radicalSpec{}, nil
	case types.SeriesNames:
		return nameSpec{}, nil
	case types.SeriesWords:
		return wordSpec{}, nil
	default:
		return nil, fmt.Errorf("seriesspec: unknown series %v", series)
	}
}

// --- kanji ---

type kanjiWire struct {
	deletedTag
	C     int32               `json:"c"`
	On    []string            `json:"on"`
	Kun   []string            `json:"kun"`
	Nanori []string           `json:"nanori"`
	Rad   kanjiRadWire        `json:"rad"`
	Comp  string              `json:"comp"`
	Misc  kanjiMiscWire       `json:"misc"`
	Cf    []int32             `json:"cf"`
	M     map[string][]string `json:"m"`
}

type kanjiRadWire struct {
	X   int      `json:"x"`
	Var []string `json:"var"`
}

type kanjiMiscWire struct {
	Grade       int               `json:"grade"`
	StrokeCount int               `json:"sc"`
	Frequency   int               `json:"freq"`
	JLPT        int               `json:"jlpt"`
	References  map[string]string `json:"refs"`
}

type kanjiSpec struct{}

func (kanjiSpec) Series() types.Series { return types.SeriesKanji }

func (kanjiSpec) IsEntry(raw []byte) bool {
	var w kanjiWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return false
	}
	return !w.Deleted && w.C != 0
}

func (kanjiSpec) IsDeletion(raw []byte) bool {
	var w kanjiWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return false
	}
	return w.Deleted && w.C != 0
}

func (kanjiSpec) ToRecord(raw []byte) (store.Record, error) {
	var w kanjiWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	return store.KanjiRecord{KanjiEntry: types.KanjiEntry{
		Codepoint:   w.C,
		ReadingOn:   w.On,
		ReadingKun:  w.Kun,
		ReadingName: w.Nanori,
		Meaning:     w.M,
		Radical:     types.RadicalRef{Number: w.Rad.X, Variants: w.Rad.Var},
		Components:  w.Comp,
		Misc: types.KanjiMisc{
			Grade:       w.Misc.Grade,
			StrokeCount: w.Misc.StrokeCount,
			Frequency:   w.Misc.Frequency,
			JLPT:        w.Misc.JLPT,
			References:  w.Misc.References,
		},
		RelatedIDs: w.Cf,
	}}, nil
}

func (kanjiSpec) DeletionKey(raw []byte) (string, error) {
	var w kanjiWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", w.C), nil
}

// --- radicals ---

type radicalWire struct {
	deletedTag
	ID  string              `json:"id"`
	Rad int                 `json:"rad"`
	B   string              `json:"b"`
	K   string              `json:"k"`
	R   map[string][]string `json:"r"`
	M   map[string][]string `json:"m"`
	Pos string              `json:"pos"`
	Base string             `json:"base"`
}

type radicalSpec struct{}

func (radicalSpec) Series() types.Series { return types.SeriesRadicals }

func (radicalSpec) IsEntry(raw []byte) bool {
	var w radicalWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return false
	}
	return !w.Deleted && w.ID != ""
}

func (radicalSpec) IsDeletion(raw []byte) bool {
	var w radicalWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return false
	}
	return w.Deleted && w.ID != ""
}

func (radicalSpec) ToRecord(raw []byte) (store.Record, error) {
	var w radicalWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	return store.RadicalRecord{RadicalEntry: types.RadicalEntry{
		ID:       w.ID,
		Number:   w.Rad,
		Base:     w.Base,
		B:        w.B,
		K:        w.K,
		Reading:  w.R,
		Meaning:  w.M,
		Position: w.Pos,
	}}, nil
}

func (radicalSpec) DeletionKey(raw []byte) (string, error) {
	var w radicalWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return "", err
	}
	return w.ID, nil
}

// --- names ---

type nameWire struct {
	deletedTag
	ID int32               `json:"id"`
	K  []string            `json:"k"`
	R  []string            `json:"r"`
	Tr []nameTranslateWire `json:"tr"`
}

type nameTranslateWire struct {
	Type []string `json:"type"`
	Det  []string `json:"det"`
}

type nameSpec struct{}

func (nameSpec) Series() types.Series { return types.SeriesNames }

func (nameSpec) IsEntry(raw []byte) bool {
	var w nameWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return false
	}
	return !w.Deleted && w.ID != 0
}

func (nameSpec) IsDeletion(raw []byte) bool {
	var w nameWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return false
	}
	return w.Deleted && w.ID != 0
}

func (nameSpec) ToRecord(raw []byte) (store.Record, error) {
	var w nameWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	tr := make([]types.NameTranslation, 0, len(w.Tr))
	for _, t := range w.Tr {
		tr = append(tr, types.NameTranslation{Type: t.Type, Text: t.Det})
	}
	return store.NameRecord{NameEntry: types.NameEntry{
		ID:           w.ID,
		KanjiSpell:   w.K,
		KanaReading:  w.R,
		Translations: tr,
	}}, nil
}

func (nameSpec) DeletionKey(raw []byte) (string, error) {
	var w nameWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", w.ID), nil
}

// --- words ---

type wordWire struct {
	deletedTag
	ID    int32          `json:"id"`
	Kanji []wordKanjiWire `json:"k"`
	Kana  []wordKanaWire  `json:"r"`
	Sense []wordSenseWire `json:"sense"`
}

type wordKanjiWire struct {
	T string   `json:"t"`
	I []string `json:"i"`
}

type wordKanaWire struct {
	T   string   `json:"t"`
	I   []string `json:"i"`
	App []string `json:"app"`
}

type wordSenseWire struct {
	Pos   []string `json:"pos"`
	Gloss []string `json:"gloss"`
	Field []string `json:"field"`
}

type wordSpec struct{}

func (wordSpec) Series() types.Series { return types.SeriesWords }

func (wordSpec) IsEntry(raw []byte) bool {
	var w wordWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return false
	}
	return !w.Deleted && w.ID != 0
}

func (wordSpec) IsDeletion(raw []byte) bool {
	var w wordWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return false
	}
	return w.Deleted && w.ID != 0
}

func (wordSpec) ToRecord(raw []byte) (store.Record, error) {
	var w wordWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	kanji := make([]types.WordKanji, 0, len(w.Kanji))
	for _, k := range w.Kanji {
		kanji = append(kanji, types.WordKanji{Text: k.T, Info: k.I})
	}
	kana := make([]types.WordKana, 0, len(w.Kana))
	for _, k := range w.Kana {
		kana = append(kana, types.WordKana{Text: k.T, Info: k.I, AppliesTo: k.App})
	}
	senses := make([]types.WordSense, 0, len(w.Sense))
	for _, s := range w.Sense {
		senses = append(senses, types.WordSense{PartOfSpeech: s.Pos, Gloss: s.Gloss, Field: s.Field})
	}
	return store.WordRecord{WordEntry: types.WordEntry{
		ID:    w.ID,
		Kanji: kanji,
		Kana:  kana,
		Sense: senses,
	}}, nil
}

func (wordSpec) DeletionKey(raw []byte) (string, error) {
	var w wordWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", w.ID), nil
}
