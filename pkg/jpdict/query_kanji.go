package jpdict

import (
	"context"
	"fmt"
	"strings"

	"github.com/birchill/hikibiki-data/pkg/kana"
	"github.com/birchill/hikibiki-data/pkg/types"
)

// supportedKatakanaLangs lists the languages §4.5 gives a translated
// "katakana X" meaning for; any other language falls back to the roman
// spelling, with a warning.
var supportedKatakanaLangs = map[string]bool{
	"en": true, "es": true, "pt": true, "fr": true, "ja": true,
}

// GetKanji resolves chars (one lookup per rune, duplicates collapsed)
// against the kanji and radicals tables, expanding each hit's radical
// block, component breakdown and related-kanji list per §4.5 steps 1-5.
// Characters with no kanji record are silently omitted from the result.
func (f *Facade) GetKanji(ctx context.Context, chars string, lang string) ([]types.KanjiResult, error) {
	maps, err := f.radicalMaps(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[int32]bool)
	var codePoints []int32
	for _, r := range chars {
		cp := int32(r)
		if !seen[cp] {
			seen[cp] = true
			codePoints = append(codePoints, cp)
		}
	}
	if len(codePoints) == 0 {
		return nil, nil
	}

	entries, err := f.store.GetKanji(ctx, codePoints)
	if err != nil {
		return nil, err
	}

	results := make([]types.KanjiResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, f.resolveKanji(ctx, entry, lang, maps))
	}
	return results, nil
}

// resolveKanji implements §4.5 steps 3-5 for a single kanji record: the
// radical block, the component breakdown and the related-kanji
// expansion. Unresolvable references are dropped rather than failing
// the whole lookup.
func (f *Facade) resolveKanji(ctx context.Context, entry types.KanjiEntry, lang string, maps *radicalMaps) types.KanjiResult {
	result := types.KanjiResult{
		C:          entry.Codepoint,
		Misc:       entry.Misc,
		ReadingOn:  entry.ReadingOn,
		ReadingKun: entry.ReadingKun,
		Meaning:    entry.Meaning,
		Rad:        resolveRadicalBlock(entry.Radical, maps.byID),
	}

	for _, c := range entry.Components {
		if comp, ok := f.resolveComponent(ctx, c, lang, maps); ok {
			result.Comp = append(result.Comp, comp)
		}
	}

	if len(entry.RelatedIDs) > 0 {
		related, err := f.store.GetKanji(ctx, entry.RelatedIDs)
		if err == nil {
			for _, r := range related {
				result.Related = append(result.Related, types.RelatedKanjiResult{
					C:    r.Codepoint,
					R:    resolveRadicalBlock(r.Radical, maps.byID),
					M:    r.Meaning,
					Misc: r.Misc,
				})
			}
		}
	}

	return result
}

// resolveComponent implements §4.5 step 4 for one component character:
//
//  1. If c is a registered radical glyph, use that radical's own k (its
//     K glyph, if any), its localized readings as na and its localized
//     meaning as m/m_lang.
//  2. Else if c itself has a kanji record, use its first kun (else on)
//     reading, stripped of okurigana dot markers, as the name.
//  3. Else if c is katakana, use the katakana meaning table — translated
//     for {en,es,pt,fr,ja}, romanized with a warning for any other
//     language.
//  4. Else the component is dropped (with a warning) as unresolvable.
func (f *Facade) resolveComponent(ctx context.Context, c rune, lang string, maps *radicalMaps) (types.ComponentResult, bool) {
	if id, ok := maps.charToRadicalID[c]; ok {
		radical := maps.byID[id]
		na, _ := localizedList(radical.Reading, lang)
		m, mLang := localizedList(radical.Meaning, lang)
		comp := types.ComponentResult{C: c, Na: na, M: m, MLang: mLang}
		if radical.K != "" {
			comp.K = radical.K
		}
		return comp, true
	}

	if entries, err := f.store.GetKanji(ctx, []int32{int32(c)}); err == nil && len(entries) == 1 {
		reading := firstReading(entries[0])
		if reading != "" {
			return types.ComponentResult{C: c, Na: []string{reading}}, true
		}
	}

	if kana.IsKatakana(c) {
		if supportedKatakanaLangs[lang] {
			if m, ok := kana.KatakanaMeaning(c, lang); ok {
				return types.ComponentResult{C: c, Na: []string{string(c)}, M: []string{m}, MLang: lang}, true
			}
		}
		f.logger.Warn().Str("lang", lang).Str("char", string(c)).
			Msg("no katakana meaning table for language, falling back to roman spelling")
		if roman, ok := kana.RomanSpelling(c); ok {
			return types.ComponentResult{C: c, Na: []string{string(c)}, M: []string{"katakana " + roman}, MLang: "en"}, true
		}
	}

	f.logger.Warn().Str("char", string(c)).Msg("component character could not be resolved, dropping")
	return types.ComponentResult{}, false
}

// firstReading returns the first kun reading (preferred) or first on
// reading, with the "." okurigana marker and anything after it removed.
func firstReading(entry types.KanjiEntry) string {
	if len(entry.ReadingKun) > 0 {
		return stripOkurigana(entry.ReadingKun[0])
	}
	if len(entry.ReadingOn) > 0 {
		return stripOkurigana(entry.ReadingOn[0])
	}
	return ""
}

func stripOkurigana(reading string) string {
	if i := strings.IndexByte(reading, '.'); i >= 0 {
		return reading[:i]
	}
	return reading
}

// localizedList looks up lang in m, falling back to "en", and reports
// which language key was actually used.
func localizedList(m map[string][]string, lang string) (list []string, usedLang string) {
	if list, ok := m[lang]; ok {
		return list, lang
	}
	return m["en"], "en"
}

// radicalMaps returns the facade's cached radical derivation, building
// it on first use or after the radicals series has been updated.
func (f *Facade) radicalMaps(ctx context.Context) (*radicalMaps, error) {
	f.radicalsMu.Lock()
	defer f.radicalsMu.Unlock()

	if f.radicals != nil {
		return f.radicals, nil
	}

	entries, err := f.store.GetRadicals(ctx)
	if err != nil {
		return nil, fmt.Errorf("jpdict: loading radicals: %w", err)
	}
	f.radicals = buildRadicalMaps(entries)
	return f.radicals, nil
}

// invalidateRadicalMaps drops the cached derivation; called after every
// successful radicals series update so the next GetKanji call rebuilds
// it from the freshly-committed table.
func (f *Facade) invalidateRadicalMaps() {
	f.radicalsMu.Lock()
	defer f.radicalsMu.Unlock()
	f.radicals = nil
}
