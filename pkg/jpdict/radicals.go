package jpdict

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/birchill/hikibiki-data/pkg/types"
)

// radicalMaps is the cached derived state built once per radicals
// series sync: the full table keyed by id, and the component-character
// lookup used by getKanji step 4.
type radicalMaps struct {
	byID            map[string]types.RadicalEntry
	charToRadicalID map[rune]string
}

// buildRadicalMaps derives both tables from a freshly-fetched radicals
// table, per §4.5's "derived charToRadicalId" rule: iterate radicals in
// id order; base radicals register both glyphs to their own id; variant
// radicals register any glyph that differs from their owning base.
// Variant "130-2" is excluded — its codepoint collides with base "074",
// which must win the map; 130-2 is instead matched by the 74/"130-2"
// special case in selectVariant.
func buildRadicalMaps(radicals []types.RadicalEntry) *radicalMaps {
	byID := make(map[string]types.RadicalEntry, len(radicals))
	for _, r := range radicals {
		byID[r.ID] = r
	}

	sorted := append([]types.RadicalEntry(nil), radicals...)
	sort.Slice(sorted, func(i, j int) bool {
		ni, si := parseRadicalID(sorted[i].ID)
		nj, sj := parseRadicalID(sorted[j].ID)
		if ni != nj {
			return ni < nj
		}
		return si < sj
	})

	charToRadicalID := make(map[rune]string)
	for _, r := range sorted {
		if r.ID == "130-2" {
			continue
		}
		if !r.IsVariant() {
			registerGlyph(charToRadicalID, r.B, r.ID)
			registerGlyph(charToRadicalID, r.K, r.ID)
			continue
		}
		base := byID[r.Base]
		if g := firstRune(r.B); g != 0 && g != firstRune(base.B) {
			charToRadicalID[g] = r.ID
		}
		if g := firstRune(r.K); g != 0 && g != firstRune(base.K) {
			charToRadicalID[g] = r.ID
		}
	}

	return &radicalMaps{byID: byID, charToRadicalID: charToRadicalID}
}

func registerGlyph(m map[rune]string, glyph, id string) {
	if g := firstRune(glyph); g != 0 {
		m[g] = id
	}
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

// parseRadicalID splits a radical id ("130" or "130-2") into its classic
// number and variant suffix (0 for a base radical).
func parseRadicalID(id string) (number int, suffix int) {
	parts := strings.SplitN(id, "-", 2)
	number, _ = strconv.Atoi(parts[0])
	if len(parts) == 2 {
		suffix, _ = strconv.Atoi(parts[1])
	}
	return number, suffix
}

func pad3(n int) string {
	return fmt.Sprintf("%03d", n)
}

// resolveRadicalBlock implements §4.5 step 3: pick the variant id whose
// radical number equals the kanji's rad.x, else fall back to the base
// id. The base glyphs are populated on the result iff a variant was
// selected.
func resolveRadicalBlock(ref types.RadicalRef, byID map[string]types.RadicalEntry) types.KanjiResultRadical {
	variantID := selectVariant(ref.Variants, ref.Number, byID)
	if variantID == "" {
		base := byID[pad3(ref.Number)]
		return types.KanjiResultRadical{Number: ref.Number, Name: base.Meaning}
	}

	variant := byID[variantID]
	base := byID[variant.Base]
	return types.KanjiResultRadical{
		Number: ref.Number,
		Name:   variant.Meaning,
		Base:   &types.KanjiResultRadicalBase{B: base.B, K: base.K},
	}
}

// canonicalRadicalID turns a variant reference ("9-2") into the
// zero-padded id the radicals table is actually keyed by ("009-2").
func canonicalRadicalID(id string) string {
	n, s := parseRadicalID(id)
	if s == 0 {
		return pad3(n)
	}
	return fmt.Sprintf("%s-%d", pad3(n), s)
}

// selectVariant finds the variant id in variantIDs whose radical number
// matches number, with the radical-74/"130-2" special case: radical 74's
// base form also matches a listed "130-2", whose classic number (130)
// otherwise wouldn't.
func selectVariant(variantIDs []string, number int, byID map[string]types.RadicalEntry) string {
	for _, id := range variantIDs {
		n, _ := parseRadicalID(id)
		canonical := canonicalRadicalID(id)
		if n != number && !(number == 74 && canonical == "130-2") {
			continue
		}
		if _, ok := byID[canonical]; ok {
			return canonical
		}
	}
	return ""
}
