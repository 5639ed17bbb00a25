package jpdict

import (
	"context"

	"github.com/birchill/hikibiki-data/pkg/kana"
	"github.com/birchill/hikibiki-data/pkg/types"
)

// GetNames looks up query against the names series: exact kanji-spelling
// or kana-reading matches first, then hiragana-normalized matches for
// any entry not already returned, per §4.5's ranking rule (exact
// outranks kana-equivalence; ties keep store scan order).
func (f *Facade) GetNames(ctx context.Context, query string) ([]types.NameResult, error) {
	exact, err := f.store.GetNames(ctx, query)
	if err != nil {
		return nil, err
	}

	results := make([]types.NameResult, 0, len(exact))
	seen := make(map[int32]bool, len(exact))
	for _, e := range exact {
		seen[e.ID] = true
		results = append(results, types.NameResult{Entry: e})
	}

	normalized := kana.ToHiragana(query)
	if normalized == query || !kana.HasHiragana(normalized) {
		return results, nil
	}

	kanaMatches, err := f.store.GetNamesByHiragana(ctx, normalized)
	if err != nil {
		return nil, err
	}
	for _, e := range kanaMatches {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		results = append(results, types.NameResult{Entry: e, KanaEquivalent: true})
	}

	return results, nil
}
