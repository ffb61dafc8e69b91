package engine

import (
	"github.com/alexlabrioche/modular-strategies/internal/catalog"
)

// Draw picks a pair that is not in used, uniformly at random. Once every pair
// has been drawn the used set starts over, so a draw never blocks.
// used is never modified; the returned slice is a new one ending with the pick.
func Draw(cat *catalog.Catalog, used []catalog.DrawKey, rng Rand) ([]catalog.DrawKey, StrategyDraw, error) {
	if cat.Size() == 0 {
		return used, StrategyDraw{}, catalog.ErrEmptyCatalog
	}

	seen := make(map[catalog.DrawKey]struct{}, len(used))
	for _, k := range used {
		seen[k] = struct{}{}
	}

	pairs := cat.Pairs()
	candidates := make([]catalog.Pair, 0, len(pairs))
	for _, p := range pairs {
		if _, ok := seen[p.Key()]; !ok {
			candidates = append(candidates, p)
		}
	}

	kept := used
	if len(candidates) == 0 {
		kept = nil
		candidates = pairs
	}

	chosen := candidates[rng.IntN(len(candidates))]
	next := make([]catalog.DrawKey, 0, len(kept)+1)
	next = append(next, kept...)
	next = append(next, chosen.Key())

	return next, StrategyDraw{Category: chosen.Category, Prompt: chosen.Prompt}, nil
}
