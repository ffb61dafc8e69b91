package engine

import "slices"

// SelectActive picks between one and len(players) distinct players for the
// next drawing phase. Order carries no meaning.
func SelectActive(players []Player, rng Rand) []Player {
	n := len(players)
	if n == 0 {
		return nil
	}
	k := rng.IntN(n) + 1

	shuffled := slices.Clone(players)
	for i := n - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:k:k]
}
