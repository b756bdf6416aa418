package brackets

import (
	"math/bits"
	"math/rand"
)

// nextPowerOfTwo returns the smallest power of two >= n.
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// seedOrder returns the 1-based seeds of a bracket of the given size in slot
// order, so that slots 2i and 2i+1 meet in round 1. Seed 1 meets the lowest
// seed and the top two seeds can only meet in the final:
//
//	size 8 -> [1 8 4 5 2 7 3 6]
func seedOrder(size int) []int {
	order := []int{1}
	for len(order) < size {
		n := len(order)*2 + 1
		next := make([]int, 0, len(order)*2)
		for _, s := range order {
			next = append(next, s, n-s)
		}
		order = next
	}
	return order
}

func shuffleEntrants(entrants []Entrant, rng *rand.Rand) {
	rng.Shuffle(len(entrants), func(i, j int) {
		entrants[i], entrants[j] = entrants[j], entrants[i]
	})
}
