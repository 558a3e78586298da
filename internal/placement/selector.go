package placement

import (
	"math/rand/v2"

	"github.com/zzenonn/zpicker/internal/domain"
)

// seenSet tracks node ids already used within a single Choose call.
type seenSet map[string]struct{}

func (s seenSet) has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s seenSet) add(id string) {
	s[id] = struct{}{}
}

// pickNode returns a random unseen node from nodes[start:] and marks it seen.
// On collision it walks forward through the sub-range, wrapping back to
// start, until an unseen node turns up or every node has been visited.
func pickNode(rng *rand.Rand, nodes NodeList, start int, seen seenSet) (domain.StorageNode, bool) {
	n := len(nodes) - start
	if start < 0 || n <= 0 {
		return domain.StorageNode{}, false
	}

	offset := rng.IntN(n)
	for i := 0; i < n; i++ {
		node := nodes[start+(offset+i)%n]
		if seen.has(node.ID) {
			continue
		}
		seen.add(node.ID)
		return node, true
	}

	return domain.StorageNode{}, false
}
