package placement

import "sort"

// LowerBound returns the smallest index i such that nodes[i].AvailableMB >=
// requiredMB. The second result is false when no node has enough room,
// including when nodes is empty. nodes[i:] is the qualifying sub-range.
func LowerBound(nodes NodeList, requiredMB int64) (int, bool) {
	i := sort.Search(len(nodes), func(i int) bool {
		return nodes[i].AvailableMB >= requiredMB
	})
	if i == len(nodes) {
		return 0, false
	}
	return i, true
}
