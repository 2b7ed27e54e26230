package dsl

import "sort"

// suggest ranks candidates by edit distance to target (ties by id) and keeps
// at most limit of them whose distance is within maxDist.
func suggest(target string, candidates []string, limit, maxDist int) []string {
	type scored struct {
		id   string
		dist int
	}
	all := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		all = append(all, scored{id: c, dist: levenshtein(target, c)})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].dist != all[j].dist {
			return all[i].dist < all[j].dist
		}
		return all[i].id < all[j].id
	})
	var out []string
	for i := 0; i < len(all) && i < limit; i++ {
		if all[i].dist <= maxDist {
			out = append(out, all[i].id)
		}
	}
	return out
}

// levenshtein is the classic two-row edit distance over runes.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i, ca := range ra {
		curr[0] = i + 1
		for j, cb := range rb {
			cost := 1
			if ca == cb {
				cost = 0
			}
			curr[j+1] = min(prev[j+1]+1, curr[j]+1, prev[j]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
