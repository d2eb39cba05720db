package storage

import "github.com/lockitd/lockit/internal/types"

// DedupeEntries applies the TM mode's ingest policy within a batch:
// standard keeps one target per normalized source with the most frequent
// target winning (first seen breaks ties); stringid keeps every distinct
// (source, string_id) pair. Both backends load through this so a batch
// dedupes identically everywhere.
func DedupeEntries(mode types.TMMode, entries []types.EntryInput) []types.EntryInput {
	if mode == types.TMStringID {
		seen := make(map[[2]string]bool, len(entries))
		out := make([]types.EntryInput, 0, len(entries))
		for _, e := range entries {
			key := [2]string{types.NormalizeSource(e.Source), e.StringID}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, e)
		}
		return out
	}

	type tally struct {
		count map[string]int
		first map[string]int // insertion index per target, for stable ties
	}
	counts := make(map[string]*tally)
	var order []string
	for i, e := range entries {
		key := types.NormalizeSource(e.Source)
		t, ok := counts[key]
		if !ok {
			t = &tally{count: map[string]int{}, first: map[string]int{}}
			counts[key] = t
			order = append(order, key)
		}
		if _, ok := t.first[e.Target]; !ok {
			t.first[e.Target] = i
		}
		t.count[e.Target]++
	}

	out := make([]types.EntryInput, 0, len(order))
	for _, key := range order {
		t := counts[key]
		var best string
		bestCount := -1
		for target, n := range t.count {
			if n > bestCount || (n == bestCount && t.first[target] < t.first[best]) {
				best, bestCount = target, n
			}
		}
		out = append(out, types.EntryInput{Source: key, Target: best})
	}
	return out
}
