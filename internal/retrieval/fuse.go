package retrieval

import "sort"

const rrfK = 60

// RankedList is one source's ordered result list, best first, identified by
// a stable key per item.
type RankedList struct {
	Source string
	Keys   []string
}

// FusedItem carries the reciprocal-rank-fusion score for one key along with
// the sources that contributed to it.
type FusedItem struct {
	Key     string
	Score   float64
	Sources []string
}

// Fuse merges ranked lists with reciprocal rank fusion:
//
//	score(item) = sum over lists of 1 / (k + rank + 1)
//
// with k = 60 and 0-based ranks. Ties keep first-seen order, so output is
// deterministic for a fixed input order. Limit <= 0 means no truncation.
func Fuse(lists []RankedList, limit int) []FusedItem {
	scores := make(map[string]*FusedItem)
	var order []string

	for _, list := range lists {
		for rank, key := range list.Keys {
			item, ok := scores[key]
			if !ok {
				item = &FusedItem{Key: key}
				scores[key] = item
				order = append(order, key)
			}
			item.Score += 1.0 / float64(rrfK+rank+1)
			item.Sources = append(item.Sources, list.Source)
		}
	}

	results := make([]FusedItem, 0, len(order))
	for _, key := range order {
		results = append(results, *scores[key])
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// SimilarityFromDistance converts a non-negative distance to a similarity in
// (0, 1]. Zero distance maps to 1.
func SimilarityFromDistance(d float32) float32 {
	if d < 0 {
		d = 0
	}
	return 1 / (1 + d)
}
