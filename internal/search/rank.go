package search

import (
	"sort"

	"github.com/snippet-oracle/snippet-oracle/internal/model"
)

// Result caps. Plain search returns up to MaxResults; smart search blends
// lexical and vector hits into at most SmartMaxResults, where name matches
// may occupy at most SmartNameSlots of the budget.
const (
	MaxResults      = 50
	SmartMaxResults = 35
	SmartNameSlots  = 30
)

// Order sorts summaries in place by the canonical ranking key: name
// priority, then like count, then recency, with snippet id as the final
// tiebreak so identical queries produce identical orderings.
func Order(results []model.SnippetSummary) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.NamePriority != b.NamePriority {
			return a.NamePriority > b.NamePriority
		}
		if a.LikeCount != b.LikeCount {
			return a.LikeCount > b.LikeCount
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// Merge combines lexical and vector hit sets, deduplicating by snippet id.
// When a snippet appears in both, the lexical entry's metadata wins (its
// NamePriority came from an actual name match).
func Merge(lexical, vectorHits []model.SnippetSummary) []model.SnippetSummary {
	merged := make([]model.SnippetSummary, 0, len(lexical)+len(vectorHits))
	seen := make(map[int64]bool, len(lexical))

	for _, s := range lexical {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		merged = append(merged, s)
	}
	for _, s := range vectorHits {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		merged = append(merged, s)
	}
	return merged
}

// Cap truncates an ordered result list to n.
func Cap(results []model.SnippetSummary, n int) []model.SnippetSummary {
	if len(results) > n {
		return results[:n]
	}
	return results
}

// BudgetedCap applies the smart-search slot budget to an ordered list: name
// matches fill up to nameSlots, everything else fills the remainder up to
// total. The relative order within each class is preserved, and because
// NamePriority dominates the sort key, name matches still precede the rest.
func BudgetedCap(results []model.SnippetSummary, total, nameSlots int) []model.SnippetSummary {
	out := make([]model.SnippetSummary, 0, min(len(results), total))
	nameUsed := 0

	for _, s := range results {
		if len(out) == total {
			break
		}
		if s.NamePriority > 0 {
			if nameUsed == nameSlots {
				continue
			}
			nameUsed++
		}
		out = append(out, s)
	}
	return out
}
