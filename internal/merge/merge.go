// Package merge combines per-source article lists for one aggregation pass.
package merge

import (
	"sort"

	"github.com/Adda-Baaj/geopulse/internal/domain"
)

// Merge concatenates lists in order and keeps one article per normalized title.
// A later duplicate replaces the earlier one in place, so pass lists in ingestion priority order.
// The result is sorted by PublishedAt, newest first; equal timestamps keep insertion order.
func Merge(lists ...[]domain.Article) []domain.Article {
	size := 0
	for _, l := range lists {
		size += len(l)
	}

	out := make([]domain.Article, 0, size)
	slot := make(map[string]int, size)

	for _, list := range lists {
		for _, art := range list {
			key := art.NormalizedTitle()
			if key == "" {
				continue
			}
			if idx, ok := slot[key]; ok {
				out[idx] = art
				continue
			}
			slot[key] = len(out)
			out = append(out, art)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out
}
