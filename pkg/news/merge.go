package news

import "github.com/Adda-Baaj/stock-pulse/internal/domain"

// Merge concatenates base and extra while dropping articles whose URL key or
// title key was already accepted. base is processed before extra and the seen
// sets are shared between them. The result never holds more than limit items
// and keeps acceptance order.
func Merge(base, extra []domain.Article, limit int) []domain.Article {
	if limit <= 0 {
		return []domain.Article{}
	}

	seenURL := make(map[string]struct{}, len(base)+len(extra))
	seenTitle := make(map[string]struct{}, len(base)+len(extra))
	merged := make([]domain.Article, 0, min(limit, len(base)+len(extra)))

	add := func(items []domain.Article) bool {
		for _, a := range items {
			urlKey, titleKey := Keys(a)

			if urlKey != "" {
				if _, dup := seenURL[urlKey]; dup {
					continue
				}
			}
			if titleKey != "" {
				if _, dup := seenTitle[titleKey]; dup {
					continue
				}
			}

			if urlKey != "" {
				seenURL[urlKey] = struct{}{}
			}
			if titleKey != "" {
				seenTitle[titleKey] = struct{}{}
			}

			merged = append(merged, a)
			if len(merged) >= limit {
				return false
			}
		}
		return true
	}

	if add(base) {
		add(extra)
	}
	return merged
}
