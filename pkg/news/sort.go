package news

import (
	"slices"
	"strings"
	"time"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
)

// timestampLayouts are tried in order. Layouts without a zone parse as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 style timestamp. A trailing "Z" is read as
// UTC. The boolean is false when raw is empty or not understood.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if strings.HasSuffix(raw, "Z") {
		raw = strings.TrimSuffix(raw, "Z") + "+00:00"
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SortNewestFirst returns a new slice ordered by PublishedAt, newest first.
// Missing or unparseable timestamps sort as the oldest possible time. The sort
// is stable, so ties and undated items keep their input order.
func SortNewestFirst(items []domain.Article) []domain.Article {
	type keyed struct {
		at time.Time
		a  domain.Article
	}

	ks := make([]keyed, len(items))
	for i, a := range items {
		at, _ := ParseTimestamp(a.PublishedAt)
		ks[i] = keyed{at: at, a: a}
	}

	slices.SortStableFunc(ks, func(x, y keyed) int {
		return y.at.Compare(x.at)
	})

	out := make([]domain.Article, len(ks))
	for i, k := range ks {
		out[i] = k.a
	}
	return out
}
