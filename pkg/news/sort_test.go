package news

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
		ok    bool
	}{
		{"2024-01-02T10:00:00Z", time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), true},
		{"2024-01-02T10:00:00+00:00", time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), true},
		{"2024-01-02T12:00:00+02:00", time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), true},
		{"2024-01-02T10:00:00.250Z", time.Date(2024, 1, 2, 10, 0, 0, 250_000_000, time.UTC), true},
		{"2024-01-02 10:00:00", time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), true},
		{"2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"yesterday", time.Time{}, false},
		{"Tue, 02 Jan 2024 10:00:00 -0500", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseTimestamp(tt.input)
		assert.Equal(t, tt.ok, ok, "ParseTimestamp(%q) ok", tt.input)
		if tt.ok {
			assert.True(t, tt.want.Equal(got), "ParseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSortNewestFirst(t *testing.T) {
	items := []domain.Article{
		{Title: "undated-1"},
		{Title: "old", PublishedAt: "2024-01-01T00:00:00Z"},
		{Title: "garbage", PublishedAt: "not a date"},
		{Title: "new", PublishedAt: "2024-03-01T00:00:00Z"},
		{Title: "mid", PublishedAt: "2024-02-01T00:00:00+00:00"},
		{Title: "undated-2"},
	}

	got := SortNewestFirst(items)
	require.Len(t, got, len(items))

	titles := make([]string, len(got))
	for i, a := range got {
		titles[i] = a.Title
	}
	assert.Equal(t, []string{"new", "mid", "old", "undated-1", "garbage", "undated-2"}, titles)
	assert.Equal(t, "undated-1", items[0].Title, "input must not be reordered")
}

func TestSortNewestFirstIsIdempotent(t *testing.T) {
	items := []domain.Article{
		{Title: "a", PublishedAt: "2024-01-05T00:00:00Z"},
		{Title: "b"},
		{Title: "c", PublishedAt: "2024-01-05T00:00:00Z"},
		{Title: "d", PublishedAt: "2024-01-07T00:00:00Z"},
		{Title: "e", PublishedAt: "bad"},
	}

	once := SortNewestFirst(items)
	twice := SortNewestFirst(once)
	assert.Equal(t, once, twice)
	assert.Equal(t, "a", once[1].Title)
	assert.Equal(t, "c", once[2].Title)
}

func TestSortNewestFirstEmpty(t *testing.T) {
	assert.Empty(t, SortNewestFirst(nil))
}
