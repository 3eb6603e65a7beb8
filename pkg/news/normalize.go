// Package news holds the pure article list operations shared by the news
// aggregation pipeline: key normalization, deduplicating merge and recency
// ordering. Nothing in here performs I/O.
package news

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
)

// spaceClass is Unicode whitespace; RE2's \s alone is ASCII only.
const spaceClass = `\s\v\p{Z}\x{1c}-\x{1f}\x{85}`

var (
	whitespaceRun = regexp.MustCompile(`[` + spaceClass + `]+`)
	nonWordSpace  = regexp.MustCompile(`[^\p{L}\p{N}_` + spaceClass + `]`)
)

// NormalizeTitle lower-cases a title, collapses whitespace runs, trims it and
// strips every character that is neither a word character nor whitespace.
func NormalizeTitle(title string) string {
	if title == "" {
		return ""
	}
	t := strings.ToLower(title)
	t = strings.TrimSpace(whitespaceRun.ReplaceAllString(t, " "))
	return nonWordSpace.ReplaceAllString(t, "")
}

// NormalizeURL reduces a URL to scheme://host/path. Query and fragment are
// dropped; scheme and host are lower-cased. Unparseable input is returned
// trimmed but otherwise unchanged.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	host := strings.ToLower(u.Host)
	if u.User != nil {
		host = u.User.String() + "@" + host
	}
	return strings.ToLower(u.Scheme) + "://" + host + u.EscapedPath()
}

// Keys returns the URL and title dedup keys for an article. Either may be
// empty, in which case it never matches anything.
func Keys(a domain.Article) (urlKey, titleKey string) {
	return NormalizeURL(a.URL), NormalizeTitle(a.Title)
}
