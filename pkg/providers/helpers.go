package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
)

const defaultPageSize = 10

// responseSnippet returns a truncated snippet of the response body for errors.
func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// fetchBody performs a GET and returns the body of a 2xx response.
func fetchBody(ctx context.Context, client HTTPClient, providerID, endpoint string, query url.Values, headers map[string]string) ([]byte, error) {
	resp, err := client.GetQuery(ctx, endpoint, query, headers)
	if err != nil {
		return nil, providerErr(providerID, 0, fmt.Errorf("fetch: %w", err))
	}

	body := resp.Body()
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, providerErr(providerID, resp.StatusCode(), fmt.Errorf("unexpected response body: %s", responseSnippet(body)))
	}
	return body, nil
}

// fetchJSON performs a GET and decodes a 2xx JSON response into out.
func fetchJSON(ctx context.Context, client HTTPClient, providerID, endpoint string, query url.Values, headers map[string]string, out any) error {
	body, err := fetchBody(ctx, client, providerID, endpoint, query, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return providerErr(providerID, 0, fmt.Errorf("decode payload: %w", err))
	}
	return nil
}

// withTimeout applies the provider specific timeout, if any.
func withTimeout(ctx context.Context, cfg Provider) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout > 0 {
		return context.WithTimeout(ctx, cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// pageSize picks the provider page size, then the query limit, then a default.
func pageSize(cfg Provider, q Query) int {
	switch {
	case cfg.Items > 0:
		return cfg.Items
	case q.Limit > 0:
		return q.Limit
	default:
		return defaultPageSize
	}
}

// normalizeTicker maps class-share tickers like BRK.B to the BRK-B form the
// upstream APIs expect.
func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(ticker), ".", "-"))
}

// searchTerms returns the non-blank terms, falling back to the ticker.
func searchTerms(q Query) []string {
	terms := make([]string, 0, len(q.Terms))
	for _, t := range q.Terms {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 && strings.TrimSpace(q.Ticker) != "" {
		terms = append(terms, strings.TrimSpace(q.Ticker))
	}
	return terms
}

// orQuery joins terms as quoted phrases: "a" OR "b".
func orQuery(terms []string) string {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, "")+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// truncate caps an adapter result to limit items.
func truncate(items []domain.Article, limit int) []domain.Article {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// reformatTime rewrites a provider native timestamp as RFC 3339 when one of
// the layouts matches; otherwise the raw value is kept.
func reformatTime(raw string, layouts ...string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return raw
}

// unixTime renders epoch seconds as RFC 3339; zero yields "".
func unixTime(sec int64) string {
	if sec <= 0 {
		return ""
	}
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}

// htmlText extracts the visible text of an HTML fragment.
func htmlText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" || !strings.Contains(fragment, "<") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// nonEmptyStrings trims values and drops blanks.
func nonEmptyStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
