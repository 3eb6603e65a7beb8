package providers

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
)

const (
	GoogleNewsProviderID = "googlenews"
	googleNewsBaseURL    = "https://news.google.com/rss/search"
)

// googleNewsFetcher implements Fetcher for the keyless Google News RSS search.
type googleNewsFetcher struct {
	client HTTPClient
}

// NewGoogleNewsFetcher builds a Fetcher for Google News RSS search results.
func NewGoogleNewsFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &googleNewsFetcher{client: client}
}

// ID returns the provider id for the Google News fetcher.
func (f *googleNewsFetcher) ID() string {
	return GoogleNewsProviderID
}

type googleNewsFeed struct {
	Channel struct {
		Items []googleNewsItem `xml:"item"`
	} `xml:"channel"`
}

type googleNewsItem struct {
	Title       string           `xml:"title"`
	Link        string           `xml:"link"`
	PubDate     string           `xml:"pubDate"`
	Description string           `xml:"description"`
	Source      googleNewsSource `xml:"source"`
}

type googleNewsSource struct {
	Name string `xml:",chardata"`
	URL  string `xml:"url,attr"`
}

// Fetch retrieves articles matching the query terms from Google News.
func (f *googleNewsFetcher) Fetch(ctx context.Context, cfg Provider, q Query) ([]domain.Article, error) {
	terms := searchTerms(q)
	if len(terms) == 0 {
		return nil, providerErr(GoogleNewsProviderID, 0, errors.New("no search terms"))
	}

	ctx, cancel := withTimeout(ctx, cfg)
	defer cancel()

	params := url.Values{
		"q":    {orQuery(terms) + " when:7d"},
		"hl":   {"en-US"},
		"gl":   {"US"},
		"ceid": {"US:en"},
	}

	headers := Headers(cfg)
	headers["Accept"] = "application/rss+xml, application/xml;q=0.9"

	endpoint := firstNonEmpty(cfg.BaseURL, googleNewsBaseURL)
	raw, err := fetchBody(ctx, f.client, GoogleNewsProviderID, endpoint, params, headers)
	if err != nil {
		return nil, err
	}

	items, err := parseGoogleNewsFeed(raw)
	if err != nil {
		return nil, providerErr(GoogleNewsProviderID, 0, err)
	}

	return truncate(buildArticlesFromFeed(items), pageSize(cfg, q)), nil
}

// parseGoogleNewsFeed decodes an RSS document into its items.
func parseGoogleNewsFeed(data []byte) ([]googleNewsItem, error) {
	var feed googleNewsFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("decode google news rss: %w", err)
	}
	return feed.Channel.Items, nil
}

// buildArticlesFromFeed converts RSS items into articles.
func buildArticlesFromFeed(items []googleNewsItem) []domain.Article {
	articles := make([]domain.Article, 0, len(items))
	for _, item := range items {
		link := strings.TrimSpace(item.Link)
		title := strings.TrimSpace(item.Title)
		if link == "" && title == "" {
			continue
		}

		source := strings.TrimSpace(item.Source.Name)
		articles = append(articles, domain.Article{
			Title:       stripSourceSuffix(title, source),
			Description: htmlText(item.Description),
			Source:      source,
			URL:         link,
			PublishedAt: reformatTime(item.PubDate, time.RFC1123, time.RFC1123Z),
			Tickers:     []string{},
			Provider:    GoogleNewsProviderID,
		})
	}
	return articles
}

// stripSourceSuffix removes the " - Publisher" tail Google appends to titles,
// so the same story from a direct provider normalizes to the same title key.
func stripSourceSuffix(title, source string) string {
	if source == "" {
		return title
	}
	return strings.TrimSpace(strings.TrimSuffix(title, " - "+source))
}
