package providers

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
)

const (
	StockNewsProviderID = "stocknews"
	stockNewsBaseURL    = "https://stocknewsapi.com/api/v1"
)

// stockNewsFetcher queries StockNewsAPI for a single ticker.
type stockNewsFetcher struct {
	client HTTPClient
}

// NewStockNewsFetcher builds a fetcher for StockNewsAPI.
func NewStockNewsFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &stockNewsFetcher{client: client}
}

func (f *stockNewsFetcher) ID() string {
	return StockNewsProviderID
}

type stockNewsPayload struct {
	Data []stockNewsItem `json:"data"`
}

type stockNewsItem struct {
	Title      string   `json:"title"`
	Text       string   `json:"text"`
	Content    string   `json:"content"`
	SourceName string   `json:"source_name"`
	Source     string   `json:"source"`
	NewsURL    string   `json:"news_url"`
	URL        string   `json:"url"`
	Date       string   `json:"date"`
	Tickers    []string `json:"tickers"`
}

// Fetch retrieves today's articles for the query ticker.
func (f *stockNewsFetcher) Fetch(ctx context.Context, cfg Provider, q Query) ([]domain.Article, error) {
	ticker := normalizeTicker(q.Ticker)
	if ticker == "" {
		return nil, providerErr(StockNewsProviderID, 0, errors.New("ticker is empty"))
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, providerErr(StockNewsProviderID, 0, ErrMissingCredentials)
	}

	ctx, cancel := withTimeout(ctx, cfg)
	defer cancel()

	limit := pageSize(cfg, q)
	params := url.Values{
		"tickers": {ticker},
		"date":    {"today"},
		"items":   {strconv.Itoa(limit)},
		"page":    {"1"},
		"token":   {cfg.APIKey},
	}

	endpoint := firstNonEmpty(cfg.BaseURL, stockNewsBaseURL)

	var payload stockNewsPayload
	if err := fetchJSON(ctx, f.client, StockNewsProviderID, endpoint, params, Headers(cfg), &payload); err != nil {
		return nil, err
	}

	articles := make([]domain.Article, 0, len(payload.Data))
	for _, item := range payload.Data {
		articles = append(articles, domain.Article{
			Title:       strings.TrimSpace(item.Title),
			Description: firstNonEmpty(item.Text, item.Content),
			Source:      firstNonEmpty(item.SourceName, item.Source),
			URL:         firstNonEmpty(item.NewsURL, item.URL),
			PublishedAt: reformatTime(item.Date, time.RFC1123Z, time.RFC1123, time.RFC3339),
			Tickers:     nonEmptyStrings(item.Tickers),
			Provider:    StockNewsProviderID,
		})
	}
	return truncate(articles, limit), nil
}
