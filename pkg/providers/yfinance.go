package providers

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
)

const (
	YFinanceProviderID = "yfinance"
	yFinanceBaseURL    = "https://query1.finance.yahoo.com/v1/finance/search"
	browserUserAgent   = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// yFinanceFetcher reads the news list Yahoo Finance attaches to a symbol
// search. It needs no key and serves as the last-resort fallback.
type yFinanceFetcher struct {
	client HTTPClient
}

// NewYFinanceFetcher builds a fetcher for Yahoo Finance symbol news.
func NewYFinanceFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &yFinanceFetcher{client: client}
}

func (f *yFinanceFetcher) ID() string {
	return YFinanceProviderID
}

type yFinancePayload struct {
	News []yFinanceNews `json:"news"`
}

type yFinanceNews struct {
	Title               string   `json:"title"`
	Publisher           string   `json:"publisher"`
	Link                string   `json:"link"`
	ProviderPublishTime int64    `json:"providerPublishTime"`
	RelatedTickers      []string `json:"relatedTickers"`
}

// Fetch retrieves the latest Yahoo Finance headlines for the query ticker.
func (f *yFinanceFetcher) Fetch(ctx context.Context, cfg Provider, q Query) ([]domain.Article, error) {
	ticker := normalizeTicker(q.Ticker)
	if ticker == "" {
		return nil, providerErr(YFinanceProviderID, 0, errors.New("ticker is empty"))
	}

	ctx, cancel := withTimeout(ctx, cfg)
	defer cancel()

	limit := q.Limit
	if limit <= 0 {
		limit = pageSize(cfg, q)
	}

	params := url.Values{
		"q":           {ticker},
		"quotesCount": {"0"},
		"newsCount":   {strconv.Itoa(limit)},
	}

	headers := Headers(cfg)
	if _, ok := headers["User-Agent"]; !ok {
		headers["User-Agent"] = browserUserAgent
	}

	endpoint := firstNonEmpty(cfg.BaseURL, yFinanceBaseURL)

	var payload yFinancePayload
	if err := fetchJSON(ctx, f.client, YFinanceProviderID, endpoint, params, headers, &payload); err != nil {
		return nil, err
	}

	articles := make([]domain.Article, 0, len(payload.News))
	for _, n := range payload.News {
		articles = append(articles, domain.Article{
			Title:       strings.TrimSpace(n.Title),
			Source:      strings.TrimSpace(n.Publisher),
			URL:         strings.TrimSpace(n.Link),
			PublishedAt: unixTime(n.ProviderPublishTime),
			Tickers:     nonEmptyStrings(n.RelatedTickers),
			Provider:    YFinanceProviderID,
		})
	}
	return truncate(articles, limit), nil
}
