package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
)

const (
	NewsAPIProviderID = "newsapi"
	newsAPIBaseURL    = "https://newsapi.org/v2/everything"
)

// DefaultTrustedDomains restricts the first NewsAPI call to established
// financial outlets.
var DefaultTrustedDomains = []string{
	"reuters.com",
	"bloomberg.com",
	"cnbc.com",
	"wsj.com",
	"ft.com",
	"marketwatch.com",
	"barrons.com",
	"finance.yahoo.com",
	"investors.com",
	"fool.com",
	"seekingalpha.com",
	"businessinsider.com",
}

// newsAPIFetcher queries the NewsAPI "everything" endpoint with free-text terms.
type newsAPIFetcher struct {
	client HTTPClient
}

// NewNewsAPIFetcher builds a fetcher for NewsAPI.
func NewNewsAPIFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &newsAPIFetcher{client: client}
}

func (f *newsAPIFetcher) ID() string {
	return NewsAPIProviderID
}

type newsAPIPayload struct {
	Status   string           `json:"status"`
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

// Fetch searches trusted domains first and retries once without the domain
// restriction when that yields nothing.
func (f *newsAPIFetcher) Fetch(ctx context.Context, cfg Provider, q Query) ([]domain.Article, error) {
	terms := searchTerms(q)
	if len(terms) == 0 {
		return nil, providerErr(NewsAPIProviderID, 0, errors.New("no search terms"))
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, providerErr(NewsAPIProviderID, 0, ErrMissingCredentials)
	}

	ctx, cancel := withTimeout(ctx, cfg)
	defer cancel()

	domains := cfg.Domains
	if domains == nil {
		domains = DefaultTrustedDomains
	}

	query := orQuery(terms)
	limit := pageSize(cfg, q)

	articles, err := f.search(ctx, cfg, query, limit, domains)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 && len(domains) > 0 {
		articles, err = f.search(ctx, cfg, query, limit, nil)
		if err != nil {
			return nil, err
		}
	}
	return articles, nil
}

func (f *newsAPIFetcher) search(ctx context.Context, cfg Provider, query string, limit int, domains []string) ([]domain.Article, error) {
	params := url.Values{
		"q":        {query},
		"language": {"en"},
		"pageSize": {strconv.Itoa(limit)},
		"sortBy":   {"publishedAt"},
		"searchIn": {"title,description"},
	}
	if len(domains) > 0 {
		params.Set("domains", strings.Join(domains, ","))
	}

	headers := Headers(cfg)
	headers["X-Api-Key"] = cfg.APIKey

	endpoint := firstNonEmpty(cfg.BaseURL, newsAPIBaseURL)

	var payload newsAPIPayload
	if err := fetchJSON(ctx, f.client, NewsAPIProviderID, endpoint, params, headers, &payload); err != nil {
		return nil, err
	}
	if strings.EqualFold(payload.Status, "error") {
		return nil, providerErr(NewsAPIProviderID, 0, fmt.Errorf("api error %s: %s", payload.Code, payload.Message))
	}

	articles := make([]domain.Article, 0, len(payload.Articles))
	for _, a := range truncateNewsAPI(payload.Articles, limit) {
		articles = append(articles, domain.Article{
			Title:       strings.TrimSpace(a.Title),
			Description: strings.TrimSpace(a.Description),
			Source:      strings.TrimSpace(a.Source.Name),
			URL:         strings.TrimSpace(a.URL),
			PublishedAt: strings.TrimSpace(a.PublishedAt),
			Tickers:     []string{},
			Provider:    NewsAPIProviderID,
		})
	}
	return articles, nil
}

func truncateNewsAPI(items []newsAPIArticle, limit int) []newsAPIArticle {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
