package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
	"github.com/Adda-Baaj/stock-pulse/pkg/httpclient"
)

// HTTPClient is the HTTP surface adapters depend on.
type HTTPClient = httpclient.Client

// Provider carries the per-provider settings a fetcher needs.
type Provider struct {
	ID      string
	APIKey  string
	Items   int
	BaseURL string
	Domains []string
	Timeout time.Duration
	Headers map[string]string
}

// Query describes what to look for. Ticker based providers use Ticker,
// free-text providers build their query from Terms.
type Query struct {
	Ticker string
	Terms  []string
	Limit  int
}

// Fetcher retrieves normalized articles from a single news source.
type Fetcher interface {
	ID() string
	Fetch(ctx context.Context, cfg Provider, q Query) ([]domain.Article, error)
}

// FetcherRegistry resolves a provider config to its fetcher.
type FetcherRegistry interface {
	FetcherFor(cfg Provider) (Fetcher, error)
	IDs() []string
}

type fetcherRegistry struct {
	fetchers map[string]Fetcher
	order    []string
	mu       sync.RWMutex
}

// NewFetcherRegistry builds a registry for the provided fetcher implementations.
func NewFetcherRegistry(fetchers ...Fetcher) FetcherRegistry {
	reg := &fetcherRegistry{
		fetchers: make(map[string]Fetcher, len(fetchers)),
	}

	for _, f := range fetchers {
		if f == nil {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(f.ID()))
		if _, exists := reg.fetchers[key]; !exists {
			reg.order = append(reg.order, key)
		}
		reg.fetchers[key] = f
	}

	return reg
}

// FetcherFor selects the fetcher for the given provider based on its id.
func (r *fetcherRegistry) FetcherFor(cfg Provider) (Fetcher, error) {
	if strings.TrimSpace(cfg.ID) == "" {
		return nil, fmt.Errorf("provider id is empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	key := strings.ToLower(strings.TrimSpace(cfg.ID))
	if f, ok := r.fetchers[key]; ok {
		return f, nil
	}

	return nil, fmt.Errorf("no fetcher registered for provider %q", cfg.ID)
}

// IDs lists registered provider ids in registration order.
func (r *fetcherRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// DefaultHTTPClient returns a tuned client for provider fetchers.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(httpclient.DefaultTimeout) }

// DefaultFetcherRegistry wires up the known provider fetchers.
func DefaultFetcherRegistry(client HTTPClient) FetcherRegistry {
	if client == nil {
		client = DefaultHTTPClient()
	}

	return NewFetcherRegistry(
		NewStockNewsFetcher(client),
		NewNewsAPIFetcher(client),
		NewGoogleNewsFetcher(client),
		NewYFinanceFetcher(client),
	)
}

// Headers returns the request headers configured for a provider.
func Headers(cfg Provider) map[string]string {
	out := make(map[string]string, len(cfg.Headers)+1)
	out["Accept"] = "application/json"
	for k, v := range cfg.Headers {
		if k = strings.TrimSpace(k); k != "" {
			out[k] = v
		}
	}
	return out
}
