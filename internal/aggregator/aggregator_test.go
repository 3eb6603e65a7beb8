package aggregator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
	"github.com/Adda-Baaj/stock-pulse/pkg/providers"
)

type fakeFetcher struct {
	id    string
	items []domain.Article
	err   error
	calls int
	last  providers.Query
}

func (f *fakeFetcher) ID() string { return f.id }

func (f *fakeFetcher) Fetch(_ context.Context, _ providers.Provider, q providers.Query) ([]domain.Article, error) {
	f.calls++
	f.last = q
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func articles(provider string, n int) []domain.Article {
	out := make([]domain.Article, n)
	for i := range out {
		out[i] = domain.Article{
			Title:       fmt.Sprintf("%s story %d", provider, i),
			URL:         fmt.Sprintf("https://%s.test/%d", provider, i),
			PublishedAt: fmt.Sprintf("2024-01-%02dT00:00:00Z", i+1),
			Provider:    provider,
		}
	}
	return out
}

func settings(ids ...string) Settings {
	ps := make([]providers.Provider, len(ids))
	for i, id := range ids {
		ps[i] = providers.Provider{ID: id}
	}
	return Settings{
		Providers:        ps,
		Fallback:         providers.Provider{ID: "yfinance"},
		AugmentThreshold: 8,
		MaxItemsTotal:    15,
	}
}

func providerErr(id string) error {
	return &providers.ProviderError{Provider: id, Err: errors.New("boom")}
}

func TestAggregateStopsEarlyOnceThresholdReached(t *testing.T) {
	stock := &fakeFetcher{id: "stocknews", items: articles("stocknews", 10)}
	newsapi := &fakeFetcher{id: "newsapi", items: articles("newsapi", 5)}
	yf := &fakeFetcher{id: "yfinance", items: articles("yfinance", 3)}

	agg := New(providers.NewFetcherRegistry(stock, newsapi, yf), settings("stocknews", "newsapi"), nil)
	res, err := agg.Aggregate(context.Background(), Request{Ticker: "aapl"})
	require.NoError(t, err)

	assert.Equal(t, "stocknews", res.Trace)
	assert.Equal(t, 0, newsapi.calls)
	assert.Equal(t, 0, yf.calls)
	require.Len(t, res.Items, 10)
	assert.Equal(t, "stocknews story 9", res.Items[0].Title, "items are newest first")
	assert.Equal(t, "AAPL", stock.last.Ticker)
	assert.Equal(t, []string{"AAPL"}, stock.last.Terms)
}

func TestAggregateAugmentsBelowThreshold(t *testing.T) {
	stockItems := articles("stocknews", 3)
	newsItems := append(articles("newsapi", 4), domain.Article{Title: "STOCKNEWS story 0!", URL: "https://elsewhere.test/x"})
	stock := &fakeFetcher{id: "stocknews", items: stockItems}
	newsapi := &fakeFetcher{id: "newsapi", items: newsItems}

	agg := New(providers.NewFetcherRegistry(stock, newsapi), settings("stocknews", "newsapi"), nil)
	res, err := agg.Aggregate(context.Background(), Request{Ticker: "AAPL", Terms: []string{"Apple"}})
	require.NoError(t, err)

	assert.Equal(t, "stocknews+newsapi", res.Trace)
	require.Len(t, res.Items, 7)
	for _, a := range res.Items[:3] {
		assert.Equal(t, "stocknews", a.Provider)
	}
	assert.Equal(t, []string{"Apple"}, newsapi.last.Terms)
}

func TestAggregateCapsAtMaxItemsTotal(t *testing.T) {
	stock := &fakeFetcher{id: "stocknews", items: articles("stocknews", 5)}
	newsapi := &fakeFetcher{id: "newsapi", items: articles("newsapi", 20)}

	s := settings("stocknews", "newsapi")
	s.AugmentThreshold = 6
	s.MaxItemsTotal = 12
	agg := New(providers.NewFetcherRegistry(stock, newsapi), s, nil)

	res, err := agg.Aggregate(context.Background(), Request{Ticker: "AAPL"})
	require.NoError(t, err)
	assert.Len(t, res.Items, 12)
	assert.Equal(t, "stocknews+newsapi", res.Trace)
}

func TestAggregateFallsBackWhenAllProvidersFail(t *testing.T) {
	stock := &fakeFetcher{id: "stocknews", err: providerErr("stocknews")}
	newsapi := &fakeFetcher{id: "newsapi", err: providerErr("newsapi")}
	yf := &fakeFetcher{id: "yfinance", items: articles("yfinance", 3)}

	agg := New(providers.NewFetcherRegistry(stock, newsapi, yf), settings("stocknews", "newsapi"), nil)
	res, err := agg.Aggregate(context.Background(), Request{Ticker: "AAPL", Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, "yfinance", res.Trace)
	assert.Len(t, res.Items, 3)
	assert.Equal(t, 1, stock.calls)
	assert.Equal(t, 1, newsapi.calls)
	assert.Equal(t, 1, yf.calls)
}

func TestAggregateFallsBackWhenProvidersReturnNothing(t *testing.T) {
	stock := &fakeFetcher{id: "stocknews"}
	yf := &fakeFetcher{id: "yfinance", items: articles("yfinance", 2)}

	agg := New(providers.NewFetcherRegistry(stock, yf), settings("stocknews"), nil)
	res, err := agg.Aggregate(context.Background(), Request{Ticker: "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, "yfinance", res.Trace)
	assert.Len(t, res.Items, 2)
}

func TestAggregateFallbackFailureYieldsNone(t *testing.T) {
	stock := &fakeFetcher{id: "stocknews", err: providerErr("stocknews")}
	yf := &fakeFetcher{id: "yfinance", err: providerErr("yfinance")}

	agg := New(providers.NewFetcherRegistry(stock, yf), settings("stocknews"), nil)
	res, err := agg.Aggregate(context.Background(), Request{Ticker: "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, TraceNone, res.Trace)
	assert.Empty(t, res.Items)
}

func TestAggregateSkipsUnknownProvider(t *testing.T) {
	stock := &fakeFetcher{id: "stocknews", items: articles("stocknews", 9)}

	agg := New(providers.NewFetcherRegistry(stock), settings("bloomberg", "stocknews"), nil)
	res, err := agg.Aggregate(context.Background(), Request{Ticker: "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, "stocknews", res.Trace)
}

func TestAggregateRejectsThresholdAboveMax(t *testing.T) {
	stock := &fakeFetcher{id: "stocknews", items: articles("stocknews", 3)}

	s := settings("stocknews")
	s.AugmentThreshold = 20
	s.MaxItemsTotal = 15
	agg := New(providers.NewFetcherRegistry(stock), s, nil)

	_, err := agg.Aggregate(context.Background(), Request{Ticker: "AAPL"})
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, err.Error(), "augment_threshold (20)")
	assert.Equal(t, 0, stock.calls)
}

func TestAggregateTruncatesToDisplayLimit(t *testing.T) {
	stock := &fakeFetcher{id: "stocknews", items: articles("stocknews", 10)}

	agg := New(providers.NewFetcherRegistry(stock), settings("stocknews"), nil)
	res, err := agg.Aggregate(context.Background(), Request{Ticker: "AAPL", Limit: 4})
	require.NoError(t, err)
	require.Len(t, res.Items, 4)
	assert.Equal(t, "stocknews story 9", res.Items[0].Title)
}

func TestAggregateKeepsKeylessArticles(t *testing.T) {
	keyless := make([]domain.Article, 5)
	for i := range keyless {
		keyless[i] = domain.Article{Description: fmt.Sprintf("n%d", i), Provider: "stocknews"}
	}
	stock := &fakeFetcher{id: "stocknews", items: keyless}

	s := settings("stocknews")
	s.AugmentThreshold = 4
	s.MaxItemsTotal = 4
	agg := New(providers.NewFetcherRegistry(stock), s, nil)

	res, err := agg.Aggregate(context.Background(), Request{Ticker: "AAPL"})
	require.NoError(t, err)
	require.Len(t, res.Items, 4)
	assert.Equal(t, "n0", res.Items[0].Description)
	assert.Equal(t, "n3", res.Items[3].Description)
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, settings("stocknews").Validate())

	s := settings()
	assert.Error(t, s.Validate())

	s = settings("stocknews")
	s.MaxItemsTotal = 0
	assert.Error(t, s.Validate())
}
