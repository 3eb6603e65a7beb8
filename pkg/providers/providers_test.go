package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/stock-pulse/pkg/httpclient"
)

func testClient() HTTPClient { return httpclient.NewRestyClient(2 * time.Second) }

func TestStockNewsFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "BRK-B", q.Get("tickers"))
		assert.Equal(t, "today", q.Get("date"))
		assert.Equal(t, "2", q.Get("items"))
		assert.Equal(t, "k", q.Get("token"))
		fmt.Fprint(w, `{"data":[
			{"title":"Berkshire buys","text":"body","source_name":"Reuters","news_url":"https://r.test/1","date":"Tue, 02 Jan 2024 10:00:00 -0500","tickers":["BRK-B"]},
			{"title":"Second","text":"b2","source_name":"CNBC","news_url":"https://c.test/2","date":"garbage"},
			{"title":"Third","news_url":"https://c.test/3"}
		]}`)
	}))
	defer srv.Close()

	f := NewStockNewsFetcher(testClient())
	got, err := f.Fetch(context.Background(), Provider{ID: "stocknews", APIKey: "k", Items: 2, BaseURL: srv.URL}, Query{Ticker: "brk.b"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Berkshire buys", got[0].Title)
	assert.Equal(t, "body", got[0].Description)
	assert.Equal(t, "Reuters", got[0].Source)
	assert.Equal(t, "https://r.test/1", got[0].URL)
	assert.Equal(t, "2024-01-02T15:00:00Z", got[0].PublishedAt)
	assert.Equal(t, []string{"BRK-B"}, got[0].Tickers)
	assert.Equal(t, "garbage", got[1].PublishedAt)
	for _, a := range got {
		assert.Equal(t, StockNewsProviderID, a.Provider)
	}
}

func TestStockNewsRequiresKey(t *testing.T) {
	f := NewStockNewsFetcher(testClient())
	_, err := f.Fetch(context.Background(), Provider{ID: "stocknews"}, Query{Ticker: "AAPL"})
	require.Error(t, err)
	assert.True(t, IsProviderError(err))
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestStockNewsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewStockNewsFetcher(testClient())
	_, err := f.Fetch(context.Background(), Provider{ID: "stocknews", APIKey: "k", BaseURL: srv.URL}, Query{Ticker: "AAPL"})

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, StockNewsProviderID, pe.Provider)
	assert.Equal(t, http.StatusTooManyRequests, pe.StatusCode)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestStockNewsMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": [`)
	}))
	defer srv.Close()

	f := NewStockNewsFetcher(testClient())
	_, err := f.Fetch(context.Background(), Provider{ID: "stocknews", APIKey: "k", BaseURL: srv.URL}, Query{Ticker: "AAPL"})
	require.Error(t, err)
	assert.True(t, IsProviderError(err))
}

func TestNewsAPIRetriesWithoutDomains(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		assert.Equal(t, `"Apple Inc" OR "AAPL"`, q.Get("q"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		if q.Get("domains") != "" {
			assert.Equal(t, "reuters.com,cnbc.com", q.Get("domains"))
			fmt.Fprint(w, `{"status":"ok","articles":[]}`)
			return
		}
		fmt.Fprint(w, `{"status":"ok","articles":[
			{"source":{"name":"Blog"},"title":"Apple rallies","description":"d","url":"https://b.test/1","publishedAt":"2024-01-02T10:00:00Z"}
		]}`)
	}))
	defer srv.Close()

	f := NewNewsAPIFetcher(testClient())
	cfg := Provider{ID: "newsapi", APIKey: "secret", Items: 5, BaseURL: srv.URL, Domains: []string{"reuters.com", "cnbc.com"}}
	got, err := f.Fetch(context.Background(), cfg, Query{Ticker: "AAPL", Terms: []string{"Apple Inc", " ", "AAPL"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "Apple rallies", got[0].Title)
	assert.Equal(t, "Blog", got[0].Source)
	assert.Equal(t, NewsAPIProviderID, got[0].Provider)
	assert.NotNil(t, got[0].Tickers)
}

func TestNewsAPIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"error","code":"apiKeyInvalid","message":"bad key"}`)
	}))
	defer srv.Close()

	f := NewNewsAPIFetcher(testClient())
	_, err := f.Fetch(context.Background(), Provider{ID: "newsapi", APIKey: "x", BaseURL: srv.URL, Domains: []string{}}, Query{Ticker: "AAPL"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apiKeyInvalid")
}

func TestGoogleNewsFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Query().Get("q"), `"Tesla"`))
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<item>
  <title>Tesla deliveries beat - Reuters</title>
  <link>https://news.google.com/articles/abc</link>
  <pubDate>Tue, 02 Jan 2024 10:00:00 GMT</pubDate>
  <description>&lt;a href="x"&gt;Tesla deliveries beat&lt;/a&gt;&amp;nbsp;&lt;font&gt;Reuters&lt;/font&gt;</description>
  <source url="https://www.reuters.com">Reuters</source>
</item>
<item>
  <title>Second</title>
  <link>https://news.google.com/articles/def</link>
</item>
</channel></rss>`)
	}))
	defer srv.Close()

	f := NewGoogleNewsFetcher(testClient())
	got, err := f.Fetch(context.Background(), Provider{ID: "googlenews", BaseURL: srv.URL}, Query{Terms: []string{"Tesla"}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Tesla deliveries beat", got[0].Title)
	assert.Equal(t, "Reuters", got[0].Source)
	assert.Equal(t, "2024-01-02T10:00:00Z", got[0].PublishedAt)
	assert.Contains(t, got[0].Description, "Tesla deliveries beat")
	assert.NotContains(t, got[0].Description, "<a")
	assert.Equal(t, GoogleNewsProviderID, got[0].Provider)
}

func TestGoogleNewsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<rss><channel><item>`)
	}))
	defer srv.Close()

	f := NewGoogleNewsFetcher(testClient())
	_, err := f.Fetch(context.Background(), Provider{ID: "googlenews", BaseURL: srv.URL}, Query{Ticker: "TSLA"})
	require.Error(t, err)
	assert.True(t, IsProviderError(err))
}

func TestYFinanceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "MSFT", r.URL.Query().Get("q"))
		assert.Equal(t, "3", r.URL.Query().Get("newsCount"))
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		fmt.Fprint(w, `{"news":[
			{"title":"A","publisher":"Yahoo","link":"https://y.test/a","providerPublishTime":1704189600,"relatedTickers":["MSFT"]},
			{"title":"B","publisher":"Yahoo","link":"https://y.test/b"},
			{"title":"C","publisher":"Yahoo","link":"https://y.test/c"},
			{"title":"D","publisher":"Yahoo","link":"https://y.test/d"}
		]}`)
	}))
	defer srv.Close()

	f := NewYFinanceFetcher(testClient())
	got, err := f.Fetch(context.Background(), Provider{ID: "yfinance", BaseURL: srv.URL}, Query{Ticker: "msft", Limit: 3})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2024-01-02T10:00:00Z", got[0].PublishedAt)
	assert.Empty(t, got[1].PublishedAt)
	assert.Equal(t, YFinanceProviderID, got[2].Provider)
}

func TestRegistry(t *testing.T) {
	reg := DefaultFetcherRegistry(testClient())
	assert.Equal(t, []string{"stocknews", "newsapi", "googlenews", "yfinance"}, reg.IDs())

	f, err := reg.FetcherFor(Provider{ID: " NewsAPI "})
	require.NoError(t, err)
	assert.Equal(t, NewsAPIProviderID, f.ID())

	_, err = reg.FetcherFor(Provider{ID: "bloomberg"})
	require.Error(t, err)

	_, err = reg.FetcherFor(Provider{})
	require.Error(t, err)
}

func TestProviderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	f := NewYFinanceFetcher(testClient())
	_, err := f.Fetch(context.Background(), Provider{ID: "yfinance", BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, Query{Ticker: "AAPL"})
	require.Error(t, err)
	assert.True(t, IsProviderError(err))
}

func TestTransportErrorOmitsAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := srv.URL + "/api"
	srv.Close()

	f := NewStockNewsFetcher(testClient())
	_, err := f.Fetch(context.Background(), Provider{ID: "stocknews", APIKey: "SECRET123", BaseURL: endpoint}, Query{Ticker: "AAPL"})
	require.Error(t, err)
	assert.True(t, IsProviderError(err))
	assert.NotContains(t, err.Error(), "SECRET123")
	assert.NotContains(t, err.Error(), "token=")
	assert.Contains(t, err.Error(), endpoint)
}
