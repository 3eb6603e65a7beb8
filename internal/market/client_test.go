package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartJSON = `{"chart":{"result":[{
	"meta":{"symbol":"AAPL","shortName":"Apple Inc.","longName":"Apple Inc.","instrumentType":"EQUITY","exchangeName":"NMS","fullExchangeName":"NasdaqGS","currency":"USD"},
	"timestamp":[1704153600,1704240000,1704326400],
	"indicators":{"quote":[{"open":[1,2,3],"high":[2,3,4],"low":[0.5,1.5,2.5],"close":[1.5,null,3.5],"volume":[100,200,300]}]}
}],"error":null}}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL), WithRateLimit(100))
}

func TestHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/AAPL", r.URL.Path)
		assert.Equal(t, "2y", r.URL.Query().Get("range"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		fmt.Fprint(w, chartJSON)
	})

	bars, err := c.History(context.Background(), "aapl", "2y")
	require.NoError(t, err)
	require.Len(t, bars, 2, "rows without a close are skipped")
	assert.Equal(t, 1.5, bars[0].Close)
	assert.Equal(t, int64(300), bars[1].Volume)
	assert.Equal(t, []float64{1.5, 3.5}, Closes(bars))
}

func TestMetadata(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartJSON)
	})

	meta, err := c.Metadata(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", meta.Symbol)
	assert.Equal(t, "Apple Inc.", meta.LongName)
	assert.Equal(t, "EQUITY", meta.QuoteType)
	assert.Equal(t, "NasdaqGS", meta.Exchange)
}

func TestValidate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/NOPE" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
			return
		}
		fmt.Fprint(w, chartJSON)
	})

	ok, err := c.Validate(context.Background(), "AAPL", "1mo")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Validate(context.Background(), "NOPE", "1mo")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestServerErrorIsAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})

	_, err := c.History(context.Background(), "AAPL", "1mo")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.False(t, errors.Is(err, ErrNoData))

	_, err = c.Validate(context.Background(), "AAPL", "1mo")
	require.Error(t, err)
}

func TestEmptyTicker(t *testing.T) {
	_, err := NewClient().History(context.Background(), " ", "1mo")
	require.Error(t, err)
}
