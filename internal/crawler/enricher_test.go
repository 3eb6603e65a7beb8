package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
	"github.com/Adda-Baaj/stock-pulse/pkg/httpclient"
)

func TestEnrichFillsThinDescriptions(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/og":
			fmt.Fprint(w, `<html><head><meta property="og:description" content="  Apple   beat earnings estimates for the quarter. "><meta name="description" content="ignored"></head></html>`)
		case "/meta":
			fmt.Fprint(w, `<html><head><meta name="description" content="Tesla shares slid after deliveries missed forecasts."></head></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	long := strings.Repeat("already a perfectly good summary ", 3)
	in := []domain.Article{
		{Title: "a", URL: srv.URL + "/og"},
		{Title: "b", URL: srv.URL + "/meta", Description: "short"},
		{Title: "c", URL: srv.URL + "/missing"},
		{Title: "d", URL: srv.URL + "/og", Description: long},
		{Title: "e"},
	}
	snapshot := append([]domain.Article(nil), in...)

	e := NewEnricher(httpclient.NewRestyClient(2*time.Second), nil, Options{Workers: 2})
	out := e.Enrich(context.Background(), in)

	require.Len(t, out, len(in))
	assert.Equal(t, "Apple beat earnings estimates for the quarter.", out[0].Description)
	assert.Equal(t, "Tesla shares slid after deliveries missed forecasts.", out[1].Description)
	assert.Empty(t, out[2].Description)
	assert.Equal(t, long, out[3].Description)
	for i := range out {
		assert.Equal(t, in[i].Title, out[i].Title, "order preserved")
	}
	assert.Equal(t, snapshot, in, "input not mutated")
	assert.Equal(t, int32(3), hits.Load())
}

func TestEnrichNothingToDo(t *testing.T) {
	e := NewEnricher(nil, nil, Options{})
	out := e.Enrich(context.Background(), []domain.Article{{Title: "no url"}})
	assert.Equal(t, []domain.Article{{Title: "no url"}}, out)

	assert.Empty(t, e.Enrich(context.Background(), nil))
}

func TestEnrichCancelledContextKeepsOriginals(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := []domain.Article{{Title: "a", URL: "http://127.0.0.1:1/x"}}
	out := NewEnricher(nil, nil, Options{Delay: time.Millisecond}).Enrich(ctx, in)
	assert.Equal(t, in, out)
}

func TestParseDescription(t *testing.T) {
	d, err := parseDescription([]byte(`<html><head><title>x</title></head></html>`))
	require.NoError(t, err)
	assert.Empty(t, d)
}

func TestEnrichReturnsAfterDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta name="description" content="a description long enough to be kept"></head></html>`)
	}))
	defer srv.Close()

	in := make([]domain.Article, 4)
	for i := range in {
		in[i] = domain.Article{Title: fmt.Sprint(i), URL: fmt.Sprintf("%s/%d", srv.URL, i)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	e := NewEnricher(httpclient.NewRestyClient(time.Second), nil, Options{Workers: 1, Delay: 200 * time.Millisecond})
	done := make(chan []domain.Article, 1)
	go func() { done <- e.Enrich(ctx, in) }()

	select {
	case out := <-done:
		require.Len(t, out, len(in))
		for i := range out {
			assert.Equal(t, in[i].Title, out[i].Title)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Enrich kept running after its context expired")
	}
}
