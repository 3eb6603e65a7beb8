package crawler

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
	"github.com/Adda-Baaj/stock-pulse/internal/logger"
	"github.com/Adda-Baaj/stock-pulse/pkg/httpclient"
)

const (
	maxHTMLBodyBytes  = 1 << 20 // 1 MiB
	defaultWorkers    = 4
	minDescriptionLen = 40
	browserUserAgent  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
)

// Options tune the enricher's fan-out.
type Options struct {
	Workers int
	// Delay spaces out page requests across all workers; zero disables pacing.
	Delay time.Duration
}

// Enricher fills in missing article descriptions from the article pages'
// meta tags.
type Enricher struct {
	client httpclient.Client
	log    logger.Logger
	opts   Options
}

// NewEnricher creates an Enricher with the given HTTP client and logger.
func NewEnricher(client httpclient.Client, log logger.Logger, opts Options) *Enricher {
	if client == nil {
		client = httpclient.NewRestyClient(httpclient.DefaultTimeout)
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	return &Enricher{client: client, log: logger.Ensure(log), opts: opts}
}

// Enrich returns a copy of articles where thin descriptions were replaced
// by the page's og:description or meta description. Input is not mutated,
// order is preserved and failures leave the original article in place.
func (e *Enricher) Enrich(ctx context.Context, articles []domain.Article) []domain.Article {
	out := make([]domain.Article, len(articles))
	copy(out, articles)

	var pending []int
	for i, a := range articles {
		if needsDescription(a) {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return out
	}

	var limiter <-chan time.Time
	if e.opts.Delay > 0 {
		ticker := time.NewTicker(e.opts.Delay)
		defer ticker.Stop()
		limiter = ticker.C
	}

	jobCh := make(chan int)
	var wg sync.WaitGroup
	for workerID := range min(len(pending), e.opts.Workers) {
		wg.Add(1)
		go e.worker(ctx, workerID, limiter, jobCh, out, &wg)
	}

dispatch:
	for _, idx := range pending {
		select {
		case jobCh <- idx:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobCh)
	wg.Wait()

	e.log.DebugObj("description enrichment finished", "enrich_done", map[string]any{
		"articles": len(articles),
		"attempts": len(pending),
	})
	return out
}

func (e *Enricher) worker(ctx context.Context, workerID int, limiter <-chan time.Time, jobCh <-chan int, out []domain.Article, wg *sync.WaitGroup) {
	defer wg.Done()

	for idx := range jobCh {
		if ctx.Err() != nil {
			return
		}
		if limiter != nil {
			select {
			case <-ctx.Done():
				return
			case <-limiter:
			}
		}

		art := out[idx]
		desc, err := e.fetchDescription(ctx, art.URL)
		if err != nil {
			e.log.WarnObj("article description scrape failed", "enrich_error", map[string]any{
				"worker_id": workerID,
				"provider":  art.Provider,
				"url":       art.URL,
				"error":     err.Error(),
			})
			continue
		}
		if desc != "" {
			art.Description = desc
			out[idx] = art
		}
	}
}

func (e *Enricher) fetchDescription(ctx context.Context, pageURL string) (string, error) {
	resp, err := e.client.Get(ctx, pageURL, map[string]string{
		"Accept":     "text/html,application/xhtml+xml",
		"User-Agent": browserUserAgent,
	})
	if err != nil {
		return "", fmt.Errorf("http fetch: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("status %d", resp.StatusCode())
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}
	return parseDescription(body)
}

// parseDescription extracts og:description, then meta description.
func parseDescription(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.Join(strings.Fields(val), " ")
			}
		}
		return ""
	}

	if d := extract(`meta[property="og:description"]`); d != "" {
		return d, nil
	}
	return extract(`meta[name="description"]`), nil
}

// needsDescription reports whether an article with a URL has no usable summary.
func needsDescription(a domain.Article) bool {
	if strings.TrimSpace(a.URL) == "" {
		return false
	}
	return len(strings.TrimSpace(a.Description)) < minDescriptionLen
}
