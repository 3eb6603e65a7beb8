package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/stock-pulse/pkg/httpclient"
)

// httpPublisher posts events as JSON to a webhook.
type httpPublisher struct {
	id      string
	cfg     HTTPPublisherConfig
	client  httpclient.Client
	timeout time.Duration
	log     Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = httpDefaultTimeoutSeconds * time.Second
	}
	return &httpPublisher{
		id:      cfg.ID,
		cfg:     *cfg.HTTP,
		client:  httpclient.NewRestyClient(timeout),
		timeout: timeout,
		log:     ensureLogger(log),
	}, nil
}

func (p *httpPublisher) ID() string   { return p.id }
func (p *httpPublisher) Type() string { return TypeHTTP }

// Publish sends the event and expects a 2xx answer.
func (p *httpPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		"X-Event-Type": evt.Type,
	}
	for k, v := range p.cfg.Headers {
		headers[k] = v
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Do(ctx, p.cfg.Method, p.cfg.URL, headers, payload)
	if err != nil {
		return fmt.Errorf("http publish: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		body := strings.TrimSpace(string(resp.Body()))
		if len(body) > 256 {
			body = body[:256]
		}
		return fmt.Errorf("http publish: status %d: %s", resp.StatusCode(), body)
	}

	p.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": p.id,
		"status":       resp.StatusCode(),
	})
	return nil
}
