package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultTimeout bounds every request issued through a Client.
	DefaultTimeout = 15 * time.Second

	defaultUserAgent = "stock-pulse/1.0 (+https://github.com/Adda-Baaj/stock-pulse)"
)

// Client is the HTTP surface used by provider adapters, the market data
// client, the scraper and the HTTP publisher.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (*resty.Response, error)
	GetQuery(ctx context.Context, url string, query url.Values, headers map[string]string) (*resty.Response, error)
	Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (*resty.Response, error)
}

type restyClient struct {
	rc *resty.Client
}

// NewRestyClient builds a resty backed Client with the given timeout.
func NewRestyClient(timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rc := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", defaultUserAgent).
		SetHeader("Accept", "*/*")
	return &restyClient{rc: rc}
}

// NewFromResty wraps a preconfigured resty client.
func NewFromResty(rc *resty.Client) Client {
	if rc == nil {
		return NewRestyClient(DefaultTimeout)
	}
	return &restyClient{rc: rc}
}

// Get issues a GET request with optional headers.
func (c *restyClient) Get(ctx context.Context, url string, headers map[string]string) (*resty.Response, error) {
	return c.GetQuery(ctx, url, nil, headers)
}

// GetQuery issues a GET request with query parameters and optional headers.
func (c *restyClient) GetQuery(ctx context.Context, url string, query url.Values, headers map[string]string) (*resty.Response, error) {
	req := c.request(ctx, headers)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", redact(url), scrub(err))
	}
	return resp, nil
}

// Do issues an arbitrary request with a raw body.
func (c *restyClient) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (*resty.Response, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = resty.MethodGet
	}

	req := c.request(ctx, headers)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, redact(url), scrub(err))
	}
	return resp, nil
}

func (c *restyClient) request(ctx context.Context, headers map[string]string) *resty.Request {
	if ctx == nil {
		ctx = context.Background()
	}
	req := c.rc.R().SetContext(ctx)
	for k, v := range headers {
		if strings.TrimSpace(k) == "" {
			continue
		}
		req.SetHeader(k, v)
	}
	return req
}

// redact drops the query string so API tokens never reach error messages.
func redact(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}

// scrub rewrites the URL carried by a transport error, which net/http
// records with its full query string.
func scrub(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	return &url.Error{Op: ue.Op, URL: redact(ue.URL), Err: ue.Err}
}
