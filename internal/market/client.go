// Package market fetches price history and instrument metadata from the
// Yahoo Finance chart API.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
	"github.com/Adda-Baaj/stock-pulse/internal/logger"
	"github.com/Adda-Baaj/stock-pulse/pkg/httpclient"
)

const (
	// DefaultBaseURL is the chart endpoint root; the ticker is appended.
	DefaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

	// DefaultRateLimit is requests per second.
	DefaultRateLimit = 5.0

	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
)

// ErrNoData is returned when the ticker has no price history.
var ErrNoData = errors.New("no market data")

// Bar is one daily OHLCV row.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Client talks to the chart API.
type Client struct {
	baseURL string
	http    httpclient.Client
	limiter *rate.Limiter
	log     logger.Logger
}

// Option configures the Client.
type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(client httpclient.Client) Option {
	return func(c *Client) { c.http = client }
}

func WithLogger(log logger.Logger) Option {
	return func(c *Client) { c.log = logger.Ensure(log) }
}

// WithRateLimit sets the request rate in requests per second.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
		}
	}
}

// NewClient creates a chart API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), int(DefaultRateLimit)),
		log:     logger.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.NewRestyClient(httpclient.DefaultTimeout)
	}
	return c
}

// APIError is a non-2xx answer from the chart API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Ticker     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chart api error for %s: %s %s (status %d)", e.Ticker, e.Code, e.Message, e.StatusCode)
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol         string `json:"symbol"`
		ShortName      string `json:"shortName"`
		LongName       string `json:"longName"`
		InstrumentType string `json:"instrumentType"`
		ExchangeName   string `json:"exchangeName"`
		FullExchange   string `json:"fullExchangeName"`
		Currency       string `json:"currency"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

func (c *Client) chart(ctx context.Context, ticker, rng string) (chartResult, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return chartResult{}, errors.New("ticker is empty")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return chartResult{}, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := c.baseURL + "/" + url.PathEscape(ticker)
	query := url.Values{"range": {rng}, "interval": {"1d"}}
	resp, err := c.http.GetQuery(ctx, endpoint, query, map[string]string{
		"Accept":     "application/json",
		"User-Agent": userAgent,
	})
	if err != nil {
		return chartResult{}, fmt.Errorf("fetch chart %s: %w", ticker, err)
	}

	var payload chartResponse
	decodeErr := json.Unmarshal(resp.Body(), &payload)

	if resp.StatusCode() != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode(), Ticker: ticker}
		if decodeErr == nil && payload.Chart.Error != nil {
			apiErr.Code = payload.Chart.Error.Code
			apiErr.Message = payload.Chart.Error.Description
		}
		if resp.StatusCode() == http.StatusNotFound {
			return chartResult{}, fmt.Errorf("%w: %w", ErrNoData, apiErr)
		}
		return chartResult{}, apiErr
	}
	if decodeErr != nil {
		return chartResult{}, fmt.Errorf("decode chart %s: %w", ticker, decodeErr)
	}
	if len(payload.Chart.Result) == 0 {
		return chartResult{}, fmt.Errorf("%w for %s", ErrNoData, ticker)
	}

	c.log.DebugObj("chart fetched", "market_chart", map[string]any{
		"ticker": ticker,
		"range":  rng,
		"points": len(payload.Chart.Result[0].Timestamp),
	})
	return payload.Chart.Result[0], nil
}

// History returns daily bars over rng (e.g. "2y"), skipping rows without a close.
func (c *Client) History(ctx context.Context, ticker, rng string) ([]Bar, error) {
	res, err := c.chart(ctx, ticker, rng)
	if err != nil {
		return nil, err
	}
	if len(res.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, ticker)
	}

	q := res.Indicators.Quote[0]
	bars := make([]Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		closePx := at(q.Close, i)
		if closePx == nil {
			continue
		}
		bar := Bar{Time: time.Unix(ts, 0).UTC(), Close: *closePx}
		if v := at(q.Open, i); v != nil {
			bar.Open = *v
		}
		if v := at(q.High, i); v != nil {
			bar.High = *v
		}
		if v := at(q.Low, i); v != nil {
			bar.Low = *v
		}
		if v := at(q.Volume, i); v != nil {
			bar.Volume = *v
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, ticker)
	}
	return bars, nil
}

// Closes extracts the close series from bars.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Metadata returns the instrument description carried in the chart meta block.
func (c *Client) Metadata(ctx context.Context, ticker string) (domain.TickerMetadata, error) {
	res, err := c.chart(ctx, ticker, "5d")
	if err != nil {
		return domain.TickerMetadata{}, err
	}
	m := res.Meta
	exchange := m.FullExchange
	if exchange == "" {
		exchange = m.ExchangeName
	}
	symbol := m.Symbol
	if symbol == "" {
		symbol = strings.ToUpper(strings.TrimSpace(ticker))
	}
	return domain.TickerMetadata{
		Symbol:    symbol,
		ShortName: strings.TrimSpace(m.ShortName),
		LongName:  strings.TrimSpace(m.LongName),
		QuoteType: m.InstrumentType,
		Exchange:  exchange,
		Currency:  m.Currency,
	}, nil
}

// Validate reports whether the ticker has recent price data over rng.
// A missing ticker is (false, nil); transport failures are returned.
func (c *Client) Validate(ctx context.Context, ticker, rng string) (bool, error) {
	_, err := c.History(ctx, ticker, rng)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNoData):
		return false, nil
	default:
		return false, err
	}
}

func at[T any](values []*T, i int) *T {
	if i < len(values) {
		return values[i]
	}
	return nil
}
