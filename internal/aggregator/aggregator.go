// Package aggregator walks the configured news providers in priority order,
// merging and deduplicating their articles until enough have been gathered.
package aggregator

import (
	"context"
	"fmt"
	"strings"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
	"github.com/Adda-Baaj/stock-pulse/internal/logger"
	"github.com/Adda-Baaj/stock-pulse/pkg/news"
	"github.com/Adda-Baaj/stock-pulse/pkg/providers"
)

// TraceNone is reported when no provider contributed any article.
const TraceNone = "none"

// ConfigError reports settings that make aggregation impossible.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "news aggregation config: " + e.Msg }

// Settings controls provider order and item thresholds.
type Settings struct {
	// Providers in priority order.
	Providers []providers.Provider
	// Fallback is used once when every configured provider came back empty.
	Fallback providers.Provider
	// AugmentThreshold stops the provider walk once reached.
	AugmentThreshold int
	// MaxItemsTotal caps the merged list.
	MaxItemsTotal int
}

// Validate checks the threshold invariants.
func (s Settings) Validate() error {
	if len(s.Providers) == 0 {
		return &ConfigError{Msg: "provider list is empty"}
	}
	if s.MaxItemsTotal <= 0 {
		return &ConfigError{Msg: fmt.Sprintf("max_items_total must be positive, got %d", s.MaxItemsTotal)}
	}
	if s.AugmentThreshold <= 0 {
		return &ConfigError{Msg: fmt.Sprintf("augment_threshold must be positive, got %d", s.AugmentThreshold)}
	}
	if s.AugmentThreshold > s.MaxItemsTotal {
		return &ConfigError{Msg: fmt.Sprintf("augment_threshold (%d) cannot be greater than max_items_total (%d)", s.AugmentThreshold, s.MaxItemsTotal)}
	}
	return nil
}

// Request identifies the news wanted by the caller.
type Request struct {
	Ticker string
	Terms  []string
	// Limit truncates the returned items; zero or negative keeps them all.
	Limit int
}

// Result is the aggregated outcome.
type Result struct {
	// Trace lists contributing providers joined by "+", or "none".
	Trace string           `json:"provider"`
	Items []domain.Article `json:"items"`
}

// Aggregator runs the provider walk.
type Aggregator struct {
	registry providers.FetcherRegistry
	settings Settings
	log      logger.Logger
}

// New creates an Aggregator. A nil registry gets the default provider set.
func New(registry providers.FetcherRegistry, settings Settings, log logger.Logger) *Aggregator {
	if registry == nil {
		registry = providers.DefaultFetcherRegistry(nil)
	}
	if strings.TrimSpace(settings.Fallback.ID) == "" {
		settings.Fallback = providers.Provider{ID: providers.YFinanceProviderID}
	}
	return &Aggregator{
		registry: registry,
		settings: settings,
		log:      logger.Ensure(log),
	}
}

// Settings returns the active settings.
func (a *Aggregator) Settings() Settings { return a.settings }

// Aggregate collects news for the request. Provider failures are logged and
// skipped; the only returned errors are configuration errors.
func (a *Aggregator) Aggregate(ctx context.Context, req Request) (Result, error) {
	if err := a.settings.Validate(); err != nil {
		return Result{}, err
	}

	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	terms := make([]string, 0, len(req.Terms))
	for _, t := range req.Terms {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 && ticker != "" {
		terms = []string{ticker}
	}
	q := providers.Query{Ticker: ticker, Terms: terms, Limit: req.Limit}

	var (
		collected []domain.Article
		used      []string
	)

	for _, cfg := range a.settings.Providers {
		if err := ctx.Err(); err != nil {
			a.log.WarnObj("news aggregation cancelled", "news_aggregation_cancelled", map[string]any{
				"ticker": ticker,
				"error":  err.Error(),
			})
			break
		}

		items, ok := a.fetch(ctx, cfg, q)
		if !ok {
			continue
		}

		if len(items) > 0 {
			collected = news.Merge(collected, news.SortNewestFirst(items), a.settings.MaxItemsTotal)
			used = append(used, strings.ToLower(strings.TrimSpace(cfg.ID)))
		}

		if len(collected) >= a.settings.AugmentThreshold {
			a.log.DebugObj("news threshold reached", "news_early_stop", map[string]any{
				"ticker":    ticker,
				"collected": len(collected),
				"threshold": a.settings.AugmentThreshold,
			})
			break
		}
	}

	if len(collected) == 0 {
		fb := a.settings.Fallback
		if items, ok := a.fetch(ctx, fb, q); ok && len(items) > 0 {
			collected = items
			used = []string{strings.ToLower(strings.TrimSpace(fb.ID))}
		}
	}

	trace := TraceNone
	if len(used) > 0 {
		trace = strings.Join(used, "+")
	}

	if req.Limit > 0 && len(collected) > req.Limit {
		collected = collected[:req.Limit]
	}

	a.log.InfoObj("news aggregated", "news_aggregated", map[string]any{
		"ticker":   ticker,
		"provider": trace,
		"items":    len(collected),
	})

	return Result{Trace: trace, Items: collected}, nil
}

// fetch resolves and invokes one provider. ok is false when the provider is
// unknown or failed.
func (a *Aggregator) fetch(ctx context.Context, cfg providers.Provider, q providers.Query) ([]domain.Article, bool) {
	f, err := a.registry.FetcherFor(cfg)
	if err != nil {
		a.log.WarnObj("unknown news provider skipped", "news_provider_unknown", map[string]any{
			"provider_id": cfg.ID,
			"error":       err.Error(),
		})
		return nil, false
	}

	items, err := f.Fetch(ctx, cfg, q)
	if err != nil {
		a.log.WarnObj("news provider failed", "news_provider_error", map[string]any{
			"provider_id": cfg.ID,
			"ticker":      q.Ticker,
			"error":       err.Error(),
		})
		return nil, false
	}

	a.log.DebugObj("news provider responded", "news_provider_ok", map[string]any{
		"provider_id": cfg.ID,
		"ticker":      q.Ticker,
		"items":       len(items),
	})
	return items, true
}
