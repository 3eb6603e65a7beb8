// Package app assembles the long-lived collaborators once at startup and
// exposes the analysis operations used by the HTTP server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/stock-pulse/internal/agent"
	"github.com/Adda-Baaj/stock-pulse/internal/aggregator"
	"github.com/Adda-Baaj/stock-pulse/internal/config"
	"github.com/Adda-Baaj/stock-pulse/internal/crawler"
	"github.com/Adda-Baaj/stock-pulse/internal/domain"
	"github.com/Adda-Baaj/stock-pulse/internal/llm"
	"github.com/Adda-Baaj/stock-pulse/internal/logger"
	"github.com/Adda-Baaj/stock-pulse/internal/market"
	"github.com/Adda-Baaj/stock-pulse/internal/predictor"
	"github.com/Adda-Baaj/stock-pulse/internal/store"
	"github.com/Adda-Baaj/stock-pulse/pkg/httpclient"
	"github.com/Adda-Baaj/stock-pulse/pkg/providers"
	"github.com/Adda-Baaj/stock-pulse/pkg/publishers"
)

// ErrLLMUnavailable is returned by operations that need the language model
// when no API key is configured.
var ErrLLMUnavailable = errors.New("language model is not configured (set ANTHROPIC_API_KEY)")

// ErrInvalidTicker is returned for blank tickers.
var ErrInvalidTicker = errors.New("ticker is required")

type NewsAggregator interface {
	Aggregate(ctx context.Context, req aggregator.Request) (aggregator.Result, error)
}

// Analyst is the model-backed surface the app uses.
type Analyst interface {
	agent.Analyst
	Explain(ctx context.Context, pred domain.Prediction) (string, error)
}

type Enricher interface {
	Enrich(ctx context.Context, articles []domain.Article) []domain.Article
}

type NewsCache interface {
	Get(key string) (store.Entry, bool, error)
	Put(key, trace string, items []domain.Article) error
}

type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) error
}

// Components are the collaborators App is assembled from. Optional ones
// may be nil.
type Components struct {
	News      NewsAggregator
	Metadata  agent.MetadataSource
	Predictor agent.Predictor
	Analyst   Analyst
	Enricher  Enricher
	Cache     NewsCache
	Publisher EventPublisher
}

// App is the explicit application context.
type App struct {
	cfg      *config.Config
	log      logger.Logger
	c        Components
	pipeline *agent.Pipeline
	agentErr error
	closers  []func() error
	now      func() time.Time
}

// AnalyzeResult is the outcome of a prediction with optional explanation.
type AnalyzeResult struct {
	Ticker      string            `json:"ticker"`
	Prediction  domain.Direction  `json:"model_prediction"`
	Indicators  domain.Indicators `json:"indicators"`
	Explanation *string           `json:"explanation"`
}

// NewsResult is the outcome of a news lookup.
type NewsResult struct {
	Ticker   string           `json:"ticker"`
	Provider string           `json:"provider"`
	Items    []domain.Article `json:"items"`
}

// New builds every collaborator from cfg.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	log = logger.Ensure(log)

	httpc := httpclient.NewRestyClient(httpclient.DefaultTimeout)
	marketClient := market.NewClient(
		market.WithHTTPClient(httpc),
		market.WithRateLimit(cfg.Market.RateLimit),
		market.WithLogger(log),
	)

	comps := Components{
		News:      aggregator.New(providers.DefaultFetcherRegistry(httpc), NewsSettings(cfg.News), log),
		Metadata:  marketClient,
		Predictor: predictor.New(marketClient, predictor.DefaultClassifier(), cfg.Market.HistoryRange, log),
	}

	var closers []func() error

	if claude, err := llm.NewClaudeClient(llm.ClaudeOptions{
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout,
	}, log); err == nil {
		comps.Analyst = llm.NewAnalyst(claude, log)
	} else {
		log.WarnObj("language model disabled", "llm_disabled", map[string]any{"reason": err.Error()})
	}

	if cfg.News.Enrich {
		comps.Enricher = crawler.NewEnricher(httpc, log, crawler.Options{})
	}

	if cfg.News.CachePath != "" {
		cache, err := store.Open(cfg.News.CachePath, cfg.News.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("open news cache: %w", err)
		}
		if n, err := cache.Prune(); err == nil && n > 0 {
			log.InfoObj("pruned expired news cache entries", "cache_prune", map[string]any{"removed": n})
		}
		comps.Cache = cache
		closers = append(closers, cache.Close)
	}

	if cfg.PublishersFile != "" {
		dispatcher, err := publishers.BuildDispatcher(ctx, nil, cfg.PublishersFile, log)
		if err != nil {
			for _, c := range closers {
				_ = c()
			}
			return nil, err
		}
		comps.Publisher = dispatcher
		closers = append(closers, dispatcher.Close)
	}

	a := Assemble(cfg, log, comps)
	a.closers = closers
	return a, nil
}

// Assemble wires an App from prebuilt components.
func Assemble(cfg *config.Config, log logger.Logger, c Components) *App {
	a := &App{cfg: cfg, log: logger.Ensure(log), c: c, now: time.Now}
	if c.Analyst == nil {
		a.agentErr = ErrLLMUnavailable
		return a
	}

	var news agent.NewsSource
	if c.News != nil {
		news = a
	}
	p, err := agent.New(agent.Deps{
		Metadata:  c.Metadata,
		News:      news,
		Predictor: c.Predictor,
		Analyst:   c.Analyst,
	}, a.log)
	if err != nil {
		a.agentErr = fmt.Errorf("agent pipeline unavailable: %w", err)
		a.log.WarnObj("agent pipeline disabled", "agent_disabled", map[string]any{"reason": err.Error()})
		return a
	}
	a.pipeline = p
	return a
}

// NewsSettings maps the news config onto aggregator settings.
func NewsSettings(n config.NewsConfig) aggregator.Settings {
	ps := make([]providers.Provider, 0, len(n.Providers))
	for _, id := range n.Providers {
		ps = append(ps, providerConfig(n, id))
	}
	return aggregator.Settings{
		Providers:        ps,
		Fallback:         providerConfig(n, providers.YFinanceProviderID),
		AugmentThreshold: n.AugmentThreshold,
		MaxItemsTotal:    n.MaxItemsTotal,
	}
}

func providerConfig(n config.NewsConfig, id string) providers.Provider {
	src := n.Source(id)
	return providers.Provider{
		ID:      id,
		APIKey:  src.APIKey,
		Items:   src.Items,
		Domains: src.Domains,
		Timeout: n.ProviderTimeout,
	}
}

// News aggregates, enriches and caches headlines for ticker.
func (a *App) News(ctx context.Context, ticker string, terms []string, limit int) (string, []domain.Article, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return "", nil, ErrInvalidTicker
	}
	if limit <= 0 {
		limit = a.cfg.News.DisplayLimit
	}

	key := store.Key(ticker, terms, a.now()) + fmt.Sprintf("|%d", limit)
	if a.c.Cache != nil {
		entry, ok, err := a.c.Cache.Get(key)
		switch {
		case err != nil:
			a.log.WarnObj("news cache read failed", "cache_error", map[string]any{"key": key, "error": err.Error()})
		case ok:
			a.log.DebugObj("news cache hit", "cache_hit", map[string]any{"key": key})
			return entry.Trace, entry.Items, nil
		}
	}

	res, err := a.c.News.Aggregate(ctx, aggregator.Request{Ticker: ticker, Terms: terms, Limit: limit})
	if err != nil {
		return "", nil, err
	}

	items := res.Items
	if a.c.Enricher != nil && len(items) > 0 {
		items = a.c.Enricher.Enrich(ctx, items)
	}

	if a.c.Cache != nil && len(items) > 0 {
		if err := a.c.Cache.Put(key, res.Trace, items); err != nil {
			a.log.WarnObj("news cache write failed", "cache_error", map[string]any{"key": key, "error": err.Error()})
		}
	}
	return res.Trace, items, nil
}

// LatestNews is the NewsResult form of News.
func (a *App) LatestNews(ctx context.Context, ticker string, terms []string, limit int) (NewsResult, error) {
	trace, items, err := a.News(ctx, ticker, terms, limit)
	if err != nil {
		return NewsResult{}, err
	}
	if items == nil {
		items = []domain.Article{}
	}
	return NewsResult{Ticker: strings.ToUpper(strings.TrimSpace(ticker)), Provider: trace, Items: items}, nil
}

// Analyze predicts the next-day direction and optionally explains it.
// A failed explanation leaves Explanation nil.
func (a *App) Analyze(ctx context.Context, ticker string, explain bool) (AnalyzeResult, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return AnalyzeResult{}, ErrInvalidTicker
	}

	pred, err := a.c.Predictor.Predict(ctx, ticker)
	if err != nil {
		return AnalyzeResult{}, fmt.Errorf("prediction failed: %w", err)
	}

	res := AnalyzeResult{Ticker: ticker, Prediction: pred.Direction, Indicators: pred.Indicators}
	if explain {
		if a.c.Analyst == nil {
			a.log.WarnObj("explanation skipped", "explain_skipped", map[string]any{"ticker": ticker, "reason": ErrLLMUnavailable.Error()})
		} else if text, err := a.c.Analyst.Explain(ctx, pred); err != nil {
			a.log.WarnObj("explanation failed", "explain_error", map[string]any{"ticker": ticker, "error": err.Error()})
		} else {
			res.Explanation = &text
		}
	}
	return res, nil
}

// AnalyzeAgent runs the full agent pipeline and publishes the outcome.
func (a *App) AnalyzeAgent(ctx context.Context, ticker, question string) (agent.State, error) {
	if strings.TrimSpace(ticker) == "" {
		return agent.State{}, ErrInvalidTicker
	}
	if a.pipeline == nil {
		return agent.State{}, a.agentErr
	}

	st, err := a.pipeline.Run(ctx, ticker, question)
	if err != nil {
		return st, fmt.Errorf("agent failed: %w", err)
	}

	if a.c.Publisher != nil {
		evt := publishers.NewEvent(publishers.EventAnalysisCompleted, "agent", st.Ticker)
		evt.Question = st.Question
		evt.Prediction = st.Prediction
		sent := st.Sentiment
		evt.Sentiment = &sent
		evt.Alignment = st.Alignment
		evt.NewsProvider = st.NewsProvider
		evt.Report = st.Report
		if err := a.c.Publisher.Publish(ctx, evt); err != nil {
			a.log.WarnObj("analysis event not fully delivered", "publish_error", map[string]any{
				"ticker": st.Ticker,
				"error":  err.Error(),
			})
		}
	}
	return st, nil
}

// Close releases resources opened by New.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
