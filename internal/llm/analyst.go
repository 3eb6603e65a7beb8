package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
	"github.com/Adda-Baaj/stock-pulse/internal/logger"
)

const maxSentimentHeadlines = 5

// Analyst runs the analysis prompts against a Client.
type Analyst struct {
	client Client
	log    logger.Logger
}

// NewAnalyst wraps client.
func NewAnalyst(client Client, log logger.Logger) *Analyst {
	return &Analyst{client: client, log: logger.Ensure(log)}
}

// PlanNewsQuery asks the model for search terms for the ticker. Blank terms
// are dropped; when none remain the metadata names and the ticker are used.
func (a *Analyst) PlanNewsQuery(ctx context.Context, ticker string, meta domain.TickerMetadata) ([]string, error) {
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	prompt := Prompt{
		System: "You generate search terms for financial news APIs. Reply with JSON only.",
		User: fmt.Sprintf(`Generate precise search terms for a news API query, using the provided ticker metadata.

Ticker: %s
Metadata (JSON):
%s

Return JSON: {"terms": ["..."]}

Rules:
- Prefer official names from metadata (short_name/long_name) over generic terms.
- Include 3 to 6 terms.
- Avoid overly generic terms like "ETF", "fund" or "stock".
- For ETFs and commodities include 1-2 asset specific phrases if clearly implied.
- Only include the raw ticker if it is likely unambiguous (4+ chars) or commonly referenced.`, ticker, metaJSON),
	}

	raw, err := a.client.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("plan news query: %w", err)
	}

	var out struct {
		Terms []string `json:"terms"`
	}
	if err := decodeJSON(raw, &out); err != nil {
		a.log.WarnObj("news query plan unparseable, using fallback", "plan_fallback", map[string]any{
			"ticker": ticker,
			"error":  err.Error(),
		})
	}

	terms := cleanTerms(out.Terms)
	if len(terms) == 0 {
		terms = cleanTerms([]string{meta.ShortName, meta.LongName, ticker})
	}

	a.log.InfoObj("news query planned", "plan_news_query", map[string]any{
		"ticker": ticker,
		"terms":  terms,
	})
	return terms, nil
}

// ScoreSentiment scores the tone of the first few headlines.
func (a *Analyst) ScoreSentiment(ctx context.Context, items []domain.Article) (domain.Sentiment, error) {
	headlines := make([]string, 0, maxSentimentHeadlines)
	for _, it := range items {
		if t := strings.TrimSpace(it.Title); t != "" {
			headlines = append(headlines, t)
			if len(headlines) == maxSentimentHeadlines {
				break
			}
		}
	}
	if len(headlines) == 0 {
		return domain.Sentiment{Label: domain.SentimentNoNews, Score: 0, Headlines: []string{}}, nil
	}

	list, _ := json.MarshalIndent(headlines, "", "  ")
	prompt := Prompt{
		System: "You score short-term news tone. Reply with JSON only.",
		User: fmt.Sprintf(`You are scoring SHORT-TERM news tone for the next 1-3 trading days for the given asset.
Use ONLY the headlines; do not invent details.

Headlines:
%s

Return JSON: {"label": "POSITIVE|NEGATIVE|NEUTRAL|MIXED", "score": <float in [-1,1]>}`, list),
	}

	raw, err := a.client.Complete(ctx, prompt)
	if err != nil {
		return domain.Sentiment{}, fmt.Errorf("score sentiment: %w", err)
	}

	var out struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := decodeJSON(raw, &out); err != nil {
		return domain.Sentiment{}, fmt.Errorf("score sentiment: %w", err)
	}

	return domain.Sentiment{
		Label:     normalizeLabel(out.Label),
		Score:     clamp(out.Score, -1, 1),
		Headlines: headlines,
	}, nil
}

// ReportInput is everything the report prompt draws on.
type ReportInput struct {
	Ticker     string
	Question   string
	Prediction *domain.Prediction
	Sentiment  domain.Sentiment
	Alignment  domain.Alignment
	Provider   string
	News       []domain.Article
}

// Summarize writes the agent report.
func (a *Analyst) Summarize(ctx context.Context, in ReportInput) (string, error) {
	type compactNews struct {
		Title       string `json:"title"`
		Source      string `json:"source,omitempty"`
		PublishedAt string `json:"published_at,omitempty"`
	}
	news := make([]compactNews, 0, len(in.News))
	for _, n := range in.News {
		if n.Title != "" {
			news = append(news, compactNews{Title: n.Title, Source: n.Source, PublishedAt: n.PublishedAt})
		}
	}
	newsJSON, _ := json.MarshalIndent(news, "", "  ")

	prediction := "unavailable"
	indicatorsJSON := []byte("{}")
	if in.Prediction != nil {
		prediction = string(in.Prediction.Direction)
		indicatorsJSON, _ = json.MarshalIndent(in.Prediction.Indicators, "", "  ")
	}

	provider := in.Provider
	if provider == "" {
		provider = "unknown"
	}

	prompt := Prompt{
		Temperature: 0.4,
		User: fmt.Sprintf(`You are an AI assistant that summarizes short-term stock signals for educational purposes (not financial advice).

Ticker: %s
User question: %s

Model prediction horizon: next trading day (directional UP/DOWN).
Model prediction for tomorrow: %s

News sentiment horizon: next 1-3 trading days.
News sentiment: %s (score=%.2f)
Model vs news alignment: %s

Latest indicators (JSON):
%s

Recent news headlines (provider=%s) (JSON):
%s

Write a concise report with:
1) One-line summary (include model prediction and whether news aligns or conflicts)
2) Indicators interpretation in simple terms
3) News context (ONLY headlines provided; no hallucinations)
4) What to watch next day (2-3 bullets)
5) Headlines used (max 5)

Include a short disclaimer that this is not financial advice.`,
			in.Ticker, in.Question, prediction, in.Sentiment.Label, in.Sentiment.Score, in.Alignment,
			indicatorsJSON, provider, newsJSON),
	}

	report, err := a.client.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return strings.TrimSpace(report), nil
}

// Explain describes in plain words why the indicators point the way they do.
func (a *Analyst) Explain(ctx context.Context, pred domain.Prediction) (string, error) {
	prompt := Prompt{
		Temperature: 0.7,
		MaxTokens:   500,
		User: fmt.Sprintf(`Stock: %s
Model prediction: %s tomorrow.
Key indicators:
- RSI: %.2f
- EMA_10: %.2f
- EMA_50: %.2f
- MACD: %.4f

Explain in simple terms why the model might predict this and what these indicators generally mean. Also mention in one line what an investor should watch out for. Keep the response brief.`,
			pred.Ticker, pred.Direction, pred.Indicators.RSI, pred.Indicators.EMA10, pred.Indicators.EMA50, pred.Indicators.MACD),
	}

	text, err := a.client.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("explain: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// decodeJSON unmarshals the first JSON object found in a model reply,
// tolerating code fences and surrounding prose.
func decodeJSON(raw string, out any) error {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return errors.New("no JSON object in model reply")
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), out); err != nil {
		return fmt.Errorf("decode model reply: %w", err)
	}
	return nil
}

func normalizeLabel(raw string) domain.SentimentLabel {
	switch label := domain.SentimentLabel(strings.ToUpper(strings.TrimSpace(raw))); label {
	case domain.SentimentPositive, domain.SentimentNegative, domain.SentimentNeutral, domain.SentimentMixed:
		return label
	default:
		return domain.SentimentNeutral
	}
}

func cleanTerms(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
