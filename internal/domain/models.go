package domain

// Domain contains core models shared by the news, prediction and agent layers.

// Article is a normalized news item produced by a provider adapter.
// Empty strings stand for absent values.
type Article struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Source      string   `json:"source,omitempty"`
	URL         string   `json:"url,omitempty"`
	PublishedAt string   `json:"published_at,omitempty"`
	Tickers     []string `json:"tickers"`
	Provider    string   `json:"provider"`
}

// TickerMetadata describes the listed instrument behind a ticker symbol.
type TickerMetadata struct {
	Symbol    string `json:"symbol"`
	ShortName string `json:"short_name,omitempty"`
	LongName  string `json:"long_name,omitempty"`
	QuoteType string `json:"quote_type,omitempty"`
	Exchange  string `json:"exchange,omitempty"`
	Currency  string `json:"currency,omitempty"`
}

// Indicators holds the latest technical indicator values used for prediction.
type Indicators struct {
	RSI   float64 `json:"RSI"`
	EMA10 float64 `json:"EMA_10"`
	EMA50 float64 `json:"EMA_50"`
	MACD  float64 `json:"MACD"`
}

// Direction is the predicted next-day price move.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// Prediction is the model output for a single ticker.
type Prediction struct {
	Ticker     string     `json:"ticker"`
	Direction  Direction  `json:"direction"`
	Indicators Indicators `json:"indicators"`
}

// SentimentLabel is the coarse tone of recent headlines.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "POSITIVE"
	SentimentNegative SentimentLabel = "NEGATIVE"
	SentimentNeutral  SentimentLabel = "NEUTRAL"
	SentimentMixed    SentimentLabel = "MIXED"
	SentimentNoNews   SentimentLabel = "NO_NEWS"
)

// Sentiment is the scored tone of the headlines that were fed to the scorer.
type Sentiment struct {
	Label     SentimentLabel `json:"label"`
	Score     float64        `json:"score"`
	Headlines []string       `json:"headlines"`
}

// Alignment compares the model direction with the news tone.
type Alignment string

const (
	AlignmentAligned  Alignment = "ALIGNED"
	AlignmentConflict Alignment = "CONFLICT"
	AlignmentUnknown  Alignment = "UNKNOWN"
)
