// Package predictor turns price history into a next-day direction call.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
	"github.com/Adda-Baaj/stock-pulse/internal/indicators"
	"github.com/Adda-Baaj/stock-pulse/internal/logger"
	"github.com/Adda-Baaj/stock-pulse/internal/market"
)

const DefaultHistoryRange = "2y"

// Classifier maps an indicator snapshot to a direction.
type Classifier interface {
	Classify(ind domain.Indicators) domain.Direction
}

// HistorySource supplies daily bars.
type HistorySource interface {
	History(ctx context.Context, ticker, rng string) ([]market.Bar, error)
}

// RuleClassifier votes with the classic indicator thresholds: oversold RSI,
// a short EMA above the long one and a positive MACD each count as up.
// Ties resolve to up.
type RuleClassifier struct {
	Oversold   float64
	Overbought float64
}

// DefaultClassifier uses the 30/70 RSI bands.
func DefaultClassifier() RuleClassifier {
	return RuleClassifier{Oversold: 30, Overbought: 70}
}

func (c RuleClassifier) Classify(ind domain.Indicators) domain.Direction {
	score := 0
	switch {
	case ind.RSI < c.Oversold:
		score++
	case ind.RSI > c.Overbought:
		score--
	}
	switch {
	case ind.EMA10 > ind.EMA50:
		score++
	case ind.EMA10 < ind.EMA50:
		score--
	}
	switch {
	case ind.MACD > 0:
		score++
	case ind.MACD < 0:
		score--
	}
	if score >= 0 {
		return domain.DirectionUp
	}
	return domain.DirectionDown
}

// Predictor fetches history, computes indicators and classifies them.
type Predictor struct {
	source     HistorySource
	classifier Classifier
	rng        string
	log        logger.Logger
}

// New builds a Predictor. A nil classifier falls back to DefaultClassifier.
func New(source HistorySource, classifier Classifier, rng string, log logger.Logger) *Predictor {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	if strings.TrimSpace(rng) == "" {
		rng = DefaultHistoryRange
	}
	return &Predictor{source: source, classifier: classifier, rng: rng, log: logger.Ensure(log)}
}

// Predict returns the direction call and the indicators behind it.
func (p *Predictor) Predict(ctx context.Context, ticker string) (domain.Prediction, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if p.source == nil {
		return domain.Prediction{}, errors.New("predictor has no history source")
	}

	bars, err := p.source.History(ctx, ticker, p.rng)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("load history for %s: %w", ticker, err)
	}
	ind, err := indicators.Latest(market.Closes(bars))
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("indicators for %s: %w", ticker, err)
	}

	pred := domain.Prediction{
		Ticker:     ticker,
		Direction:  p.classifier.Classify(ind),
		Indicators: ind,
	}
	p.log.InfoObj("prediction computed", "prediction", map[string]any{
		"ticker":    ticker,
		"direction": pred.Direction,
		"bars":      len(bars),
	})
	return pred, nil
}
