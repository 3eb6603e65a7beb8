package predictor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
	"github.com/Adda-Baaj/stock-pulse/internal/market"
)

type fakeHistory struct {
	bars []market.Bar
	err  error
	rng  string
}

func (f *fakeHistory) History(_ context.Context, _ string, rng string) ([]market.Bar, error) {
	f.rng = rng
	return f.bars, f.err
}

func trend(n int, step float64) []market.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, n)
	for i := range bars {
		bars[i] = market.Bar{Time: start.AddDate(0, 0, i), Close: 100 + step*float64(i)}
	}
	return bars
}

func TestRuleClassifier(t *testing.T) {
	c := DefaultClassifier()
	tests := map[string]struct {
		in   domain.Indicators
		want domain.Direction
	}{
		"bullish":          {domain.Indicators{RSI: 25, EMA10: 11, EMA50: 10, MACD: 1}, domain.DirectionUp},
		"bearish":          {domain.Indicators{RSI: 75, EMA10: 9, EMA50: 10, MACD: -1}, domain.DirectionDown},
		"trend outweighs":  {domain.Indicators{RSI: 75, EMA10: 11, EMA50: 10, MACD: 1}, domain.DirectionUp},
		"neutral rsi down": {domain.Indicators{RSI: 50, EMA10: 9, EMA50: 10, MACD: -0.1}, domain.DirectionDown},
		"tie goes up":      {domain.Indicators{RSI: 50, EMA10: 11, EMA50: 10, MACD: -1}, domain.DirectionUp},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Classify(tc.in))
		})
	}
}

func TestPredict(t *testing.T) {
	src := &fakeHistory{bars: trend(80, -1)}
	p := New(src, nil, "", nil)

	pred, err := p.Predict(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", pred.Ticker)
	assert.Equal(t, domain.DirectionDown, pred.Direction)
	assert.Less(t, pred.Indicators.MACD, 0.0)
	assert.Equal(t, DefaultHistoryRange, src.rng)
}

func TestPredictErrors(t *testing.T) {
	_, err := New(&fakeHistory{err: errors.New("down")}, nil, "1y", nil).Predict(context.Background(), "AAPL")
	require.Error(t, err)

	_, err = New(&fakeHistory{bars: trend(5, 1)}, nil, "1y", nil).Predict(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough price history")

	_, err = New(nil, nil, "", nil).Predict(context.Background(), "AAPL")
	require.Error(t, err)
}
