// Package indicators computes the technical indicators used by the predictor
// from a daily close series (oldest first).
package indicators

import (
	"fmt"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
)

const (
	RSIPeriod   = 14
	EMAShort    = 10
	EMALong     = 50
	MACDFast    = 12
	MACDSlow    = 26
	MinHistory  = RSIPeriod + 1
	neutralRSI  = 50.0
	maxRSIValue = 100.0
)

// EMA returns the exponential moving average series with alpha 2/(span+1),
// seeded with the first value.
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 || span <= 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI returns the relative strength index of the last period price changes,
// using simple means of gains and losses.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 || len(closes) < period+1 {
		return 0, fmt.Errorf("rsi needs %d closes, got %d", period+1, len(closes))
	}

	var gain, loss float64
	start := len(closes) - period
	for i := start; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}
	gain /= float64(period)
	loss /= float64(period)

	switch {
	case gain == 0 && loss == 0:
		return neutralRSI, nil
	case loss == 0:
		return maxRSIValue, nil
	}
	rs := gain / loss
	return 100 - 100/(1+rs), nil
}

// MACD returns the last value of EMA(fast) - EMA(slow).
func MACD(closes []float64) float64 {
	if len(closes) == 0 {
		return 0
	}
	fast := EMA(closes, MACDFast)
	slow := EMA(closes, MACDSlow)
	return fast[len(fast)-1] - slow[len(slow)-1]
}

// Compute returns one indicator row per close from index RSIPeriod onward,
// the first point at which every indicator is defined. Row i of the result
// corresponds to closes[i+RSIPeriod].
func Compute(closes []float64) []domain.Indicators {
	if len(closes) < MinHistory {
		return nil
	}
	short := EMA(closes, EMAShort)
	long := EMA(closes, EMALong)
	fast := EMA(closes, MACDFast)
	slow := EMA(closes, MACDSlow)

	rows := make([]domain.Indicators, 0, len(closes)-RSIPeriod)
	for i := RSIPeriod; i < len(closes); i++ {
		rsi, _ := RSI(closes[:i+1], RSIPeriod)
		rows = append(rows, domain.Indicators{
			RSI:   rsi,
			EMA10: short[i],
			EMA50: long[i],
			MACD:  fast[i] - slow[i],
		})
	}
	return rows
}

// Latest computes the indicator snapshot for the most recent close.
func Latest(closes []float64) (domain.Indicators, error) {
	rows := Compute(closes)
	if len(rows) == 0 {
		return domain.Indicators{}, fmt.Errorf("not enough price history: need %d closes, got %d", MinHistory, len(closes))
	}
	return rows[len(rows)-1], nil
}
