// Package strategy holds signal engines.
package strategy

import (
	"SignalTrader/internal/domain/models"
)

// EMA returns the recursive exponential moving average of values with
// smoothing factor 2/(period+1), seeded with the first sample.
func EMA(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	if period < 1 {
		period = 1
	}
	alpha := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// Falcon is the EMA crossover engine: a fast/mid crossover confirmed by the
// mid/slow trend.
type Falcon struct {
	Fast int
	Mid  int
	Slow int
}

// NewFalcon returns the engine with the 9/20/50 periods.
func NewFalcon() *Falcon {
	return &Falcon{Fast: 9, Mid: 20, Slow: 50}
}

// Evaluate inspects the last two candles. It reports false when there are
// fewer than two candles or no confirmed crossover.
func (f *Falcon) Evaluate(candles []models.Candle, risk models.RiskConfig) (models.Signal, bool) {
	if len(candles) < 2 {
		return models.Signal{}, false
	}

	closes := models.Closes(candles)
	fast := EMA(closes, f.Fast)
	mid := EMA(closes, f.Mid)
	slow := EMA(closes, f.Slow)

	last, prev := len(closes)-1, len(closes)-2
	entry := closes[last]
	sl := risk.StopLossPct / 100
	tp := risk.TakeProfitPct / 100

	switch {
	case fast[prev] < mid[prev] && fast[last] > mid[last] && mid[last] > slow[last]:
		return models.Signal{
			Side:  models.SideLong,
			Entry: entry,
			Stop:  entry * (1 - sl),
			Take:  entry * (1 + tp),
		}, true
	case fast[prev] > mid[prev] && fast[last] < mid[last] && mid[last] < slow[last]:
		return models.Signal{
			Side:  models.SideShort,
			Entry: entry,
			Stop:  entry * (1 + sl),
			Take:  entry * (1 - tp),
		}, true
	}
	return models.Signal{}, false
}
