// Package marketdata routes candle requests to a provider and normalizes the
// result into an oldest-to-newest sequence.
package marketdata

import (
	"math"
	"sort"

	"SignalTrader/internal/domain/models"
)

// Normalize drops rows without a timestamp or with non-positive or
// non-finite prices, sorts by time ascending and removes duplicate
// timestamps, keeping the last occurrence.
func Normalize(candles []models.Candle) []models.Candle {
	out := make([]models.Candle, 0, len(candles))
	for _, c := range candles {
		if valid(c) {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	dedup := out[:0]
	for _, c := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Time.Equal(c.Time) {
			dedup[n-1] = c
			continue
		}
		dedup = append(dedup, c)
	}
	return dedup
}

func valid(c models.Candle) bool {
	if c.Time.IsZero() {
		return false
	}
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return !math.IsNaN(c.Volume)
}
