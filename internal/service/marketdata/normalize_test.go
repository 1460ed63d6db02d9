package marketdata

import (
	"context"
	"math"
	"testing"
	"time"

	"SignalTrader/internal/domain/models"

	"github.com/stretchr/testify/require"
)

func candle(minute int, close float64) models.Candle {
	return models.Candle{
		Time:  time.Date(2025, 1, 1, 0, minute, 0, 0, time.UTC),
		Open:  close,
		High:  close,
		Low:   close,
		Close: close,
	}
}

func TestNormalizeSortsAndFilters(t *testing.T) {
	in := []models.Candle{
		candle(10, 3),
		candle(0, 1),
		{Close: 5},
		candle(5, 2),
		candle(15, math.NaN()),
		candle(5, 2.5),
	}

	out := Normalize(in)
	require.Len(t, out, 3)
	require.Equal(t, []float64{1, 2.5, 3}, models.Closes(out))
}

func TestNormalizeEmpty(t *testing.T) {
	require.Empty(t, Normalize(nil))
}

type fakeSource struct {
	candles []models.Candle
	calls   int
}

func (f *fakeSource) Candles(context.Context, string, string, int, models.Environment) []models.Candle {
	f.calls++
	return f.candles
}

func TestRouterDispatchesByBroker(t *testing.T) {
	bybit := &fakeSource{candles: []models.Candle{candle(5, 2), candle(0, 1)}}
	r := NewRouter(nil, WithBrokerSource("bybit", bybit))

	got := r.Candles(context.Background(), "ByBit", "BTCUSDT", "5m", 2, models.EnvLive)
	require.Equal(t, []float64{1, 2}, models.Closes(got))
	require.Equal(t, 1, bybit.calls)

	require.Nil(t, r.Candles(context.Background(), "kraken", "BTCUSDT", "5m", 2, models.EnvLive))
}

func TestRouterFixedSourceWins(t *testing.T) {
	fixed := &fakeSource{candles: []models.Candle{candle(0, 1)}}
	broker := &fakeSource{}
	r := NewRouter(nil, WithBrokerSource("binance", broker), WithFixedSource(fixed))

	r.Candles(context.Background(), "binance", "BTCUSDT", "5m", 1, models.EnvLive)
	require.Equal(t, 1, fixed.calls)
	require.Zero(t, broker.calls)
}

func TestRouterPassesNilThrough(t *testing.T) {
	r := NewRouter(nil, WithFixedSource(&fakeSource{}))
	require.Nil(t, r.Candles(context.Background(), "binance", "BTCUSDT", "5m", 1, models.EnvLive))
}
