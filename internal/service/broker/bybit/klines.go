package bybit

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"SignalTrader/internal/domain/errs"
	"SignalTrader/internal/domain/models"
	"SignalTrader/internal/service/broker"
	"SignalTrader/internal/service/marketdata"
	applogger "SignalTrader/pkg/logger"
	"SignalTrader/pkg/util"
)

var intervals = map[string]string{
	"1m": "1", "3m": "3", "5m": "5", "15m": "15", "30m": "30",
	"1h": "60", "2h": "120", "4h": "240", "6h": "360", "12h": "720",
	"1d": "D", "1w": "W", "1M": "M",
}

// Interval converts 5m/1h/1d notation to the V5 kline interval. Values that
// are already in V5 notation pass through.
func Interval(s string) string {
	if v, ok := intervals[s]; ok {
		return v
	}
	if v, ok := intervals[strings.ToLower(s)]; ok {
		return v
	}
	return s
}

// Candles fetches public klines. The endpoint lists newest first; the result
// is returned oldest first, or nil on any failure.
func (a *Adapter) Candles(ctx context.Context, symbol, interval string, limit int, env models.Environment) []models.Candle {
	params := broker.Params{}.
		Add("category", category).
		Add("symbol", symbol).
		Add("interval", Interval(interval)).
		Add("limit", strconv.Itoa(limit))

	var res listResult[klineRow]
	if err := a.get(ctx, "klines", pathKline, env, nil, params, &res); err != nil {
		a.t.Fail("klines", err, applogger.String("symbol", symbol), applogger.String("interval", interval))
		return nil
	}

	candles := make([]models.Candle, 0, len(res.List))
	for _, row := range res.List {
		c, err := parseKline(row)
		if err != nil {
			a.t.Fail("klines", err, applogger.String("symbol", symbol))
			return nil
		}
		candles = append(candles, c)
	}
	return marketdata.Normalize(candles)
}

func parseKline(row klineRow) (models.Candle, error) {
	if len(row) < 6 {
		return models.Candle{}, errs.Transport(Name, "klines", fmt.Errorf("kline row has %d fields", len(row)))
	}
	ts, ok := util.ParseMillis(row[0])
	if !ok {
		return models.Candle{}, errs.Transport(Name, "klines", fmt.Errorf("invalid start time %q", row[0]))
	}
	values := make([]float64, 5)
	for i := range values {
		v, ok := util.ParseFloat(row[i+1])
		if !ok {
			return models.Candle{}, errs.Transport(Name, "klines", fmt.Errorf("field %d: invalid number %q", i+1, row[i+1]))
		}
		values[i] = v
	}
	return models.Candle{
		Time:   ts,
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}
