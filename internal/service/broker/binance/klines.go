package binance

import (
	"context"
	"fmt"
	"strconv"

	"SignalTrader/internal/domain/errs"
	"SignalTrader/internal/domain/models"
	"SignalTrader/internal/service/broker"
	"SignalTrader/internal/service/marketdata"
	applogger "SignalTrader/pkg/logger"
	"SignalTrader/pkg/util"

	json "github.com/goccy/go-json"
)

// Candles fetches klines from the public futures endpoint. Intervals use the
// exchange notation (1m, 5m, 1h, 1d). The result is nil on any failure.
func (a *Adapter) Candles(ctx context.Context, symbol, interval string, limit int, env models.Environment) []models.Candle {
	params := broker.Params{}.
		Add("symbol", symbol).
		Add("interval", interval).
		Add("limit", strconv.Itoa(limit))

	var rows []klineRow
	if err := a.public(ctx, "klines", pathKlines, env, params, &rows); err != nil {
		a.t.Fail("klines", err, applogger.String("symbol", symbol), applogger.String("interval", interval))
		return nil
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
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
	var openTime int64
	if err := json.Unmarshal(row[0], &openTime); err != nil {
		return models.Candle{}, errs.Transport(Name, "klines", fmt.Errorf("open time: %w", err))
	}
	values := make([]float64, 5)
	for i := range values {
		var s string
		if err := json.Unmarshal(row[i+1], &s); err != nil {
			return models.Candle{}, errs.Transport(Name, "klines", fmt.Errorf("field %d: %w", i+1, err))
		}
		v, ok := util.ParseFloat(s)
		if !ok {
			return models.Candle{}, errs.Transport(Name, "klines", fmt.Errorf("field %d: invalid number %q", i+1, s))
		}
		values[i] = v
	}
	return models.Candle{
		Time:   util.FromMillis(openTime),
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}
