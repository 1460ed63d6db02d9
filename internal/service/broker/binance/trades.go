package binance

import (
	"context"
	"strconv"

	"SignalTrader/internal/domain/models"
	"SignalTrader/internal/service/broker"
	xhttp "SignalTrader/pkg/http"
	applogger "SignalTrader/pkg/logger"
	"SignalTrader/pkg/util"
)

// ClosedTrades returns recent fills for symbol once the position is flat.
// While a position is still open the fills belong to a live trade and
// nothing is returned. Fills of the same order are merged into one trade.
func (a *Adapter) ClosedTrades(ctx context.Context, creds models.Credentials, symbol string, env models.Environment, limit int) []models.ClosedTrade {
	pos, err := a.position(ctx, creds, symbol, env)
	if err != nil {
		a.t.Fail("closed_trades", err, applogger.String("symbol", symbol))
		return []models.ClosedTrade{}
	}
	if pos == nil {
		return []models.ClosedTrade{}
	}
	if amt, err := parseAmount("closed_trades", "positionAmt", pos.PositionAmt); err != nil || amt != 0 {
		if err != nil {
			a.t.Fail("closed_trades", err, applogger.String("symbol", symbol))
		}
		return []models.ClosedTrade{}
	}

	params := broker.Params{}.
		Add("symbol", symbol).
		Add("limit", strconv.Itoa(limit))

	var fills []userTrade
	if err := a.signed(ctx, "closed_trades", xhttp.MethodGet, pathUserTrades, env, creds, params, &fills); err != nil {
		a.t.Fail("closed_trades", err, applogger.String("symbol", symbol))
		return []models.ClosedTrade{}
	}

	trades, err := mergeFills(fills)
	if err != nil {
		a.t.Fail("closed_trades", err, applogger.String("symbol", symbol))
		return []models.ClosedTrade{}
	}
	return trades
}

func mergeFills(fills []userTrade) ([]models.ClosedTrade, error) {
	out := make([]models.ClosedTrade, 0, len(fills))
	index := make(map[int64]int, len(fills))
	notional := make(map[int64]float64, len(fills))

	for _, f := range fills {
		price, err := parseAmount("closed_trades", "price", f.Price)
		if err != nil {
			return nil, err
		}
		qty, err := parseAmount("closed_trades", "qty", f.Qty)
		if err != nil {
			return nil, err
		}
		fee := util.ParseFloatDefault(f.Commission, 0)
		pnl := util.ParseFloatDefault(f.RealizedPnl, 0)
		at := util.FromMillis(f.Time)

		i, seen := index[f.OrderID]
		if !seen {
			index[f.OrderID] = len(out)
			out = append(out, models.ClosedTrade{
				OrderID:  strconv.FormatInt(f.OrderID, 10),
				Symbol:   f.Symbol,
				Side:     f.Side,
				OpenedAt: at,
				ClosedAt: at,
			})
			i = len(out) - 1
		}

		t := &out[i]
		t.Qty += qty
		t.Fee += fee
		t.PnL += pnl
		notional[f.OrderID] += price * qty
		if at.Before(t.OpenedAt) {
			t.OpenedAt = at
		}
		if at.After(t.ClosedAt) {
			t.ClosedAt = at
		}
	}

	// Market fills: entry and exit are both the volume-weighted fill price.
	for id, i := range index {
		if out[i].Qty > 0 {
			avg := notional[id] / out[i].Qty
			out[i].EntryPrice = avg
			out[i].ExitPrice = avg
		}
	}
	return out, nil
}
