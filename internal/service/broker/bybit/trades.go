package bybit

import (
	"context"
	"strconv"
	"time"

	"SignalTrader/internal/domain/models"
	"SignalTrader/internal/service/broker"
	applogger "SignalTrader/pkg/logger"
	"SignalTrader/pkg/util"
)

// ClosedTrades returns realized PnL records. The closed-pnl endpoint only
// lists settled positions, so no position check is needed.
func (a *Adapter) ClosedTrades(ctx context.Context, creds models.Credentials, symbol string, env models.Environment, limit int) []models.ClosedTrade {
	params := broker.Params{}.
		Add("category", category).
		Add("symbol", symbol).
		Add("limit", strconv.Itoa(limit))

	var res listResult[closedPnl]
	if err := a.get(ctx, "closed_trades", pathClosedPnl, env, &creds, params, &res); err != nil {
		a.t.Fail("closed_trades", err, applogger.String("symbol", symbol))
		return []models.ClosedTrade{}
	}

	out := make([]models.ClosedTrade, 0, len(res.List))
	for _, r := range res.List {
		if r.OrderID == "" {
			continue
		}
		opened, closed := a.tradeTimes(r)
		out = append(out, models.ClosedTrade{
			OrderID:    r.OrderID,
			Symbol:     r.Symbol,
			Side:       r.Side,
			EntryPrice: firstFloat(r.AvgEntryPrice, r.EntryPrice),
			ExitPrice:  firstFloat(r.AvgExitPrice, r.ExitPrice),
			Qty:        util.ParseFloatDefault(r.Qty, 0),
			Fee:        fee(r),
			PnL:        util.ParseFloatDefault(r.ClosedPnl, 0),
			OpenedAt:   opened,
			ClosedAt:   closed,
		})
	}
	return out
}

// tradeTimes parses the record's timestamps. A missing or malformed one
// falls back to the other, and to the current time when both are unusable.
func (a *Adapter) tradeTimes(r closedPnl) (opened, closed time.Time) {
	opened, okOpened := util.ParseMillis(r.CreatedTime)
	closed, okClosed := util.ParseMillis(r.UpdatedTime)
	if okOpened && okClosed {
		return opened, closed
	}

	a.t.Logger().Warn("closed trade has unusable timestamp",
		applogger.String("broker", Name),
		applogger.String("order_id", r.OrderID),
		applogger.String("created_time", r.CreatedTime),
		applogger.String("updated_time", r.UpdatedTime),
	)
	switch {
	case okOpened:
		closed = opened
	case okClosed:
		opened = closed
	default:
		opened = a.now()
		closed = opened
	}
	return opened, closed
}

func (a *Adapter) now() time.Time {
	if a.signer.Now != nil {
		return a.signer.Now()
	}
	return time.Now()
}

func fee(r closedPnl) float64 {
	open, okOpen := util.ParseFloat(r.OpenFee)
	closeFee, okClose := util.ParseFloat(r.CloseFee)
	if okOpen || okClose {
		return open + closeFee
	}
	return util.ParseFloatDefault(r.CumExecFee, 0)
}

func firstFloat(values ...string) float64 {
	for _, v := range values {
		if f, ok := util.ParseFloat(v); ok {
			return f
		}
	}
	return 0
}
