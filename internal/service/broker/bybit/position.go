package bybit

import (
	"context"

	"SignalTrader/internal/domain/models"
	"SignalTrader/internal/service/broker"
	applogger "SignalTrader/pkg/logger"
	"SignalTrader/pkg/util"
)

// HasOpenPosition reports a nonzero size for symbol. Any failure yields true.
func (a *Adapter) HasOpenPosition(ctx context.Context, creds models.Credentials, symbol string, env models.Environment) bool {
	params := broker.Params{}.
		Add("category", category).
		Add("symbol", symbol)

	var res listResult[position]
	if err := a.get(ctx, "position", pathPositionList, env, &creds, params, &res); err != nil {
		a.t.Fail("position", err, applogger.String("symbol", symbol))
		return true
	}

	for _, p := range res.List {
		if p.Symbol != "" && p.Symbol != symbol {
			continue
		}
		size, ok := util.ParseFloat(p.Size)
		if !ok {
			a.t.Logger().Error("unreadable position size",
				applogger.String("broker", Name),
				applogger.String("symbol", symbol),
				applogger.String("size", p.Size),
			)
			return true
		}
		if size != 0 {
			a.t.Logger().Debug("open position found",
				applogger.String("broker", Name),
				applogger.String("symbol", symbol),
				applogger.String("side", p.Side),
				applogger.Float64("size", size),
			)
			return true
		}
	}
	return false
}
