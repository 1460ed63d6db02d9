package binance

import (
	"context"

	"SignalTrader/internal/domain/models"
	"SignalTrader/internal/service/broker"
	xhttp "SignalTrader/pkg/http"
	applogger "SignalTrader/pkg/logger"
)

// HasOpenPosition reports a nonzero positionAmt for symbol. Any failure
// yields true.
func (a *Adapter) HasOpenPosition(ctx context.Context, creds models.Credentials, symbol string, env models.Environment) bool {
	pos, err := a.position(ctx, creds, symbol, env)
	if err != nil {
		a.t.Fail("position", err, applogger.String("symbol", symbol))
		return true
	}
	if pos == nil {
		return false
	}
	amt, err := parseAmount("position", "positionAmt", pos.PositionAmt)
	if err != nil {
		a.t.Fail("position", err, applogger.String("symbol", symbol))
		return true
	}
	if amt != 0 {
		a.t.Logger().Debug("open position found",
			applogger.String("broker", Name),
			applogger.String("symbol", symbol),
			applogger.Float64("amount", amt),
		)
		return true
	}
	return false
}

// position returns the positionRisk row for symbol, or nil when the account
// has none.
func (a *Adapter) position(ctx context.Context, creds models.Credentials, symbol string, env models.Environment) (*positionRisk, error) {
	var rows []positionRisk
	if err := a.signed(ctx, "position", xhttp.MethodGet, pathPositionRisk, env, creds, broker.Params{}, &rows); err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].Symbol == symbol {
			return &rows[i], nil
		}
	}
	return nil, nil
}
