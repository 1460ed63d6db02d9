package service

import (
	"context"

	"SignalTrader/internal/domain/models"
)

// BrokerAdapter is the capability set implemented once per exchange. None of
// its operations return errors: failures are logged inside the adapter and
// mapped onto a safe sentinel. Implementations bound each remote request
// individually, so callers hand multi-request operations the cycle context
// rather than one shared deadline.
type BrokerAdapter interface {
	Name() string
	// HasOpenPosition reports a nonzero net position for symbol. Any failure
	// yields true so that an unreadable state never leads to a duplicate order.
	HasOpenPosition(ctx context.Context, creds models.Credentials, symbol string, env models.Environment) bool
	// PlaceOrder submits a market order followed by separate stop-loss and
	// take-profit orders. It returns nil when the market leg fails.
	PlaceOrder(ctx context.Context, creds models.Credentials, req models.OrderRequest, env models.Environment) *models.OrderResult
	// ClosedTrades returns the most recent settled trades, or an empty slice
	// on any failure.
	ClosedTrades(ctx context.Context, creds models.Credentials, symbol string, env models.Environment, limit int) []models.ClosedTrade
}

// CandleSource returns candles ordered oldest to newest, or nil on failure.
type CandleSource interface {
	Candles(ctx context.Context, broker, symbol, interval string, limit int, env models.Environment) []models.Candle
}

// SignalEngine maps candles and risk parameters to an optional signal.
type SignalEngine interface {
	Evaluate(candles []models.Candle, risk models.RiskConfig) (models.Signal, bool)
}
