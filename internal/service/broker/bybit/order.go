package bybit

import (
	"context"

	"SignalTrader/internal/domain/models"
	applogger "SignalTrader/pkg/logger"

	"github.com/shopspring/decimal"
)

const (
	legStopLoss   = "StopLoss"
	legTakeProfit = "TakeProfit"

	// triggerDirection: 1 fires when the mark price rises to the trigger,
	// 2 when it falls to it.
	triggerRises = 1
	triggerFalls = 2
)

// PlaceOrder sends a market order, then a reduce-only conditional market
// order for the stop-loss and another for the take-profit on the opposite
// side. Protective legs are independent calls; their failure leaves the
// filled market order in place.
func (a *Adapter) PlaceOrder(ctx context.Context, creds models.Credentials, req models.OrderRequest, env models.Environment) *models.OrderResult {
	qty := formatQty(req.Qty)
	body := orderRequest{
		Category:    category,
		Symbol:      req.Symbol,
		Side:        side(req.Side),
		OrderType:   "Market",
		Qty:         qty,
		TimeInForce: "GTC",
	}

	var res orderResult
	if err := a.post(ctx, "place_order", pathOrderCreate, env, creds, body, &res); err != nil {
		a.t.Fail("place_order", err,
			applogger.String("symbol", req.Symbol),
			applogger.String("side", body.Side),
			applogger.String("qty", qty),
		)
		return nil
	}

	result := &models.OrderResult{
		Broker:  Name,
		OrderID: res.OrderID,
		Symbol:  req.Symbol,
		Side:    req.Side,
		Qty:     qty,
	}

	long := req.Side == models.SideLong
	if req.StopPrice > 0 {
		dir := triggerRises
		if long {
			dir = triggerFalls
		}
		result.Protection = append(result.Protection, a.protect(ctx, creds, env, req, qty, legStopLoss, req.StopPrice, dir))
	}
	if req.TakePrice > 0 {
		dir := triggerFalls
		if long {
			dir = triggerRises
		}
		result.Protection = append(result.Protection, a.protect(ctx, creds, env, req, qty, legTakeProfit, req.TakePrice, dir))
	}
	return result
}

func (a *Adapter) protect(ctx context.Context, creds models.Credentials, env models.Environment, req models.OrderRequest, qty, kind string, price float64, direction int) models.ProtectiveLeg {
	leg := models.ProtectiveLeg{Kind: kind, Price: formatPrice(price)}
	body := orderRequest{
		Category:         category,
		Symbol:           req.Symbol,
		Side:             side(req.Side.Opposite()),
		OrderType:        "Market",
		Qty:              qty,
		TimeInForce:      "GTC",
		TriggerPrice:     leg.Price,
		TriggerDirection: direction,
		TriggerBy:        "MarkPrice",
		ReduceOnly:       true,
		CloseOnTrigger:   true,
	}

	var res orderResult
	if err := a.post(ctx, "protective_order", pathOrderCreate, env, creds, body, &res); err != nil {
		a.t.Fail("protective_order", err,
			applogger.String("symbol", req.Symbol),
			applogger.String("type", kind),
			applogger.String("price", leg.Price),
		)
		leg.Error = err.Error()
		return leg
	}
	leg.Placed = true
	leg.OrderID = res.OrderID
	return leg
}

func formatQty(q float64) string {
	return decimal.NewFromFloat(q).String()
}

func formatPrice(p float64) string {
	return decimal.NewFromFloat(p).Round(5).String()
}
