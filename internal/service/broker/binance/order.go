package binance

import (
	"context"
	"strconv"

	"SignalTrader/internal/domain/models"
	"SignalTrader/internal/service/broker"
	xhttp "SignalTrader/pkg/http"
	applogger "SignalTrader/pkg/logger"

	"github.com/shopspring/decimal"
)

const (
	typeStopMarket       = "STOP_MARKET"
	typeTakeProfitMarket = "TAKE_PROFIT_MARKET"
)

// PlaceOrder sends a MARKET order, then a STOP_MARKET and a
// TAKE_PROFIT_MARKET order that close the whole position at mark price.
// Protective legs are independent calls; their failure leaves the filled
// market order in place.
func (a *Adapter) PlaceOrder(ctx context.Context, creds models.Credentials, req models.OrderRequest, env models.Environment) *models.OrderResult {
	qty := formatQty(req.Qty)
	params := broker.Params{}.
		Add("symbol", req.Symbol).
		Add("side", string(req.Side)).
		Add("type", "MARKET").
		Add("quantity", qty)

	var resp orderResponse
	if err := a.signed(ctx, "place_order", xhttp.MethodPost, pathOrder, env, creds, params, &resp); err != nil {
		a.t.Fail("place_order", err,
			applogger.String("symbol", req.Symbol),
			applogger.String("side", string(req.Side)),
			applogger.String("qty", qty),
		)
		return nil
	}

	result := &models.OrderResult{
		Broker:  Name,
		OrderID: strconv.FormatInt(resp.OrderID, 10),
		Symbol:  req.Symbol,
		Side:    req.Side,
		Qty:     qty,
	}

	closeSide := req.Side.Opposite()
	if req.StopPrice > 0 {
		result.Protection = append(result.Protection, a.protect(ctx, creds, env, req.Symbol, closeSide, typeStopMarket, req.StopPrice))
	}
	if req.TakePrice > 0 {
		result.Protection = append(result.Protection, a.protect(ctx, creds, env, req.Symbol, closeSide, typeTakeProfitMarket, req.TakePrice))
	}
	return result
}

func (a *Adapter) protect(ctx context.Context, creds models.Credentials, env models.Environment, symbol string, side models.Side, orderType string, price float64) models.ProtectiveLeg {
	leg := models.ProtectiveLeg{Kind: orderType, Price: formatPrice(price)}
	params := broker.Params{}.
		Add("symbol", symbol).
		Add("side", string(side)).
		Add("type", orderType).
		Add("stopPrice", leg.Price).
		Add("closePosition", "true").
		Add("workingType", "MARK_PRICE")

	var resp orderResponse
	if err := a.signed(ctx, "protective_order", xhttp.MethodPost, pathOrder, env, creds, params, &resp); err != nil {
		a.t.Fail("protective_order", err,
			applogger.String("symbol", symbol),
			applogger.String("type", orderType),
			applogger.String("price", leg.Price),
		)
		leg.Error = err.Error()
		return leg
	}
	leg.Placed = true
	leg.OrderID = strconv.FormatInt(resp.OrderID, 10)
	return leg
}

func formatQty(q float64) string {
	return decimal.NewFromFloat(q).String()
}

// formatPrice rounds to two decimals, the tick the futures API accepts for
// the USDT pairs traded here.
func formatPrice(p float64) string {
	return decimal.NewFromFloat(p).Round(2).String()
}
