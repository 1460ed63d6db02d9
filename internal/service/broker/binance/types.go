package binance

import (
	json "github.com/goccy/go-json"
)

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type positionRisk struct {
	Symbol      string `json:"symbol"`
	PositionAmt string `json:"positionAmt"`
	EntryPrice  string `json:"entryPrice"`
}

type orderResponse struct {
	OrderID       int64  `json:"orderId"`
	Symbol        string `json:"symbol"`
	Status        string `json:"status"`
	ClientOrderID string `json:"clientOrderId"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	AvgPrice      string `json:"avgPrice"`
}

type userTrade struct {
	OrderID     int64  `json:"orderId"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	Price       string `json:"price"`
	Qty         string `json:"qty"`
	Commission  string `json:"commission"`
	RealizedPnl string `json:"realizedPnl"`
	Time        int64  `json:"time"`
}

// kline rows are positional arrays:
// [openTime, open, high, low, close, volume, closeTime, ...]
type klineRow []json.RawMessage
