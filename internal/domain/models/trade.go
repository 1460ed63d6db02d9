package models

import (
	"strings"
	"time"
)

// ClosedTrade is a settled trade normalized from a broker response.
type ClosedTrade struct {
	OrderID    string    `json:"orderId"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Qty        float64   `json:"qty"`
	Fee        float64   `json:"fee"`
	PnL        float64   `json:"pnl"`
	OpenedAt   time.Time `json:"createdTime"`
	ClosedAt   time.Time `json:"updatedTime"`
}

// TradeKey is the composite dedup identifier: broker name plus the broker's
// order id, so brokers that reuse numeric ids cannot collide.
func TradeKey(broker, orderID string) string {
	return strings.ToLower(strings.TrimSpace(broker)) + ":" + strings.TrimSpace(orderID)
}

// TradeRecord is the outbound ledger payload for one closed trade.
type TradeRecord struct {
	ClientID    string  `json:"IDCliente"`
	Broker      string  `json:"Corretora"`
	Environment string  `json:"Environment"`
	OrderID     string  `json:"orderId"`
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"`
	EntryPrice  float64 `json:"entry_price"`
	ExitPrice   float64 `json:"exit_price"`
	Qty         float64 `json:"qty"`
	Fee         float64 `json:"fee"`
	PnL         float64 `json:"pnl"`
	CreatedTime int64   `json:"createdTime"`
	UpdatedTime int64   `json:"updatedTime"`
}

// NewTradeRecord builds the ledger payload for a client's closed trade.
func NewTradeRecord(c ClientConfig, t ClosedTrade) TradeRecord {
	return TradeRecord{
		ClientID:    string(c.ID),
		Broker:      c.BrokerName(),
		Environment: string(c.Env()),
		OrderID:     t.OrderID,
		Symbol:      t.Symbol,
		Side:        t.Side,
		EntryPrice:  t.EntryPrice,
		ExitPrice:   t.ExitPrice,
		Qty:         t.Qty,
		Fee:         t.Fee,
		PnL:         t.PnL,
		CreatedTime: t.OpenedAt.UnixMilli(),
		UpdatedTime: t.ClosedAt.UnixMilli(),
	}
}
