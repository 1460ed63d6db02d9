package bybit

import (
	json "github.com/goccy/go-json"
)

// envelope is the common V5 response wrapper.
type envelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

type listResult[T any] struct {
	Category string `json:"category"`
	List     []T    `json:"list"`
}

type position struct {
	Symbol string `json:"symbol"`
	Side   string `json:"side"`
	Size   string `json:"size"`
}

// orderRequest field order is the serialized order, which is what gets signed.
type orderRequest struct {
	Category         string `json:"category"`
	Symbol           string `json:"symbol"`
	Side             string `json:"side"`
	OrderType        string `json:"orderType"`
	Qty              string `json:"qty"`
	TimeInForce      string `json:"timeInForce"`
	TriggerPrice     string `json:"triggerPrice,omitempty"`
	TriggerDirection int    `json:"triggerDirection,omitempty"`
	TriggerBy        string `json:"triggerBy,omitempty"`
	ReduceOnly       bool   `json:"reduceOnly,omitempty"`
	CloseOnTrigger   bool   `json:"closeOnTrigger,omitempty"`
}

type orderResult struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
}

type closedPnl struct {
	OrderID       string `json:"orderId"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Qty           string `json:"qty"`
	AvgEntryPrice string `json:"avgEntryPrice"`
	AvgExitPrice  string `json:"avgExitPrice"`
	EntryPrice    string `json:"entryPrice"`
	ExitPrice     string `json:"exitPrice"`
	OpenFee       string `json:"openFee"`
	CloseFee      string `json:"closeFee"`
	CumExecFee    string `json:"cumExecFee"`
	ClosedPnl     string `json:"closedPnl"`
	CreatedTime   string `json:"createdTime"`
	UpdatedTime   string `json:"updatedTime"`
}

// kline rows: [startTime, open, high, low, close, volume, turnover], all strings.
type klineRow []string
