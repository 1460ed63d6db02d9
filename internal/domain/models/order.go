package models

// OrderRequest is a protected market order.
type OrderRequest struct {
	Symbol    string
	Side      Side
	Qty       float64
	StopPrice float64
	TakePrice float64
}

// ProtectiveLeg records the outcome of one stop-loss or take-profit order.
type ProtectiveLeg struct {
	Kind    string `json:"kind"`
	Price   string `json:"price"`
	Placed  bool   `json:"placed"`
	OrderID string `json:"order_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OrderResult is the broker acknowledgement of a filled market order plus
// its protective legs. A failed protective leg leaves the position open
// without protection; it is reported, never rolled back.
type OrderResult struct {
	Broker     string          `json:"broker"`
	OrderID    string          `json:"order_id"`
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	Qty        string          `json:"qty"`
	Protection []ProtectiveLeg `json:"protection"`
}

// Unprotected lists the protective legs that failed.
func (r *OrderResult) Unprotected() []ProtectiveLeg {
	if r == nil {
		return nil
	}
	var out []ProtectiveLeg
	for _, leg := range r.Protection {
		if !leg.Placed {
			out = append(out, leg)
		}
	}
	return out
}
