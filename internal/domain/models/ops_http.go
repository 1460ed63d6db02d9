package models

// DedupQuery asks whether a broker order id has been reported.
type DedupQuery struct {
	Broker  string `query:"broker" validate:"required"`
	OrderID string `query:"order_id" validate:"required"`
}

// DedupStatus answers a DedupQuery.
type DedupStatus struct {
	ID       string `json:"id"`
	Reported bool   `json:"reported"`
}
