package repository

import (
	"context"

	"SignalTrader/internal/domain/models"
)

// ClientRegistry supplies the tenant list. Implementations return an empty
// slice together with the error when the registry is unreachable.
type ClientRegistry interface {
	Clients(ctx context.Context) ([]models.ClientConfig, error)
}

// TradeLedger receives one outbound report per newly closed trade. It is not
// assumed to be idempotent.
type TradeLedger interface {
	Report(ctx context.Context, record models.TradeRecord) error
	Close() error
}

// DedupStore guards against reporting the same closed trade twice.
type DedupStore interface {
	AlreadyReported(ctx context.Context, id string) (bool, error)
	MarkReported(ctx context.Context, id string) error
}

// SignalNotifier forwards evaluated signals to an optional per-broker webhook.
type SignalNotifier interface {
	Notify(ctx context.Context, client models.ClientConfig, signal models.Signal) error
}

type Metrics interface {
	RecordCycle(seconds float64, clients int)
	RecordOutcome(state string)
	RecordOrder(broker, result string)
	RecordTradeReported(broker string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
