package usecase

import (
	"context"
	"time"

	"SignalTrader/internal/domain/models"
	drepo "SignalTrader/internal/domain/repository"
	"SignalTrader/internal/domain/service"
	applogger "SignalTrader/pkg/logger"
)

// ReportSummary counts what happened to one client's closed trades.
type ReportSummary struct {
	Fetched  int `json:"fetched"`
	Reported int `json:"reported"`
	Known    int `json:"known"`
	Failed   int `json:"failed"`
}

// TradeReporter forwards newly closed trades to the ledger exactly once per
// (broker, order id). An id is marked only after the ledger accepted it, so a
// failed send is retried on the next cycle.
type TradeReporter struct {
	ledger      drepo.TradeLedger
	dedup       drepo.DedupStore
	metrics     drepo.Metrics
	limit       int
	callTimeout time.Duration
	log         *applogger.Logger
}

func NewTradeReporter(
	ledger drepo.TradeLedger,
	dedup drepo.DedupStore,
	metrics drepo.Metrics,
	limit int,
	callTimeout time.Duration,
	l *applogger.Logger,
) *TradeReporter {
	if l == nil {
		l = applogger.NewNop()
	}
	if limit <= 0 {
		limit = 20
	}
	return &TradeReporter{
		ledger:      ledger,
		dedup:       dedup,
		metrics:     metrics,
		limit:       limit,
		callTimeout: callTimeout,
		log:         l,
	}
}

// Report fetches the client's closed trades from adapter and sends the ones
// not yet reported. A dedup lookup failure skips the trade for this cycle.
func (r *TradeReporter) Report(ctx context.Context, client models.ClientConfig, adapter service.BrokerAdapter) ReportSummary {
	var sum ReportSummary

	// may take several requests; the broker transport bounds each one
	trades := adapter.ClosedTrades(ctx, client.Credentials(), client.Symbol, client.Env(), r.limit)
	sum.Fetched = len(trades)

	for _, t := range trades {
		id := models.TradeKey(adapter.Name(), t.OrderID)
		log := r.log.With(applogger.String("trade_id", id))

		seen, err := r.dedup.AlreadyReported(ctx, id)
		if err != nil {
			log.Warn("dedup lookup failed, trade deferred", applogger.Error(err))
			r.metrics.RecordError("dedup")
			sum.Failed++
			continue
		}
		if seen {
			sum.Known++
			continue
		}

		sendCtx, cancel := withTimeout(ctx, r.callTimeout)
		err = r.ledger.Report(sendCtx, models.NewTradeRecord(client, t))
		cancel()
		if err != nil {
			log.Error("trade report failed", applogger.Error(err))
			r.metrics.RecordError("ledger")
			sum.Failed++
			continue
		}

		if err := r.dedup.MarkReported(ctx, id); err != nil {
			// the ledger has the trade; it will be sent again next cycle
			log.Error("dedup mark failed", applogger.Error(err))
			r.metrics.RecordError("dedup")
		}
		r.metrics.RecordTradeReported(adapter.Name())
		sum.Reported++
		log.Info("trade reported",
			applogger.String("symbol", t.Symbol),
			applogger.Float64("pnl", t.PnL),
		)
	}
	return sum
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
