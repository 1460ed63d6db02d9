package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"SignalTrader/internal/domain/models"
	"SignalTrader/internal/domain/service"
)

type fakeRegistry struct {
	clients []models.ClientConfig
	err     error
}

func (r *fakeRegistry) Clients(context.Context) ([]models.ClientConfig, error) {
	if r.err != nil {
		return []models.ClientConfig{}, r.err
	}
	return r.clients, nil
}

type fakeAdapter struct {
	name   string
	open   bool
	trades []models.ClosedTrade
	result *models.OrderResult

	mu     sync.Mutex
	calls  []string
	orders []models.OrderRequest
}

func (a *fakeAdapter) record(op string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, op)
}

func (a *fakeAdapter) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) HasOpenPosition(context.Context, models.Credentials, string, models.Environment) bool {
	a.record("position")
	return a.open
}

func (a *fakeAdapter) PlaceOrder(_ context.Context, _ models.Credentials, req models.OrderRequest, _ models.Environment) *models.OrderResult {
	a.record("order")
	a.mu.Lock()
	a.orders = append(a.orders, req)
	a.mu.Unlock()
	if a.result != nil {
		return a.result
	}
	return &models.OrderResult{Broker: a.name, OrderID: "1", Symbol: req.Symbol, Side: req.Side}
}

func (a *fakeAdapter) ClosedTrades(context.Context, models.Credentials, string, models.Environment, int) []models.ClosedTrade {
	a.record("closed_trades")
	return a.trades
}

type lookup map[string]service.BrokerAdapter

func (l lookup) Lookup(name string) (service.BrokerAdapter, bool) {
	a, ok := l[name]
	return a, ok
}

// candleFunc adapts a function to service.CandleSource.
type candleFunc func(broker, symbol string) []models.Candle

func (f candleFunc) Candles(_ context.Context, broker, symbol, _ string, _ int, _ models.Environment) []models.Candle {
	return f(broker, symbol)
}

func series(closes ...float64) []models.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{Time: base.Add(time.Duration(i) * 5 * time.Minute), Open: c, High: c, Low: c, Close: c}
	}
	return out
}

// longCrossover yields a long signal at close 100.
func longCrossover(string, string) []models.Candle { return series(250.0/3, 75, 100) }

type fakeLedger struct {
	mu      sync.Mutex
	records []models.TradeRecord
	fail    map[string]bool
}

func (l *fakeLedger) Report(_ context.Context, r models.TradeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail[r.OrderID] {
		return errors.New("ledger unavailable")
	}
	l.records = append(l.records, r)
	return nil
}

func (l *fakeLedger) Close() error { return nil }

func (l *fakeLedger) OrderIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.records))
	for _, r := range l.records {
		out = append(out, r.Broker+":"+r.OrderID)
	}
	return out
}

type failingDedup struct{}

func (failingDedup) AlreadyReported(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func (failingDedup) MarkReported(context.Context, string) error { return nil }

type fakeMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
	orders   map[string]int
	errors   map[string]int
	cycles   int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{outcomes: map[string]int{}, orders: map[string]int{}, errors: map[string]int{}}
}

func (m *fakeMetrics) RecordCycle(float64, int) {
	m.mu.Lock()
	m.cycles++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordOutcome(state string) {
	m.mu.Lock()
	m.outcomes[state]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordOrder(broker, result string) {
	m.mu.Lock()
	m.orders[broker+"/"+result]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordTradeReported(string) {}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordLatency(string, float64) {}
