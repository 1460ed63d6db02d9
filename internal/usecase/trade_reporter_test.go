package usecase

import (
	"context"
	"testing"
	"time"

	"SignalTrader/internal/domain/models"
	"SignalTrader/internal/repository"

	"github.com/stretchr/testify/require"
)

func closed(ids ...string) []models.ClosedTrade {
	out := make([]models.ClosedTrade, len(ids))
	for i, id := range ids {
		out[i] = models.ClosedTrade{
			OrderID:  id,
			Symbol:   "BTCUSDT",
			OpenedAt: time.UnixMilli(1700000000000),
			ClosedAt: time.UnixMilli(1700000060000),
		}
	}
	return out
}

func TestReportIsIdempotentAcrossCalls(t *testing.T) {
	ledger := &fakeLedger{}
	r := NewTradeReporter(ledger, repository.NewMemoryDedupStore(), newFakeMetrics(), 20, time.Second, nil)
	a := &fakeAdapter{name: "bybit", trades: closed("1", "2")}
	c := client("7", "bybit")

	first := r.Report(context.Background(), c, a)
	second := r.Report(context.Background(), c, a)

	require.Equal(t, []string{"bybit:1", "bybit:2"}, ledger.OrderIDs())
	require.Equal(t, ReportSummary{Fetched: 2, Reported: 2}, first)
	require.Equal(t, ReportSummary{Fetched: 2, Known: 2}, second)
}

func TestReportKeysByBroker(t *testing.T) {
	ledger := &fakeLedger{}
	r := NewTradeReporter(ledger, repository.NewMemoryDedupStore(), newFakeMetrics(), 20, time.Second, nil)

	r.Report(context.Background(), client("7", "bybit"), &fakeAdapter{name: "bybit", trades: closed("1")})
	r.Report(context.Background(), client("7", "binance"), &fakeAdapter{name: "binance", trades: closed("1")})

	require.Equal(t, []string{"bybit:1", "binance:1"}, ledger.OrderIDs())
}

func TestReportRetriesAfterLedgerFailure(t *testing.T) {
	ledger := &fakeLedger{fail: map[string]bool{"2": true}}
	dedup := repository.NewMemoryDedupStore()
	r := NewTradeReporter(ledger, dedup, newFakeMetrics(), 20, time.Second, nil)
	a := &fakeAdapter{name: "bybit", trades: closed("1", "2")}

	sum := r.Report(context.Background(), client("7", "bybit"), a)
	require.Equal(t, 1, sum.Reported)
	require.Equal(t, 1, sum.Failed)

	seen, _ := dedup.AlreadyReported(context.Background(), "bybit:2")
	require.False(t, seen)

	ledger.mu.Lock()
	ledger.fail = nil
	ledger.mu.Unlock()

	sum = r.Report(context.Background(), client("7", "bybit"), a)
	require.Equal(t, ReportSummary{Fetched: 2, Reported: 1, Known: 1}, sum)
	require.Equal(t, []string{"bybit:1", "bybit:2"}, ledger.OrderIDs())
}

func TestReportDefersOnDedupFailure(t *testing.T) {
	ledger := &fakeLedger{}
	metrics := newFakeMetrics()
	r := NewTradeReporter(ledger, failingDedup{}, metrics, 20, time.Second, nil)

	sum := r.Report(context.Background(), client("7", "bybit"), &fakeAdapter{name: "bybit", trades: closed("1")})
	require.Equal(t, 1, sum.Failed)
	require.Empty(t, ledger.OrderIDs())
	require.Equal(t, 1, metrics.errors["dedup"])
}

func TestReportCarriesClientFields(t *testing.T) {
	ledger := &fakeLedger{}
	r := NewTradeReporter(ledger, repository.NewMemoryDedupStore(), newFakeMetrics(), 20, time.Second, nil)

	c := client("7", "Bybit")
	c.Environment = "testnet"
	r.Report(context.Background(), c, &fakeAdapter{name: "bybit", trades: closed("1")})

	require.Len(t, ledger.records, 1)
	rec := ledger.records[0]
	require.Equal(t, "7", rec.ClientID)
	require.Equal(t, "bybit", rec.Broker)
	require.Equal(t, "testnet", rec.Environment)
	require.Equal(t, int64(1700000060000), rec.UpdatedTime)
}
