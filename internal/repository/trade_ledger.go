package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SignalTrader/internal/domain/models"
	"SignalTrader/internal/domain/repository"
	xhttp "SignalTrader/pkg/http"
	applogger "SignalTrader/pkg/logger"
)

// LogLedger writes closed trades to the structured log (and thus the sink).
type LogLedger struct {
	log *applogger.Logger
}

func NewLogLedger(l *applogger.Logger) repository.TradeLedger {
	if l == nil {
		l = applogger.NewNop()
	}
	return &LogLedger{log: l}
}

func (s *LogLedger) Report(_ context.Context, r models.TradeRecord) error {
	s.log.Info("closed trade",
		applogger.String("client_id", r.ClientID),
		applogger.String("broker", r.Broker),
		applogger.String("order_id", r.OrderID),
		applogger.String("symbol", r.Symbol),
		applogger.String("side", r.Side),
		applogger.Float64("entry_price", r.EntryPrice),
		applogger.Float64("exit_price", r.ExitPrice),
		applogger.Float64("qty", r.Qty),
		applogger.Float64("fee", r.Fee),
		applogger.Float64("pnl", r.PnL),
	)
	return nil
}

func (s *LogLedger) Close() error { return nil }

// WebhookLedger posts each record as JSON to an HTTP endpoint.
type WebhookLedger struct {
	client *xhttp.Client
	url    string
}

func NewWebhookLedger(client *xhttp.Client, url string) repository.TradeLedger {
	return &WebhookLedger{client: client, url: url}
}

func (s *WebhookLedger) Report(ctx context.Context, r models.TradeRecord) error {
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     s.url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    r,
	}, nil)
	if err != nil {
		return fmt.Errorf("post trade %s: %w", r.OrderID, err)
	}
	return nil
}

func (s *WebhookLedger) Close() error { return nil }

// TradePublisher is the subset of the kafka producer used by the ledger.
type TradePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaLedger publishes records keyed by client id so that one client's
// trades stay ordered within a partition. The producer is owned by the
// caller.
type KafkaLedger struct {
	producer TradePublisher
	topic    string
}

func NewKafkaLedger(p TradePublisher, topic string) repository.TradeLedger {
	return &KafkaLedger{producer: p, topic: topic}
}

func (s *KafkaLedger) Report(ctx context.Context, r models.TradeRecord) error {
	if err := s.producer.Publish(ctx, s.topic, []byte(r.ClientID), r); err != nil {
		return fmt.Errorf("publish trade %s: %w", r.OrderID, err)
	}
	return nil
}

func (s *KafkaLedger) Close() error { return nil }

// Execer is satisfied by *sql.DB and *clickhouse.Client.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ClickHouseLedger archives records in a ReplacingMergeTree keyed by broker
// and order id, so a record re-sent after a restart collapses on merge.
type ClickHouseLedger struct {
	db    Execer
	table string
}

func NewClickHouseLedger(db Execer, table string) *ClickHouseLedger {
	return &ClickHouseLedger{db: db, table: table}
}

// Schema returns the DDL for the ledger table.
func (s *ClickHouseLedger) Schema() []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	client_id String,
	broker LowCardinality(String),
	environment LowCardinality(String),
	order_id String,
	symbol LowCardinality(String),
	side LowCardinality(String),
	entry_price Float64,
	exit_price Float64,
	qty Float64,
	fee Float64,
	pnl Float64,
	opened_at DateTime64(3, 'UTC'),
	closed_at DateTime64(3, 'UTC'),
	reported_at DateTime64(3, 'UTC')
) ENGINE = ReplacingMergeTree(reported_at)
ORDER BY (broker, order_id)`, s.table)}
}

func (s *ClickHouseLedger) Report(ctx context.Context, r models.TradeRecord) error {
	q := fmt.Sprintf("INSERT INTO %s (client_id, broker, environment, order_id, symbol, side, entry_price, exit_price, qty, fee, pnl, opened_at, closed_at, reported_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		r.ClientID,
		r.Broker,
		r.Environment,
		r.OrderID,
		r.Symbol,
		r.Side,
		r.EntryPrice,
		r.ExitPrice,
		r.Qty,
		r.Fee,
		r.PnL,
		time.UnixMilli(r.CreatedTime).UTC(),
		time.UnixMilli(r.UpdatedTime).UTC(),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert trade %s: %w", r.OrderID, err)
	}
	return nil
}

func (s *ClickHouseLedger) Close() error { return nil }
