package repository

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"SignalTrader/internal/domain/models"
	"SignalTrader/pkg/cache"
	xhttp "SignalTrader/pkg/http"
	applogger "SignalTrader/pkg/logger"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

// capture records the last request body seen by an httptest handler.
type capture struct {
	mu   sync.Mutex
	body []byte
}

func (c *capture) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.body = b
		c.mu.Unlock()
	}
}

func (c *capture) json(t *testing.T) map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.body == nil {
		return nil
	}
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(c.body, &m))
	return m
}

func TestClientsDecodesRegistryRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"IDCliente":7,"BotActive":1,"Corretora":"Bybit","BybitEnvironment":"testnet",
			 "CorretoraClientAPIKey":"k","CorretoraClientAPISecret":"s","TipoMoeda":"BTCUSDT",
			 "LotSize":"0.01","StopLoss":2,"TakeProfit":"4"}
		]`))
	}))
	defer srv.Close()

	reg := NewHTTPClientRegistry(xhttp.NewClient(), srv.URL, time.Second, nil)
	clients, err := reg.Clients(context.Background())
	require.NoError(t, err)
	require.Len(t, clients, 1)

	c := clients[0]
	require.Equal(t, models.ClientID("7"), c.ID)
	require.True(t, c.Active())
	require.Equal(t, "bybit", c.BrokerName())
	require.Equal(t, models.EnvTest, c.Env())
	require.InDelta(t, 0.01, float64(c.LotSize), 1e-12)
	require.Equal(t, models.RiskConfig{StopLossPct: 2, TakeProfitPct: 4}, c.Risk())
}

func TestClientsAcceptsWrappedList(t *testing.T) {
	clients, err := decodeClients([]byte(`{"data":[{"IDCliente":"a-1","BotActive":0}]}`), applogger.NewNop())
	require.NoError(t, err)
	require.Len(t, clients, 1)
	require.Equal(t, models.ClientID("a-1"), clients[0].ID)
}

func TestClientsSkipsMalformedRow(t *testing.T) {
	clients, err := decodeClients([]byte(`[
		{"IDCliente":1,"BotActive":1,"Corretora":"binance"},
		{"IDCliente":2,"BotActive":{"on":true}},
		{"IDCliente":3,"BotActive":"1","Corretora":"bybit"},
		{"IDCliente":4,"BotActive":true},
		{"IDCliente":5,"BotActive":"0.5"}
	]`), applogger.NewNop())
	require.NoError(t, err)
	require.Len(t, clients, 3)

	require.Equal(t, models.ClientID("1"), clients[0].ID)
	require.Equal(t, models.ClientID("3"), clients[1].ID)
	require.Equal(t, models.ClientID("4"), clients[2].ID)
	for _, c := range clients {
		require.True(t, c.Active(), c.ID)
	}
}

func TestClientsRejectsMalformedList(t *testing.T) {
	clients, err := decodeClients([]byte(`[{"IDCliente":1}`), applogger.NewNop())
	require.Error(t, err)
	require.NotNil(t, clients)
	require.Empty(t, clients)
}

func TestClientsFailureIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	clients, err := NewHTTPClientRegistry(xhttp.NewClient(), srv.URL, time.Second, nil).Clients(context.Background())
	require.Error(t, err)
	require.NotNil(t, clients)
	require.Empty(t, clients)
}

func record() models.TradeRecord {
	return models.TradeRecord{
		ClientID:    "7",
		Broker:      "bybit",
		Environment: "real",
		OrderID:     "o-1",
		Symbol:      "BTCUSDT",
		Side:        "Sell",
		EntryPrice:  100,
		ExitPrice:   110,
		Qty:         1,
		Fee:         0.1,
		PnL:         9.9,
		CreatedTime: 1700000000000,
		UpdatedTime: 1700000060000,
	}
}

func TestWebhookLedgerPostsRecord(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(c.handler())
	defer srv.Close()

	require.NoError(t, NewWebhookLedger(xhttp.NewClient(), srv.URL).Report(context.Background(), record()))
	got := c.json(t)
	require.Equal(t, "7", got["IDCliente"])
	require.Equal(t, "o-1", got["orderId"])
	require.Equal(t, "bybit", got["Corretora"])
	require.EqualValues(t, 1700000060000, got["updatedTime"])
}

func TestWebhookLedgerSurfacesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookLedger(xhttp.NewClient(), srv.URL).Report(context.Background(), record())
	var se *xhttp.StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadGateway, se.StatusCode)
}

type fakePublisher struct {
	topic string
	key   []byte
	value interface{}
	err   error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	p.topic, p.key, p.value = topic, key, value
	return p.err
}

func TestKafkaLedgerKeysByClient(t *testing.T) {
	p := &fakePublisher{}
	require.NoError(t, NewKafkaLedger(p, "trades").Report(context.Background(), record()))
	require.Equal(t, "trades", p.topic)
	require.Equal(t, []byte("7"), p.key)
	require.Equal(t, record(), p.value)

	p.err = errors.New("leader not available")
	require.ErrorContains(t, NewKafkaLedger(p, "trades").Report(context.Background(), record()), "leader not available")
}

type fakeExecer struct {
	query string
	args  []any
}

func (e *fakeExecer) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	e.query, e.args = query, args
	return nil, nil
}

func TestClickHouseLedgerInsert(t *testing.T) {
	db := &fakeExecer{}
	l := NewClickHouseLedger(db, "closed_trades")
	require.NoError(t, l.Report(context.Background(), record()))

	require.True(t, strings.HasPrefix(db.query, "INSERT INTO closed_trades (client_id, broker"))
	require.Len(t, db.args, 14)
	require.Equal(t, "o-1", db.args[3])
	require.Equal(t, time.UnixMilli(1700000060000).UTC(), db.args[12])

	require.Contains(t, l.Schema()[0], "ReplacingMergeTree")
	require.Contains(t, l.Schema()[0], "ORDER BY (broker, order_id)")
}

func TestMemoryDedupStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryDedupStore()

	seen, err := s.AlreadyReported(ctx, "bybit:1")
	require.NoError(t, err)
	require.False(t, seen)

	require.NoError(t, s.MarkReported(ctx, "bybit:1"))
	seen, _ = s.AlreadyReported(ctx, "bybit:1")
	require.True(t, seen)
	seen, _ = s.AlreadyReported(ctx, "binance:1")
	require.False(t, seen)
	require.Equal(t, 1, s.Len())
}

func TestMemoryDedupStoreConcurrentMarks(t *testing.T) {
	s := NewMemoryDedupStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.MarkReported(context.Background(), "binance:42")
		}()
	}
	wg.Wait()
	require.Equal(t, 1, s.Len())
}

func TestCacheDedupStoreSurvivesNewL1(t *testing.T) {
	ctx := context.Background()
	remote := cache.NewMemoryCache()
	defer remote.Close()

	first := NewCacheDedupStore(cache.NewLayeredCache(remote), "dedup", 0)
	require.NoError(t, first.MarkReported(ctx, "bybit:9"))
	require.NoError(t, first.MarkReported(ctx, "bybit:9"))

	// a fresh layered cache stands in for a restarted process
	second := NewCacheDedupStore(cache.NewLayeredCache(remote), "dedup", 0)
	seen, err := second.AlreadyReported(ctx, "bybit:9")
	require.NoError(t, err)
	require.True(t, seen)

	ok, err := remote.Exists(ctx, "dedup:bybit:9")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestHTTPLogPublisher(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(c.handler())
	defer srv.Close()

	p := NewHTTPLogPublisher(xhttp.NewClient(), srv.URL)
	require.NoError(t, p.PublishMessage(context.Background(), "ignored", map[string]string{"Message": "hi"}))
	require.Equal(t, map[string]interface{}{"Message": "hi"}, c.json(t))
}

func TestWebhookNotifier(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(c.handler())
	defer srv.Close()

	n := NewWebhookNotifier(xhttp.NewClient(), map[string]string{"Binance": srv.URL, "bybit": ""})
	client := models.ClientConfig{Broker: "binance", Symbol: "BTCUSDT", LotSize: 0.5, APIKey: "secret-key"}
	sig := models.Signal{Side: models.SideLong, Entry: 100, Stop: 98, Take: 104}

	require.NoError(t, n.Notify(context.Background(), client, sig))
	require.Equal(t, map[string]interface{}{
		"symbol":      "BTCUSDT",
		"side":        "BUY",
		"qty":         0.5,
		"entry":       100.0,
		"stop_loss":   98.0,
		"take_profit": 104.0,
	}, c.json(t))

	c.mu.Lock()
	c.body = nil
	c.mu.Unlock()
	require.NoError(t, n.Notify(context.Background(), models.ClientConfig{Broker: "bybit"}, sig))
	require.Nil(t, c.json(t))
}
