package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"SignalTrader/internal/domain/models"
	"SignalTrader/internal/service/broker"
	xhttp "SignalTrader/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var creds = models.Credentials{APIKey: "key-1", APISecret: "secret-1"}

type call struct {
	method string
	path   string
	query  string
}

type fakeExchange struct {
	t      *testing.T
	mu     sync.Mutex
	calls  []call
	routes map[string]func(w http.ResponseWriter, r *http.Request)
}

func newExchange(t *testing.T) (*fakeExchange, *Adapter) {
	f := &fakeExchange{t: t, routes: map[string]func(http.ResponseWriter, *http.Request){}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	tr := broker.NewTransport(Name, xhttp.NewClient(xhttp.WithTimeout(2*time.Second)),
		broker.Endpoints{Live: srv.URL, Test: srv.URL + "/test"}, nil, nil)
	return f, New(tr)
}

func (f *fakeExchange) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, call{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery})
	f.mu.Unlock()

	if r.URL.Path != pathKlines {
		// every private call must carry a valid signature over the preceding query
		assert.Equal(f.t, creds.APIKey, r.Header.Get("X-MBX-APIKEY"))
		i := strings.LastIndex(r.URL.RawQuery, "&signature=")
		if assert.Greater(f.t, i, -1) {
			assert.Equal(f.t, broker.Sign(creds.APISecret, r.URL.RawQuery[:i]), r.URL.RawQuery[i+len("&signature="):])
		}
	}

	f.mu.Lock()
	h, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func (f *fakeExchange) handle(route string, fn func(w http.ResponseWriter, r *http.Request)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[route] = fn
}

func (f *fakeExchange) on(method, path, body string) {
	f.handle(method+" "+path, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})
}

func (f *fakeExchange) callsTo(path string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.path == path {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeExchange) queries(path string) []string {
	var out []string
	for _, c := range f.callsTo(path) {
		out = append(out, c.query)
	}
	return out
}

func TestHasOpenPosition(t *testing.T) {
	f, a := newExchange(t)
	f.on(http.MethodGet, pathPositionRisk, `[{"symbol":"ETHUSDT","positionAmt":"1.0"},{"symbol":"BTCUSDT","positionAmt":"0.000"}]`)

	require.False(t, a.HasOpenPosition(context.Background(), creds, "BTCUSDT", models.EnvLive))
	require.True(t, a.HasOpenPosition(context.Background(), creds, "ETHUSDT", models.EnvLive))
	require.True(t, strings.HasPrefix(f.callsTo(pathPositionRisk)[0].query, "timestamp="))
}

func TestHasOpenPositionFailSafe(t *testing.T) {
	f, a := newExchange(t)
	f.handle(http.MethodGet+" "+pathPositionRisk, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":-2015,"msg":"Invalid API-key"}`))
	})
	require.True(t, a.HasOpenPosition(context.Background(), creds, "BTCUSDT", models.EnvLive))

	f.on(http.MethodGet, pathPositionRisk, `not json`)
	require.True(t, a.HasOpenPosition(context.Background(), creds, "BTCUSDT", models.EnvLive))

	f.on(http.MethodGet, pathPositionRisk, `[{"symbol":"BTCUSDT","positionAmt":"abc"}]`)
	require.True(t, a.HasOpenPosition(context.Background(), creds, "BTCUSDT", models.EnvLive))
}

func TestHasOpenPositionUnreachable(t *testing.T) {
	tr := broker.NewTransport(Name, xhttp.NewClient(xhttp.WithTimeout(200*time.Millisecond)),
		broker.Endpoints{Live: "http://127.0.0.1:1"}, nil, nil)
	require.True(t, New(tr).HasOpenPosition(context.Background(), creds, "BTCUSDT", models.EnvLive))
}

func TestPlaceOrderSendsMarketAndProtectiveLegs(t *testing.T) {
	f, a := newExchange(t)
	f.handle(http.MethodPost+" "+pathOrder, func(w http.ResponseWriter, r *http.Request) {
		n := len(f.callsTo(pathOrder))
		_, _ = w.Write([]byte(`{"orderId":` + strconv.Itoa(n) + `,"symbol":"BTCUSDT","status":"NEW"}`))
	})

	res := a.PlaceOrder(context.Background(), creds, models.OrderRequest{
		Symbol:    "BTCUSDT",
		Side:      models.SideLong,
		Qty:       0.01,
		StopPrice: 97.999,
		TakePrice: 104.0049,
	}, models.EnvLive)

	require.NotNil(t, res)
	require.Equal(t, "1", res.OrderID)
	require.Equal(t, "0.01", res.Qty)
	require.Len(t, res.Protection, 2)
	require.Empty(t, res.Unprotected())

	queries := f.queries(pathOrder)
	require.Len(t, queries, 3)
	require.True(t, strings.HasPrefix(queries[0], "symbol=BTCUSDT&side=BUY&type=MARKET&quantity=0.01&timestamp="))
	require.True(t, strings.HasPrefix(queries[1], "symbol=BTCUSDT&side=SELL&type=STOP_MARKET&stopPrice=98&closePosition=true&workingType=MARK_PRICE&timestamp="))
	require.True(t, strings.HasPrefix(queries[2], "symbol=BTCUSDT&side=SELL&type=TAKE_PROFIT_MARKET&stopPrice=104&closePosition=true&workingType=MARK_PRICE&timestamp="))
}

func TestPlaceOrderShortUsesBuyToClose(t *testing.T) {
	f, a := newExchange(t)
	f.on(http.MethodPost, "/test"+pathOrder, `{"orderId":7}`)

	res := a.PlaceOrder(context.Background(), creds, models.OrderRequest{
		Symbol: "BTCUSDT", Side: models.SideShort, Qty: 1, StopPrice: 103, TakePrice: 95,
	}, models.EnvTest)

	require.NotNil(t, res)
	require.Empty(t, f.callsTo(pathOrder))
	queries := f.queries("/test" + pathOrder)
	require.Len(t, queries, 3)
	require.Contains(t, queries[0], "side=SELL&type=MARKET")
	require.Contains(t, queries[1], "side=BUY&type=STOP_MARKET&stopPrice=103")
	require.Contains(t, queries[2], "side=BUY&type=TAKE_PROFIT_MARKET&stopPrice=95")
}

func TestPlaceOrderSlowMarketLegKeepsProtectionBudget(t *testing.T) {
	f := &fakeExchange{t: t, routes: map[string]func(http.ResponseWriter, *http.Request){}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	tr := broker.NewTransport(Name, xhttp.NewClient(), broker.Endpoints{Live: srv.URL}, nil, nil,
		broker.WithCallTimeout(time.Second))
	a := New(tr)

	f.handle(http.MethodPost+" "+pathOrder, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(400 * time.Millisecond)
		_, _ = w.Write([]byte(`{"orderId":5}`))
	})

	// the legs take longer in total than any single call may
	start := time.Now()
	res := a.PlaceOrder(context.Background(), creds, models.OrderRequest{
		Symbol: "BTCUSDT", Side: models.SideLong, Qty: 1, StopPrice: 98, TakePrice: 104,
	}, models.EnvLive)

	require.NotNil(t, res)
	require.Greater(t, time.Since(start), time.Second)
	require.Len(t, res.Protection, 2)
	require.Empty(t, res.Unprotected())
}

func TestPlaceOrderMarketFailureReturnsNil(t *testing.T) {
	f, a := newExchange(t)
	f.handle(http.MethodPost+" "+pathOrder, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-2019,"msg":"Margin is insufficient."}`))
	})

	res := a.PlaceOrder(context.Background(), creds, models.OrderRequest{
		Symbol: "BTCUSDT", Side: models.SideLong, Qty: 1, StopPrice: 98, TakePrice: 104,
	}, models.EnvLive)
	require.Nil(t, res)
	require.Len(t, f.callsTo(pathOrder), 1, "no protective legs after a failed market leg")
}

func TestPlaceOrderProtectiveFailureKeepsFill(t *testing.T) {
	f, a := newExchange(t)
	f.handle(http.MethodPost+" "+pathOrder, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.RawQuery, "type=STOP_MARKET") {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":-2021,"msg":"Order would immediately trigger."}`))
			return
		}
		_, _ = w.Write([]byte(`{"orderId":42}`))
	})

	res := a.PlaceOrder(context.Background(), creds, models.OrderRequest{
		Symbol: "BTCUSDT", Side: models.SideLong, Qty: 1, StopPrice: 98, TakePrice: 104,
	}, models.EnvLive)

	require.NotNil(t, res)
	require.Equal(t, "42", res.OrderID)
	bad := res.Unprotected()
	require.Len(t, bad, 1)
	require.Equal(t, typeStopMarket, bad[0].Kind)
	require.Contains(t, bad[0].Error, "-2021")
	require.Len(t, f.callsTo(pathOrder), 3)
}

func TestClosedTradesRequiresFlatPosition(t *testing.T) {
	f, a := newExchange(t)
	f.on(http.MethodGet, pathPositionRisk, `[{"symbol":"BTCUSDT","positionAmt":"0.5"}]`)
	f.on(http.MethodGet, pathUserTrades, `[]`)

	got := a.ClosedTrades(context.Background(), creds, "BTCUSDT", models.EnvLive, 20)
	require.NotNil(t, got)
	require.Empty(t, got)
	require.Empty(t, f.callsTo(pathUserTrades))
}

func TestClosedTradesMergesFills(t *testing.T) {
	f, a := newExchange(t)
	f.on(http.MethodGet, pathPositionRisk, `[{"symbol":"BTCUSDT","positionAmt":"0"}]`)
	f.on(http.MethodGet, pathUserTrades, `[
		{"orderId":11,"symbol":"BTCUSDT","side":"BUY","price":"100","qty":"1","commission":"0.1","realizedPnl":"0","time":1700000000000},
		{"orderId":12,"symbol":"BTCUSDT","side":"SELL","price":"110","qty":"1","commission":"0.1","realizedPnl":"6","time":1700000060000},
		{"orderId":12,"symbol":"BTCUSDT","side":"SELL","price":"120","qty":"1","commission":"0.2","realizedPnl":"14","time":1700000061000}
	]`)

	got := a.ClosedTrades(context.Background(), creds, "BTCUSDT", models.EnvLive, 20)
	require.Len(t, got, 2)
	require.Equal(t, "11", got[0].OrderID)

	second := got[1]
	require.Equal(t, "12", second.OrderID)
	require.InDelta(t, 2.0, second.Qty, 1e-9)
	require.InDelta(t, 115.0, second.ExitPrice, 1e-9)
	require.InDelta(t, 0.3, second.Fee, 1e-9)
	require.InDelta(t, 20.0, second.PnL, 1e-9)
	require.Equal(t, int64(1700000060000), second.OpenedAt.UnixMilli())
	require.Equal(t, int64(1700000061000), second.ClosedAt.UnixMilli())

	q := f.callsTo(pathUserTrades)[0].query
	require.True(t, strings.HasPrefix(q, "symbol=BTCUSDT&limit=20&timestamp="))
}

func TestClosedTradesFailureIsEmpty(t *testing.T) {
	f, a := newExchange(t)
	f.on(http.MethodGet, pathPositionRisk, `[{"symbol":"BTCUSDT","positionAmt":"0"}]`)
	f.handle(http.MethodGet+" "+pathUserTrades, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	got := a.ClosedTrades(context.Background(), creds, "BTCUSDT", models.EnvLive, 20)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestCandlesParsesAndOrders(t *testing.T) {
	f, a := newExchange(t)
	f.on(http.MethodGet, pathKlines, `[
		[1700000300000,"101","102","100","101.5","10",1700000599999,"0",1,"0","0","0"],
		[1700000000000,"100","101","99","100.5","12",1700000299999,"0",1,"0","0","0"]
	]`)

	got := a.Candles(context.Background(), "BTCUSDT", "5m", 2, models.EnvLive)
	require.Len(t, got, 2)
	require.Equal(t, []float64{100.5, 101.5}, models.Closes(got))
	require.Equal(t, "symbol=BTCUSDT&interval=5m&limit=2", f.callsTo(pathKlines)[0].query)
}

func TestCandlesApplicationErrorIsNil(t *testing.T) {
	f, a := newExchange(t)
	f.on(http.MethodGet, pathKlines, `{"code":-1121,"msg":"Invalid symbol."}`)
	require.Nil(t, a.Candles(context.Background(), "NOPE", "5m", 2, models.EnvLive))
}

func TestTestEnvironmentUsesTestBaseURL(t *testing.T) {
	f, a := newExchange(t)
	f.on(http.MethodGet, "/test"+pathPositionRisk, `[]`)

	require.False(t, a.HasOpenPosition(context.Background(), creds, "BTCUSDT", models.EnvTest))
	require.Len(t, f.callsTo("/test"+pathPositionRisk), 1)
}
