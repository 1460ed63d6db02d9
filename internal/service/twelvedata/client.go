// Package twelvedata fetches candles from the Twelve Data time_series API.
package twelvedata

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"SignalTrader/internal/domain/errs"
	"SignalTrader/internal/domain/models"
	xhttp "SignalTrader/pkg/http"
	applogger "SignalTrader/pkg/logger"
	"SignalTrader/pkg/util"

	json "github.com/goccy/go-json"
)

const (
	Name = "twelvedata"

	DefaultBaseURL = "https://api.twelvedata.com"
	pathTimeSeries = "/time_series"
)

type timeSeries struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Values  []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
}

// Client implements marketdata.Source. The environment is ignored: the
// provider has no test venue.
type Client struct {
	http    *xhttp.Client
	baseURL string
	apiKey  string
	log     *applogger.Logger
}

func New(client *xhttp.Client, baseURL, apiKey string, l *applogger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &Client{
		http:    client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		log:     l,
	}
}

// Symbol converts an exchange pair such as BTCUSDT to BTC/USDT.
func Symbol(s string) string {
	if strings.Contains(s, "/") {
		return s
	}
	for _, quote := range []string{"USDT", "USDC", "BUSD", "USD"} {
		if base := strings.TrimSuffix(s, quote); base != s && base != "" {
			return base + "/" + quote
		}
	}
	return s
}

// Interval converts 5m/1h/1d notation to the provider's 5min/1h/1day.
func Interval(s string) string {
	if len(s) < 2 {
		return s
	}
	n, unit := s[:len(s)-1], s[len(s)-1]
	if _, err := strconv.Atoi(n); err != nil {
		return s
	}
	switch unit {
	case 'm':
		return n + "min"
	case 'h':
		return n + "h"
	case 'd':
		return n + "day"
	case 'w':
		return n + "week"
	case 'M':
		return n + "month"
	}
	return s
}

// Candles returns candles oldest first, or nil on any failure including an
// error status embedded in a 200 response.
func (c *Client) Candles(ctx context.Context, symbol, interval string, limit int, _ models.Environment) []models.Candle {
	start := time.Now()
	candles, err := c.fetch(ctx, symbol, interval, limit)
	if err != nil {
		c.log.Error("market data fetch failed",
			applogger.String("provider", Name),
			applogger.String("symbol", symbol),
			applogger.String("interval", interval),
			applogger.String("kind", string(errs.KindOf(err))),
			applogger.Error(err),
		)
		return nil
	}
	c.log.Debug("market data fetched",
		applogger.String("provider", Name),
		applogger.String("symbol", symbol),
		applogger.Int("count", len(candles)),
		applogger.Duration("elapsed", time.Since(start)),
	)
	return candles
}

func (c *Client) fetch(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	resp, err := c.http.Do(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + pathTimeSeries,
		QueryParams: map[string][]string{
			"symbol":     {Symbol(symbol)},
			"interval":   {Interval(interval)},
			"outputsize": {strconv.Itoa(limit)},
			"apikey":     {c.apiKey},
		},
	})
	if err != nil {
		return nil, errs.Transport(Name, "time_series", err)
	}
	if !resp.OK() {
		return nil, errs.Transport(Name, "time_series", &xhttp.StatusError{StatusCode: resp.StatusCode, Body: resp.Body})
	}

	var ts timeSeries
	if err := json.Unmarshal(resp.Body, &ts); err != nil {
		return nil, errs.Transport(Name, "time_series", fmt.Errorf("decode response: %w", err))
	}
	if ts.Status == "error" {
		return nil, errs.Application(Name, "time_series", strconv.Itoa(ts.Code), ts.Message)
	}

	out := make([]models.Candle, 0, len(ts.Values))
	for i := len(ts.Values) - 1; i >= 0; i-- {
		v := ts.Values[i]
		t, ok := util.ParseTime(v.Datetime)
		if !ok {
			return nil, errs.Transport(Name, "time_series", fmt.Errorf("invalid datetime %q", v.Datetime))
		}
		closePrice, ok := util.ParseFloat(v.Close)
		if !ok {
			return nil, errs.Transport(Name, "time_series", fmt.Errorf("invalid close %q", v.Close))
		}
		out = append(out, models.Candle{
			Time:   t,
			Open:   util.ParseFloatDefault(v.Open, closePrice),
			High:   util.ParseFloatDefault(v.High, closePrice),
			Low:    util.ParseFloatDefault(v.Low, closePrice),
			Close:  closePrice,
			Volume: util.ParseFloatDefault(v.Volume, 0),
		})
	}
	return out, nil
}
