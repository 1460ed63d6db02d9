// Package binance implements the broker adapter for Binance USD-M futures.
package binance

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"SignalTrader/internal/domain/errs"
	"SignalTrader/internal/domain/models"
	"SignalTrader/internal/service/broker"
	xhttp "SignalTrader/pkg/http"
)

const Name = "binance"

const (
	pathPositionRisk = "/fapi/v2/positionRisk"
	pathOrder        = "/fapi/v1/order"
	pathUserTrades   = "/fapi/v1/userTrades"
	pathKlines       = "/fapi/v1/klines"
)

// Adapter talks to the futures REST API using query-string signing.
type Adapter struct {
	t      *broker.Transport
	signer broker.QueryStringSigner
}

type Option func(*Adapter)

// WithClock overrides the timestamp source used for signing.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.signer.Now = now }
}

// WithRecvWindow adds a recvWindow parameter to every signed request.
func WithRecvWindow(ms int) Option {
	return func(a *Adapter) { a.signer.RecvWindow = ms }
}

func New(t *broker.Transport, opts ...Option) *Adapter {
	a := &Adapter{
		t:      t,
		signer: broker.QueryStringSigner{KeyHeader: "X-MBX-APIKEY"},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) signed(ctx context.Context, op, method, path string, env models.Environment, creds models.Credentials, params broker.Params, dest interface{}) error {
	query, headers := a.signer.Sign(creds, params)
	resp, err := a.t.Do(ctx, op, env, xhttp.RequestOptions{
		Method:   method,
		URL:      path,
		RawQuery: query,
		Headers:  headers,
	})
	if err != nil {
		return err
	}
	return a.decode(op, resp, dest)
}

func (a *Adapter) public(ctx context.Context, op, path string, env models.Environment, params broker.Params, dest interface{}) error {
	resp, err := a.t.Do(ctx, op, env, xhttp.RequestOptions{
		Method:   xhttp.MethodGet,
		URL:      path,
		RawQuery: params.Encode(),
	})
	if err != nil {
		return err
	}
	return a.decode(op, resp, dest)
}

// decode maps error payloads ({"code":-2019,"msg":"..."}) to application
// errors and other non-2xx responses to transport errors.
func (a *Adapter) decode(op string, resp *xhttp.Response, dest interface{}) error {
	body := bytes.TrimSpace(resp.Body)
	if len(body) > 0 && body[0] == '{' {
		var apiErr apiError
		if err := a.t.Decode(op, body, &apiErr); err == nil && apiErr.Code < 0 {
			return errs.Application(Name, op, strconv.Itoa(apiErr.Code), apiErr.Msg)
		}
	}
	if !resp.OK() {
		return errs.Transport(Name, op, &xhttp.StatusError{StatusCode: resp.StatusCode, Body: resp.Body})
	}
	if dest == nil {
		return nil
	}
	return a.t.Decode(op, body, dest)
}

func parseAmount(op, field, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errs.Transport(Name, op, fmt.Errorf("parse %s %q: %w", field, s, err))
	}
	return v, nil
}
