// Package bybit implements the broker adapter for Bybit V5 linear perpetuals.
package bybit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"SignalTrader/internal/domain/errs"
	"SignalTrader/internal/domain/models"
	"SignalTrader/internal/service/broker"
	xhttp "SignalTrader/pkg/http"

	json "github.com/goccy/go-json"
)

const Name = "bybit"

const (
	pathPositionList = "/v5/position/list"
	pathOrderCreate  = "/v5/order/create"
	pathClosedPnl    = "/v5/position/closed-pnl"
	pathKline        = "/v5/market/kline"

	category          = "linear"
	defaultRecvWindow = 5000
)

// Adapter talks to the V5 REST API using envelope signing.
type Adapter struct {
	t      *broker.Transport
	signer broker.EnvelopeSigner
}

type Option func(*Adapter)

// WithClock overrides the timestamp source used for signing.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.signer.Now = now }
}

// WithRecvWindow overrides the receive window sent with every signed call.
func WithRecvWindow(ms int) Option {
	return func(a *Adapter) {
		if ms > 0 {
			a.signer.RecvWindow = ms
		}
	}
}

func New(t *broker.Transport, opts ...Option) *Adapter {
	a := &Adapter{
		t: t,
		signer: broker.EnvelopeSigner{
			KeyHeader:        "X-BAPI-API-KEY",
			SignHeader:       "X-BAPI-SIGN",
			TimestampHeader:  "X-BAPI-TIMESTAMP",
			RecvWindowHeader: "X-BAPI-RECV-WINDOW",
			RecvWindow:       defaultRecvWindow,
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) get(ctx context.Context, op, path string, env models.Environment, creds *models.Credentials, params broker.Params, dest interface{}) error {
	query := params.Encode()
	opts := xhttp.RequestOptions{Method: xhttp.MethodGet, URL: path, RawQuery: query}
	if creds != nil {
		opts.Headers = a.signer.Headers(*creds, query)
	}
	resp, err := a.t.Do(ctx, op, env, opts)
	if err != nil {
		return err
	}
	return a.decode(op, resp, dest)
}

func (a *Adapter) post(ctx context.Context, op, path string, env models.Environment, creds models.Credentials, body interface{}, dest interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errs.New(errs.KindUnexpected, "encode request", errs.WithBroker(Name), errs.WithOp(op), errs.WithCause(err))
	}
	resp, err := a.t.Do(ctx, op, env, xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     path,
		Headers: a.signer.Headers(creds, string(payload)),
		Body:    payload,
	})
	if err != nil {
		return err
	}
	return a.decode(op, resp, dest)
}

// decode unwraps the V5 envelope. A non-zero retCode is an application error
// even when the HTTP status is 200.
func (a *Adapter) decode(op string, resp *xhttp.Response, dest interface{}) error {
	var env envelope
	decodeErr := a.t.Decode(op, resp.Body, &env)
	if decodeErr == nil && env.RetCode != 0 {
		return errs.Application(Name, op, strconv.Itoa(env.RetCode), env.RetMsg)
	}
	if !resp.OK() {
		return errs.Transport(Name, op, &xhttp.StatusError{StatusCode: resp.StatusCode, Body: resp.Body})
	}
	if decodeErr != nil {
		return decodeErr
	}
	if dest == nil {
		return nil
	}
	if len(env.Result) == 0 {
		return errs.Transport(Name, op, fmt.Errorf("response has no result"))
	}
	return a.t.Decode(op, env.Result, dest)
}

func side(s models.Side) string {
	if s == models.SideLong {
		return "Buy"
	}
	return "Sell"
}
